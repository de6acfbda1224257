package middleware

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Onboarding/Session"
)

// LogConfig holds configuration for the logging middleware
type LogConfig struct {
	// Log every request through the application logger
	Console bool
	// Append JSON lines to LogFilePath
	File        bool
	LogFilePath string
	// Include request body in logs
	IncludeBody bool
	// Include user ID in logs
	IncludeUserID bool
	// Skip logging for specific paths
	SkipPaths []string
}

// LogData is one line of the request log. Controllers read the file back
// into this type.
type LogData struct {
	Timestamp     time.Time     `json:"timestamp"`
	Method        string        `json:"method"`
	Path          string        `json:"path"`
	URL           string        `json:"url"`
	Status        int           `json:"status"`
	Latency       time.Duration `json:"latency"`
	IP            string        `json:"ip"`
	UserAgent     string        `json:"user_agent"`
	RequestID     string        `json:"request_id"`
	RequestBody   interface{}   `json:"request_body,omitempty"`
	Error         string        `json:"error,omitempty"`
	UserID        uint          `json:"user_id,omitempty"`
	Username      string        `json:"username,omitempty"`
	ContentLength int64         `json:"content_length"`
}

func DefaultLogConfig(path string) LogConfig {
	return LogConfig{
		Console:       true,
		File:          true,
		LogFilePath:   path,
		IncludeBody:   false,
		IncludeUserID: true,
		SkipPaths:     []string{"/health"},
	}
}

// RequestLogger records every request with its status, latency and user.
func RequestLogger(logger logrus.FieldLogger, cfg LogConfig) fiber.Handler {
	if cfg.File {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFilePath), 0755); err != nil {
			logger.WithError(err).Error("failed to create logs directory")
		}
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, path := range cfg.SkipPaths {
		skip[path] = true
	}
	var mu sync.Mutex

	return func(c *fiber.Ctx) error {
		if skip[c.Path()] {
			return c.Next()
		}
		start := time.Now()

		var requestBody interface{}
		if cfg.IncludeBody && c.Method() != fiber.MethodGet {
			if body := c.Body(); len(body) > 0 {
				var jsonData interface{}
				if err := json.Unmarshal(body, &jsonData); err == nil {
					requestBody = jsonData
				} else {
					requestBody = string(body)
				}
			}
		}

		err := c.Next()

		data := LogData{
			Timestamp:     start,
			Method:        c.Method(),
			Path:          c.Path(),
			URL:           c.OriginalURL(),
			Status:        c.Response().StatusCode(),
			Latency:       time.Since(start),
			IP:            c.IP(),
			UserAgent:     c.Get(fiber.HeaderUserAgent),
			RequestID:     c.Get(fiber.HeaderXRequestID),
			RequestBody:   requestBody,
			ContentLength: int64(len(c.Response().Body())),
		}
		if err != nil {
			data.Error = err.Error()
		}
		if cfg.IncludeUserID {
			if session := Session.From(c); session != nil {
				data.UserID = session.User.ID
				data.Username = session.User.Name
			}
		}

		if cfg.Console {
			entry := logger.WithFields(logrus.Fields{
				"method":  data.Method,
				"path":    data.Path,
				"status":  data.Status,
				"latency": data.Latency.String(),
				"ip":      data.IP,
			})
			if data.UserID != 0 {
				entry = entry.WithField("user_id", data.UserID)
			}
			switch {
			case data.Status >= fiber.StatusInternalServerError || err != nil:
				entry.Error("request failed")
			case data.Status >= fiber.StatusBadRequest:
				entry.Warn("request rejected")
			default:
				entry.Info("request")
			}
		}

		if cfg.File {
			mu.Lock()
			writeLine(logger, cfg.LogFilePath, data)
			mu.Unlock()
		}
		return err
	}
}

func writeLine(logger logrus.FieldLogger, path string, data LogData) {
	line, err := json.Marshal(data)
	if err != nil {
		logger.WithError(err).Error("failed to encode request log")
		return
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger.WithError(err).Error("failed to open request log")
		return
	}
	defer file.Close()

	if _, err := file.Write(append(line, '\n')); err != nil {
		logger.WithError(err).Error("failed to write request log")
	}
}
