package Controllers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"Onboarding/middleware"
)

const maxLogLine = 1 << 20

// LogGroup aggregates the requests of one method and path
type LogGroup struct {
	Path        string               `json:"path"`
	Method      string               `json:"method"`
	Count       int                  `json:"count"`
	AvgLatency  float64              `json:"avg_latency_ms"`
	MinLatency  float64              `json:"min_latency_ms"`
	MaxLatency  float64              `json:"max_latency_ms"`
	SuccessRate float64              `json:"success_rate"`
	Logs        []middleware.LogData `json:"logs"`
}

type LogsResponse struct {
	Groups      []LogGroup `json:"groups"`
	TotalLogs   int        `json:"total_logs"`
	TotalGroups int        `json:"total_groups"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
	TotalPages  int        `json:"total_pages"`
	DateFrom    time.Time  `json:"date_from"`
	DateTo      time.Time  `json:"date_to"`
}

// LogsController reads back the JSON lines written by the request logger
type LogsController struct {
	Path   string
	Logger logrus.FieldLogger
	Now    func() time.Time
}

func NewLogsController(path string, logger logrus.FieldLogger, now func() time.Time) *LogsController {
	return &LogsController{Path: path, Logger: logger, Now: now}
}

// GetLogs returns request logs grouped by method and path, busiest first.
// Query: page, page_size, date_from, date_to, path, method, status.
func (c *LogsController) GetLogs(ctx *fiber.Ctx) error {
	dateFrom, dateTo, err := c.dateRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	page := queryInt(ctx, "page", 1)
	pageSize := queryInt(ctx, "page_size", 50)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 1000 {
		pageSize = 50
	}

	logs, err := c.read(dateFrom, dateTo)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to read logs")
	}
	logs = filterLogs(logs, ctx.Query("path"), ctx.Query("method"), queryInt(ctx, "status", 0))
	groups := groupLogs(logs)

	totalGroups := len(groups)
	start := min((page-1)*pageSize, totalGroups)
	end := min(start+pageSize, totalGroups)

	return ctx.JSON(LogsResponse{
		Groups:      groups[start:end],
		TotalLogs:   len(logs),
		TotalGroups: totalGroups,
		Page:        page,
		PageSize:    pageSize,
		TotalPages:  (totalGroups + pageSize - 1) / pageSize,
		DateFrom:    dateFrom,
		DateTo:      dateTo,
	})
}

// GetLogStats returns request totals, latency and the ten busiest paths
func (c *LogsController) GetLogStats(ctx *fiber.Ctx) error {
	dateFrom, dateTo, err := c.dateRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	logs, err := c.read(dateFrom, dateTo)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to read logs")
	}

	var successful, failed int
	var total, minLatency, maxLatency time.Duration
	statusStats := map[int]int{}
	pathStats := map[string]int{}
	for i, entry := range logs {
		if entry.Status >= 200 && entry.Status < 300 {
			successful++
		} else if entry.Status >= 400 {
			failed++
		}
		total += entry.Latency
		if i == 0 || entry.Latency < minLatency {
			minLatency = entry.Latency
		}
		maxLatency = max(maxLatency, entry.Latency)
		statusStats[entry.Status]++
		pathStats[entry.Path]++
	}

	type pathCount struct {
		Path  string `json:"path"`
		Count int    `json:"count"`
	}
	topPaths := make([]pathCount, 0, len(pathStats))
	for path, count := range pathStats {
		topPaths = append(topPaths, pathCount{Path: path, Count: count})
	}
	slices.SortFunc(topPaths, func(a, b pathCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Path, b.Path)
	})
	if len(topPaths) > 10 {
		topPaths = topPaths[:10]
	}

	var avg time.Duration
	var successRate float64
	if len(logs) > 0 {
		avg = total / time.Duration(len(logs))
		successRate = float64(successful) / float64(len(logs)) * 100
	}

	return ctx.JSON(fiber.Map{
		"total_requests":      len(logs),
		"successful_requests": successful,
		"error_requests":      failed,
		"success_rate":        successRate,
		"avg_latency_ms":      millis(avg),
		"min_latency_ms":      millis(minLatency),
		"max_latency_ms":      millis(maxLatency),
		"status_stats":        statusStats,
		"top_paths":           topPaths,
		"date_from":           dateFrom,
		"date_to":             dateTo,
	})
}

// dateRange defaults to today. A lone date_from runs until now.
func (c *LogsController) dateRange(ctx *fiber.Ctx) (time.Time, time.Time, error) {
	now := c.Now()
	from, to := ctx.Query("date_from"), ctx.Query("date_to")
	if from == "" && to == "" {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return day, day.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
	}

	dateFrom := time.Unix(0, 0).UTC()
	dateTo := now
	if from != "" {
		parsed, err := time.ParseInLocation(dateLayout, from, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("Invalid date_from format. Use YYYY-MM-DD")
		}
		dateFrom = parsed
	}
	if to != "" {
		parsed, err := time.ParseInLocation(dateLayout, to, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("Invalid date_to format. Use YYYY-MM-DD")
		}
		dateTo = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return dateFrom, dateTo, nil
}

// read returns the entries logged within [from, to]. A missing file means
// nothing has been logged yet.
func (c *LogsController) read(from, to time.Time) ([]middleware.LogData, error) {
	file, err := os.Open(c.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", c.Path, err)
	}
	defer file.Close()

	var logs []middleware.LogData
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLogLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry middleware.LogData
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if entry.Timestamp.Before(from) || entry.Timestamp.After(to) {
			continue
		}
		logs = append(logs, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", c.Path, err)
	}
	return logs, nil
}

func filterLogs(logs []middleware.LogData, path, method string, status int) []middleware.LogData {
	filtered := make([]middleware.LogData, 0, len(logs))
	for _, entry := range logs {
		if path != "" && !strings.Contains(strings.ToLower(entry.Path), strings.ToLower(path)) {
			continue
		}
		if method != "" && !strings.EqualFold(entry.Method, method) {
			continue
		}
		if status != 0 && entry.Status != status {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

func groupLogs(logs []middleware.LogData) []LogGroup {
	index := map[string]int{}
	groups := []LogGroup{}
	successes := []int{}
	totals := []float64{}

	for _, entry := range logs {
		key := entry.Method + " " + entry.Path
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, LogGroup{Path: entry.Path, Method: entry.Method, MinLatency: millis(entry.Latency)})
			successes = append(successes, 0)
			totals = append(totals, 0)
		}

		latency := millis(entry.Latency)
		group := &groups[i]
		group.Count++
		group.Logs = append(group.Logs, entry)
		group.MinLatency = min(group.MinLatency, latency)
		group.MaxLatency = max(group.MaxLatency, latency)
		totals[i] += latency
		if entry.Status >= 200 && entry.Status < 300 {
			successes[i]++
		}
	}

	for i := range groups {
		groups[i].AvgLatency = totals[i] / float64(groups[i].Count)
		groups[i].SuccessRate = float64(successes[i]) / float64(groups[i].Count)
	}

	slices.SortStableFunc(groups, func(a, b LogGroup) int {
		return b.Count - a.Count
	})
	return groups
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
