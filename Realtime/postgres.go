package Realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NotifySink sends events with pg_notify on the statement's own connection.
// Postgres delivers them only when the surrounding transaction commits, so
// listeners never see rolled back changes.
func NotifySink(channel string, logger logrus.FieldLogger) Sink {
	return func(tx *gorm.DB, event ChangeEvent) {
		payload, err := json.Marshal(event)
		if err != nil {
			logger.WithError(err).Error("failed to encode change event")
			return
		}
		err = tx.Session(&gorm.Session{NewDB: true}).Exec("SELECT pg_notify(?, ?)", channel, string(payload)).Error
		if err != nil {
			logger.WithError(err).WithField("table", event.Table).Error("failed to notify change event")
		}
	}
}

// Listener forwards notifications of a Postgres channel into a hub, so every
// instance of the service sees every change.
type Listener struct {
	DSN     string
	Channel string
	Hub     *Hub
	Logger  logrus.FieldLogger
	// Backoff is the wait before reconnecting after a lost connection.
	Backoff time.Duration
}

// Run listens until ctx is done, reconnecting when the connection drops.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.Backoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}

	for {
		err := l.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		l.Logger.WithError(err).WithField("channel", l.Channel).Warn("realtime listener disconnected, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, l.DSN)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.Channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.Channel, err)
	}
	l.Logger.WithField("channel", l.Channel).Info("realtime listener connected")

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		event, err := decodeEvent(notification.Payload)
		if err != nil {
			l.Logger.WithError(err).Warn("ignoring malformed change event")
			continue
		}
		l.Hub.Publish(event)
	}
}

func decodeEvent(payload string) (ChangeEvent, error) {
	var event ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return ChangeEvent{}, err
	}
	if event.Table == "" || event.RowID == 0 {
		return ChangeEvent{}, errors.New("change event without table or row")
	}
	return event, nil
}
