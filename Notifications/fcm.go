package Notifications

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher sends a push notification to device tokens and reports the tokens
// the provider no longer knows.
type Pusher interface {
	Push(ctx context.Context, tokens []string, title, body string, data map[string]string) (stale []string, err error)
}

// FCM pushes through Firebase Cloud Messaging.
type FCM struct {
	client *messaging.Client
}

// NewFCM initialises Firebase from a service account file.
func NewFCM(ctx context.Context, credentialsFile string) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting Messaging client: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) Push(ctx context.Context, tokens []string, title, body string, data map[string]string) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	response, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send push notification: %w", err)
	}

	var stale []string
	for i, result := range response.Responses {
		if !result.Success && messaging.IsUnregistered(result.Error) {
			stale = append(stale, tokens[i])
		}
	}
	return stale, nil
}
