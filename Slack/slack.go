package Slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"Onboarding/Models"
	"Onboarding/Progress"
)

var ErrNotConfigured = errors.New("slack is not configured")

const digestHeader = "*Onboarding at-risk digest*"

// Client posts admin notices to one Slack channel.
type Client struct {
	api     *slack.Client
	Channel string
}

// NewClient returns nil when token or channel are empty; a nil client drops
// every message with ErrNotConfigured.
func NewClient(token, channel string, options ...slack.Option) *Client {
	if token == "" || channel == "" {
		return nil
	}
	return &Client{api: slack.New(token, options...), Channel: channel}
}

func (c *Client) SendMessage(ctx context.Context, text string) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	_, timestamp, err := c.api.PostMessageContext(ctx, c.Channel, slack.MsgOptionText(text, false))
	if err != nil {
		return "", fmt.Errorf("failed to post slack message: %w", err)
	}
	return timestamp, nil
}

// SendAndPinWithCleanup posts text, pins it, and unpins the digests posted
// before it so the channel keeps a single pinned digest.
func (c *Client) SendAndPinWithCleanup(ctx context.Context, text string) error {
	timestamp, err := c.SendMessage(ctx, text)
	if err != nil {
		return err
	}

	items, _, err := c.api.ListPinsContext(ctx, c.Channel)
	if err != nil {
		return fmt.Errorf("failed to list pinned messages: %w", err)
	}
	for _, item := range items {
		if item.Message == nil || item.Message.Timestamp == timestamp {
			continue
		}
		if !strings.HasPrefix(item.Message.Text, digestHeader) {
			continue
		}
		if err := c.api.RemovePinContext(ctx, c.Channel, slack.NewRefToMessage(c.Channel, item.Message.Timestamp)); err != nil {
			return fmt.Errorf("failed to unpin old digest: %w", err)
		}
	}

	if err := c.api.AddPinContext(ctx, c.Channel, slack.NewRefToMessage(c.Channel, timestamp)); err != nil {
		return fmt.Errorf("failed to pin digest: %w", err)
	}
	return nil
}

// PostAtRiskDigest publishes the at-risk list and pins it.
func (c *Client) PostAtRiskDigest(ctx context.Context, employees []Progress.AtRiskEmployee, now time.Time) error {
	return c.SendAndPinWithCleanup(ctx, GenerateAtRiskMessage(employees, now))
}

// PostReview announces a submitted onboarding review.
func (c *Client) PostReview(ctx context.Context, employee Models.Employee, review Models.OnboardingReview) error {
	_, err := c.SendMessage(ctx, GenerateReviewMessage(employee, review))
	return err
}

func GenerateAtRiskMessage(employees []Progress.AtRiskEmployee, now time.Time) string {
	var message strings.Builder
	message.WriteString(digestHeader + "\n")
	message.WriteString(fmt.Sprintf("_Last Updated: %s_\n\n", Progress.FormatDateTime(now)))

	if len(employees) == 0 {
		message.WriteString("Everyone is on track :white_check_mark:")
		return message.String()
	}

	for _, employee := range employees {
		message.WriteString(fmt.Sprintf("• *%s* (%s): day %d, %d overdue, %d%% done\n",
			employee.FullName, employee.Email, employee.CurrentDay, employee.OverdueCount, employee.Progress))
	}
	return message.String()
}

func GenerateReviewMessage(employee Models.Employee, review Models.OnboardingReview) string {
	var message strings.Builder
	message.WriteString(fmt.Sprintf("*%s* finished onboarding and rated it %s (%d/5)\n",
		employee.FullName, strings.Repeat(":star:", review.OverallRating), review.OverallRating))
	if review.Feedback != "" {
		message.WriteString(fmt.Sprintf("> %s\n", review.Feedback))
	}
	if review.Suggestions != "" {
		message.WriteString(fmt.Sprintf("Suggestions: %s\n", review.Suggestions))
	}
	return message.String()
}
