package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	Subject = "📊 PageSpeed Insights Report"

	SuccessMessage       = "✅ PageSpeed data extraction completed successfully."
	failureMessageFormat = "❌ PageSpeed extraction failed: %v"
)

// FailureMessage is the notification text for a run that aborted with err.
func FailureMessage(err error) string {
	return fmt.Sprintf(failureMessageFormat, err)
}

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Client struct {
	sender         Sender
	recipients     []string
	spreadsheetURL string
	enabled        bool

	mutex       sync.RWMutex
	totalSent   int64
	totalFailed int64
}

type NotificationError struct {
	Type       string
	Recipients []string
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s] for %d recipient(s): %v", e.Type, len(e.Recipients), e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

func NewClient(sender Sender, recipients []string, spreadsheetURL string, enabled bool) *Client {
	return &Client{
		sender:         sender,
		recipients:     recipients,
		spreadsheetURL: spreadsheetURL,
		enabled:        enabled,
	}
}

// Body renders the email body for message.
func (c *Client) Body(message string) string {
	return fmt.Sprintf("%s\n\nView Sheet:\n%s", message, c.spreadsheetURL)
}

// Notify emails message to every recipient, one email each. A failed
// recipient does not stop delivery to the rest.
func (c *Client) Notify(ctx context.Context, message string) error {
	if !c.enabled {
		log.Debug().Msg("Notifications disabled, skipping")
		return nil
	}
	if len(c.recipients) == 0 {
		log.Debug().Msg("No notification recipients configured, skipping")
		return nil
	}
	if c.sender == nil {
		return &NotificationError{Type: "config", Recipients: c.recipients, Underlying: errors.New("no sender configured")}
	}

	body := c.Body(message)

	var failed []string
	var errs []error
	for _, to := range c.recipients {
		log.Debug().Str("to", to).Str("message", message).Msg("Sending notification")

		if err := c.sender.Send(ctx, to, Subject, body); err != nil {
			log.Warn().Err(err).Str("to", to).Msg("Notification failed")
			failed = append(failed, to)
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
			c.recordFailure()
			continue
		}

		log.Info().Str("to", to).Msg("Notification sent")
		c.recordSuccess()
	}

	if len(errs) > 0 {
		return &NotificationError{Type: "send", Recipients: failed, Underlying: errors.Join(errs...)}
	}
	return nil
}

func (c *Client) recordSuccess() {
	c.mutex.Lock()
	c.totalSent++
	c.mutex.Unlock()
}

func (c *Client) recordFailure() {
	c.mutex.Lock()
	c.totalFailed++
	c.mutex.Unlock()
}

// GetMetrics returns the number of emails sent and failed so far.
func (c *Client) GetMetrics() (sent, failed int64) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.totalSent, c.totalFailed
}
