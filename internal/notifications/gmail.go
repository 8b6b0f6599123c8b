package notifications

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender sends mail through the Gmail API as a single mailbox.
type GmailSender struct {
	service *gmail.Service
	from    string
}

// NewGmailSender authenticates with a service-account key that has
// domain-wide delegation and impersonates from.
func NewGmailSender(ctx context.Context, credentialsFile, from string) (*GmailSender, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(data, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	cfg.Subject = from

	return NewGmailSenderWithOptions(ctx, from, option.WithTokenSource(cfg.TokenSource(ctx)))
}

func NewGmailSenderWithOptions(ctx context.Context, from string, opts ...option.ClientOption) (*GmailSender, error) {
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &GmailSender{
		service: service,
		from:    from,
	}, nil
}

func (s *GmailSender) Send(ctx context.Context, to, subject, body string) error {
	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(buildMessage(s.from, to, subject, body)),
	}

	sent, err := s.service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Debug().Str("to", to).Str("message_id", sent.Id).Msg("Email accepted by Gmail")
	return nil
}

// buildMessage renders a plain-text RFC 822 message.
func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	if from != "" {
		sb.WriteString("From: " + from + "\r\n")
	}
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + mime.BEncoding.Encode("utf-8", subject) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(sb.String())
}
