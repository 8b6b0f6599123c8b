package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pagespeed_monitor/internal/config"
	"pagespeed_monitor/internal/notifications"
	"pagespeed_monitor/internal/pagespeed"
	"pagespeed_monitor/internal/processing"
	"pagespeed_monitor/internal/sheets"
)

// Clients are the external service clients a run needs.
type Clients struct {
	PageSpeed *pagespeed.Client
	Sheets    *sheets.Writer
	Notifier  *notifications.Client
}

// InitializeClients creates the PageSpeed, Sheets and notification clients.
func InitializeClients(ctx context.Context, cfg *config.Config) (*Clients, error) {
	log.Debug().Msg("Initializing clients")

	var psOpts []pagespeed.Option
	if cfg.PageSpeed.BaseURL != "" {
		psOpts = append(psOpts, pagespeed.WithBaseURL(cfg.PageSpeed.BaseURL))
	}
	if cfg.PageSpeed.APIKey == "" {
		log.Warn().Msg("PAGESPEED_API_KEY not set; requests are subject to anonymous quota")
	}
	psClient := pagespeed.NewClient(cfg.PageSpeed.APIKey, psOpts...)

	sheetsClient, err := sheets.NewClient(ctx, cfg.Sheet.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	writer := sheets.NewWriter(sheetsClient, cfg.Sheet.SpreadsheetID, cfg.Location)

	notifier, err := InitializeNotificationClient(ctx, cfg, writer.SpreadsheetURL())
	if err != nil {
		return nil, err
	}

	log.Debug().Msg("Clients initialized successfully")
	return &Clients{
		PageSpeed: psClient,
		Sheets:    writer,
		Notifier:  notifier,
	}, nil
}

// InitializeNotificationClient creates the email notifier. The Gmail sender
// is only built when there is someone to notify.
func InitializeNotificationClient(ctx context.Context, cfg *config.Config, spreadsheetURL string) (*notifications.Client, error) {
	n := cfg.Notify
	log.Debug().
		Bool("enabled", n.Enabled).
		Int("recipients", len(n.Recipients)).
		Str("sender", n.Sender).
		Msg("Initializing notification client")

	if !n.Enabled || len(n.Recipients) == 0 {
		log.Debug().Msg("Notifications disabled")
		return notifications.NewClient(nil, n.Recipients, spreadsheetURL, false), nil
	}

	sender, err := notifications.NewGmailSender(ctx, cfg.Sheet.CredentialsFile, n.Sender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail sender: %w", err)
	}

	log.Info().Int("recipients", len(n.Recipients)).Msg("Notifications enabled")
	return notifications.NewClient(sender, n.Recipients, spreadsheetURL, true), nil
}

// NewRunner builds the orchestrator from cfg and clients.
func NewRunner(cfg *config.Config, clients *Clients) *processing.Runner {
	return processing.NewRunner(
		clients.PageSpeed,
		clients.Sheets,
		clients.Notifier,
		cfg.PageSpeed.URLs,
		processing.WithSheetName(cfg.Sheet.Name),
		processing.WithPerURLSheets(cfg.Sheet.PerURL),
		processing.WithAuditKeys(cfg.Audits),
		processing.WithPause(cfg.PauseDuration()),
		processing.WithLocation(cfg.Location),
	)
}
