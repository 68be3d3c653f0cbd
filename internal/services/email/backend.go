// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"fmt"

	"codeberg.org/oliverandrich/ticketing/internal/config"
)

// NewFromConfig creates a Service with the configured backend.
func NewFromConfig(cfg *config.Config) (*Service, error) {
	var sender Sender
	switch cfg.Email.Backend {
	case "smtp":
		smtp, err := NewSMTPSender(&cfg.SMTP)
		if err != nil {
			return nil, err
		}
		sender = smtp
	case "console", "":
		sender = NewConsoleSender(nil)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrConfiguration, cfg.Email.Backend)
	}

	return NewService(Options{
		From:         cfg.SMTP.From,
		FromName:     cfg.SMTP.FromName,
		SiteName:     cfg.Site.Name,
		SiteURL:      cfg.Site.URL,
		SupportEmail: cfg.Site.SupportEmail,
		TemplatesDir: cfg.Email.TemplatesDir,
		FailSilently: cfg.Email.FailSilently,
	}, sender)
}
