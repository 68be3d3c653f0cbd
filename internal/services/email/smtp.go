// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"context"
	"fmt"
	netmail "net/mail"
	"strings"

	"codeberg.org/oliverandrich/ticketing/internal/config"
	"github.com/wneessen/go-mail"
)

// SMTPSender delivers messages through an SMTP server.
type SMTPSender struct {
	cfg *config.SMTPConfig
}

// NewSMTPSender creates an SMTP sender.
func NewSMTPSender(cfg *config.SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: SMTP host is required", ErrConfiguration)
	}
	return &SMTPSender{cfg: cfg}, nil
}

// Send builds a MIME message and delivers it in a single SMTP session.
func (s *SMTPSender) Send(ctx context.Context, env *Envelope) error {
	msg, err := buildMsg(env)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}

func buildMsg(env *Envelope) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if err := msg.From(env.From); err != nil {
		return nil, fmt.Errorf("setting from address: %w", err)
	}
	if err := msg.To(env.To...); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}
	if len(env.CC) > 0 {
		if err := msg.Cc(env.CC...); err != nil {
			return nil, fmt.Errorf("setting cc address: %w", err)
		}
	}
	if len(env.BCC) > 0 {
		if err := msg.Bcc(env.BCC...); err != nil {
			return nil, fmt.Errorf("setting bcc address: %w", err)
		}
	}
	if len(env.ReplyTo) > 0 {
		replyTo := make([]string, 0, len(env.ReplyTo))
		for _, addr := range env.ReplyTo {
			parsed, err := netmail.ParseAddress(addr)
			if err != nil {
				return nil, fmt.Errorf("setting reply-to address: %w", err)
			}
			replyTo = append(replyTo, parsed.String())
		}
		msg.SetGenHeader("Reply-To", strings.Join(replyTo, ", "))
	}

	msg.Subject(env.Subject)
	for name, value := range env.Headers {
		msg.SetGenHeader(mail.Header(name), value)
	}

	msg.SetBodyString(mail.TypeTextPlain, env.Text)
	if env.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, env.HTML)
	}

	for _, a := range env.Attachments {
		var opts []mail.FileOption
		if a.MIMEType != "" {
			opts = append(opts, mail.WithFileContentType(mail.ContentType(a.MIMEType)))
		}
		if err := msg.AttachReader(a.Filename, bytes.NewReader(a.Content), opts...); err != nil {
			return nil, fmt.Errorf("attaching %s: %w", a.Filename, err)
		}
	}

	return msg, nil
}
