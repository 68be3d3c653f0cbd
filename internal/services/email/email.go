// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"time"
)

// ErrConfiguration is returned when the service cannot be constructed.
var ErrConfiguration = errors.New("email is misconfigured")

// Priority controls the X-Priority and Importance headers.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityLow
	PriorityHigh
)

// headers returns the X-Priority and Importance values.
func (p Priority) headers() (xPriority, importance string) {
	switch p {
	case PriorityHigh:
		return "1", "high"
	case PriorityLow:
		return "5", "low"
	default:
		return "3", "normal"
	}
}

func (p Priority) String() string {
	_, importance := p.headers()
	return importance
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string
	Content  []byte
	MIMEType string
}

// Message is a templated email. TemplateName is a path without extension,
// e.g. "auth/verify_email".
type Message struct { //nolint:govet // fieldalignment: readability over optimization
	To           []string
	Subject      string
	TemplateName string
	Context      map[string]any
	From         string // overrides the configured sender
	CC           []string
	BCC          []string
	ReplyTo      []string
	Attachments  []Attachment
	Priority     Priority
}

// Envelope is a rendered message ready for a Sender.
type Envelope struct { //nolint:govet // fieldalignment: readability over optimization
	From        string
	To          []string
	CC          []string
	BCC         []string
	ReplyTo     []string
	Subject     string
	Text        string
	HTML        string // empty when the template has no HTML part
	Headers     map[string]string
	Attachments []Attachment
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, env *Envelope) error
}

// SendError is returned when the Sender fails and FailSilently is off.
type SendError struct {
	To  []string
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("failed to send email to %v: %v", e.To, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Options configures a Service.
type Options struct { //nolint:govet // fieldalignment: readability over optimization
	From         string
	FromName     string
	SiteName     string
	SiteURL      string
	SupportEmail string
	TemplatesDir string // searched before the built-in templates
	FailSilently bool
}

// Service renders templated emails and hands them to a Sender.
type Service struct {
	opts      Options
	sender    Sender
	templates *templateSet
}

// NewService creates a new email service.
func NewService(opts Options, sender Sender) (*Service, error) {
	if opts.From == "" {
		return nil, fmt.Errorf("%w: from address is required", ErrConfiguration)
	}
	if _, err := mail.ParseAddress(opts.From); err != nil {
		return nil, fmt.Errorf("%w: invalid from address %q", ErrConfiguration, opts.From)
	}
	if sender == nil {
		return nil, fmt.Errorf("%w: no sender", ErrConfiguration)
	}
	if opts.SupportEmail == "" {
		opts.SupportEmail = opts.From
	}

	return &Service{
		opts:      opts,
		sender:    sender,
		templates: newTemplateSet(opts.TemplatesDir),
	}, nil
}

// SendTemplate sends a normal-priority templated email to one recipient.
func (s *Service) SendTemplate(ctx context.Context, to, subject, templateName string, data map[string]any) error {
	return s.Send(ctx, Message{
		To:           []string{to},
		Subject:      subject,
		TemplateName: templateName,
		Context:      data,
	})
}

// Send renders and sends msg. A missing text template is always returned as
// *TemplateNotFoundError. Delivery failures are logged and, unless the
// service fails silently, returned as *SendError.
func (s *Service) Send(ctx context.Context, msg Message) error {
	env, err := s.render(msg)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, env); err != nil {
		slog.Error("email_send_failed", "to", msg.To, "template", msg.TemplateName, "error", err)
		if s.opts.FailSilently {
			return nil
		}
		return &SendError{To: msg.To, Err: err}
	}

	slog.Info("email_sent", "to", msg.To, "template", msg.TemplateName)
	return nil
}

func (s *Service) render(msg Message) (*Envelope, error) {
	data := s.buildContext(msg.Context)

	text, err := s.templates.renderText(msg.TemplateName, data)
	if err != nil {
		return nil, err
	}

	html, err := s.templates.renderHTML(msg.TemplateName, data)
	if err != nil {
		var notFound *TemplateNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		slog.Warn("email_html_template_missing", "template", notFound.Path)
	}

	xPriority, importance := msg.Priority.headers()

	return &Envelope{
		From:    s.from(msg.From),
		To:      msg.To,
		CC:      msg.CC,
		BCC:     msg.BCC,
		ReplyTo: msg.ReplyTo,
		Subject: msg.Subject,
		Text:    text,
		HTML:    html,
		Headers: map[string]string{
			"X-Priority": xPriority,
			"Importance": importance,
		},
		Attachments: msg.Attachments,
	}, nil
}

// buildContext merges the caller's data over the default template variables.
func (s *Service) buildContext(data map[string]any) map[string]any {
	merged := map[string]any{
		"site_name":     s.opts.SiteName,
		"site_url":      s.opts.SiteURL,
		"support_email": s.opts.SupportEmail,
		"current_year":  time.Now().Year(),
	}
	for k, v := range data {
		merged[k] = v
	}
	return merged
}

func (s *Service) from(override string) string {
	if override != "" {
		return override
	}
	if s.opts.FromName == "" {
		return s.opts.From
	}
	return (&mail.Address{Name: s.opts.FromName, Address: s.opts.From}).String()
}
