// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// ConsoleSender writes messages to a writer instead of sending them. It is
// the development backend when no SMTP server is configured.
type ConsoleSender struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleSender writes to w, or to stdout when w is nil.
func NewConsoleSender(w io.Writer) *ConsoleSender {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSender{w: w}
}

// Send prints the message headers and text body.
func (s *ConsoleSender) Send(_ context.Context, env *Envelope) error {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\n", env.From)
	fmt.Fprintf(&b, "To: %s\n", strings.Join(env.To, ", "))
	if len(env.CC) > 0 {
		fmt.Fprintf(&b, "Cc: %s\n", strings.Join(env.CC, ", "))
	}
	if len(env.ReplyTo) > 0 {
		fmt.Fprintf(&b, "Reply-To: %s\n", strings.Join(env.ReplyTo, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\n", env.Subject)

	names := make([]string, 0, len(env.Headers))
	for name := range env.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, env.Headers[name])
	}

	for _, a := range env.Attachments {
		fmt.Fprintf(&b, "Attachment: %s (%s, %d bytes)\n", a.Filename, a.MIMEType, len(a.Content))
	}
	fmt.Fprintf(&b, "\n%s\n%s\n", env.Text, strings.Repeat("-", 72))

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, b.String())
	return err
}
