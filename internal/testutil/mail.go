// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package testutil

import (
	"context"
	"sync"
	"testing"

	"codeberg.org/oliverandrich/ticketing/internal/services/email"
	"github.com/stretchr/testify/require"
)

// Outbox is an email.Sender that records envelopes instead of sending them.
// Set Err to make every send fail.
type Outbox struct {
	mu        sync.Mutex
	envelopes []*email.Envelope
	Err       error
}

// Send records env or returns Err.
func (o *Outbox) Send(_ context.Context, env *email.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.envelopes = append(o.envelopes, env)
	return nil
}

// Messages returns the recorded envelopes.
func (o *Outbox) Messages() []*email.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*email.Envelope(nil), o.envelopes...)
}

// Last returns the most recent envelope or nil.
func (o *Outbox) Last() *email.Envelope {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.envelopes) == 0 {
		return nil
	}
	return o.envelopes[len(o.envelopes)-1]
}

// NewMailer returns an email service backed by a fresh Outbox.
func NewMailer(t *testing.T) (*email.Service, *Outbox) {
	t.Helper()
	outbox := &Outbox{}
	svc, err := email.NewService(email.Options{
		From:     "noreply@example.com",
		SiteName: "Ticketing",
		SiteURL:  "http://localhost:3000",
	}, outbox)
	require.NoError(t, err)
	return svc, outbox
}
