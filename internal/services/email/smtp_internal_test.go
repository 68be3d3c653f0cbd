// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"bytes"
	"testing"
	"time"

	"codeberg.org/oliverandrich/ticketing/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMsg(t *testing.T) {
	env := &Envelope{
		From:    `"Ticketing" <noreply@example.com>`,
		To:      []string{"john@x.com"},
		CC:      []string{"cc@example.com"},
		ReplyTo: []string{"support@example.com"},
		Subject: "Verify your email",
		Text:    "Your code is 123456",
		HTML:    "<p>Your code is 123456</p>",
		Headers: map[string]string{"X-Priority": "1", "Importance": "high"},
		Attachments: []Attachment{
			{Filename: "terms.txt", Content: []byte("terms"), MIMEType: "text/plain"},
		},
	}

	msg, err := buildMsg(env)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	assert.Contains(t, raw, "Subject: Verify your email")
	assert.Contains(t, raw, "To: <john@x.com>")
	assert.Contains(t, raw, "Cc: <cc@example.com>")
	assert.Contains(t, raw, "Reply-To: <support@example.com>")
	assert.Contains(t, raw, "X-Priority: 1")
	assert.Contains(t, raw, "Importance: high")
	assert.Contains(t, raw, "text/html")
	assert.Contains(t, raw, "terms.txt")
}

func TestBuildMsg_InvalidRecipient(t *testing.T) {
	_, err := buildMsg(&Envelope{From: "noreply@example.com", To: []string{"not an address"}})

	assert.Error(t, err)
}

func TestBuildMsg_InvalidReplyTo(t *testing.T) {
	_, err := buildMsg(&Envelope{
		From:    "noreply@example.com",
		To:      []string{"a@example.com"},
		ReplyTo: []string{"bogus"},
	})

	assert.Error(t, err)
}

func TestSMTPSender_ClientOptions(t *testing.T) {
	plain := &SMTPSender{cfg: &config.SMTPConfig{Host: "localhost", Port: 25}}
	full := &SMTPSender{cfg: &config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     465,
		Username: "user",
		Password: "secret",
		TLS:      true,
		Timeout:  5 * time.Second,
	}}

	// port + tls policy
	assert.Len(t, plain.clientOptions(), 2)
	// port + timeout + tls policy + ssl + auth, username, password
	assert.Len(t, full.clientOptions(), 7)
}
