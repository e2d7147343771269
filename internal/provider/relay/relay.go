// Package relay implements a Provider that delivers mail through the
// configured SMTP relay using a STARTTLS session with AUTH LOGIN.
package relay

import (
	"context"

	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/mail"
	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/smtp"
)

// Provider sends messages through an SMTP relay. Each Send is one
// independent synchronous session with no retries; a rejection at any
// protocol step is returned verbatim to the caller.
type Provider struct {
	sender *smtp.Sender
}

// New creates a relay Provider for the given relay options.
func New(opts smtp.Options) *Provider {
	return &Provider{sender: smtp.NewSender(opts)}
}

// Send delivers the message through the relay.
func (p *Provider) Send(ctx context.Context, msg *mail.Message) error {
	return p.sender.Send(ctx, msg)
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "relay"
}
