// Package provider defines the interface for mail delivery backends.
package provider

import (
	"context"

	"github.com/wolfsoftwaresystemsltd/WolfScale-sub001/internal/mail"
)

// Provider is the interface that mail delivery backends must implement.
// Each provider handles the actual sending of an outbound message to the
// target service (SMTP relay, SES API, stdout).
type Provider interface {
	// Send delivers a message through this provider.
	// It returns an error if the delivery fails.
	Send(ctx context.Context, msg *mail.Message) error

	// Name returns the human-readable name of this provider.
	Name() string
}
