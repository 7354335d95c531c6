// Package mail declares the email dispatch contract this core consumes.
// Template rendering and SMTP transport live in an external collaborator;
// the core only asks for a message of a given kind to be sent.
package mail

import (
	"context"

	"go.uber.org/zap"
)

// Kind selects the message template.
type Kind string

const (
	// KindConfirmation is the signup confirmation message.
	KindConfirmation Kind = "confirmation"
	// KindForgot is the password recovery message.
	KindForgot Kind = "forgot"
	// KindAssociation notifies a user that their building scope changed.
	KindAssociation Kind = "association"
)

// Mailer sends one templated message to a recipient.
type Mailer interface {
	Send(ctx context.Context, kind Kind, recipient string, vars map[string]string) error
}

// LogMailer logs outgoing messages instead of delivering them. It stands
// in for the delivery collaborator in development and tests.
type LogMailer struct {
	log *zap.Logger
}

func NewLogMailer(log *zap.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, kind Kind, recipient string, vars map[string]string) error {
	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("recipient", recipient),
	}
	for k, v := range vars {
		fields = append(fields, zap.String(k, v))
	}
	m.log.Info("mail dispatched", fields...)
	return nil
}
