package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTPEmail is a one-time passcode mailed to prove address ownership.
	KindOTPEmail = "otp_email"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger instead of delivering them.
// Used in development when no SMTP server is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", "kind", message.Kind, "destination", message.Destination, "subject", message.Subject, "body", message.Body)
	return nil
}
