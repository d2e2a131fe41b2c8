package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Logger writes notifications to the application log. Used when no webhook
// is configured.
type Logger struct{}

// NewLogger creates a log-only notifier.
func NewLogger() *Logger {
	return &Logger{}
}

// Compile-time interface check.
var _ Notifier = (*Logger)(nil)

// Notify logs the notification and always succeeds.
func (l *Logger) Notify(_ context.Context, p Payload) error {
	log.Info().
		Str("type", string(p.Type)).
		Str("mint", p.MintAddress).
		Msg(FormatMessage(p))
	return nil
}
