package registration

import (
	"context"

	"github.com/rs/zerolog/log"
)

// NoopMailer logs rather than sending mail, keeping SendWelcomeMail a real,
// exercised pipeline stage in deployments without an SMTP integration.
type NoopMailer struct{}

func (NoopMailer) SendWelcome(ctx context.Context, username string) error {
	log.Info().Str("username", username).Msg("welcome mail not sent: no mailer configured")
	return nil
}
