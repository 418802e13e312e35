package registration

import "github.com/rs/zerolog/log"

func logRollbackFailure(err error) {
	log.Error().Err(err).Msg("registration pipeline rollback failed")
}
