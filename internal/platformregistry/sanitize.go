package platformregistry

import "github.com/rs/zerolog/log"

// SanitizeCollision filters a service-register collision report down to
// fields this request actually submitted: the register may report a
// duplicate on a field this request never touched,
// or with a value that doesn't match what was actually submitted — either
// case would leak an unrelated user's data if passed straight through.
// Dropped entries are logged as operator-visible anomalies and never
// returned.
func SanitizeCollision(reported map[string]any, submitted map[string]any, username string) map[string]any {
	clean := make(map[string]any, len(reported))

	for field, reportedValue := range reported {
		if field == "username" {
			if reportedValue == username {
				clean[field] = reportedValue
			} else {
				log.Warn().Str("field", field).Str("username", username).Msg("register reported a username collision that doesn't match this request, dropping")
			}
			continue
		}

		submittedValue, ok := submitted[field]
		if !ok || submittedValue != reportedValue {
			log.Warn().Str("field", field).Str("username", username).Msg("register reported a collision field not matching this request, dropping")
			continue
		}

		clean[field] = reportedValue
	}

	return clean
}
