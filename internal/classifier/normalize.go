package classifier

import (
	"strings"

	"leadflow_backend/internal/leads/domain"
)

const (
	// DefaultConfidence substitutes an implausible near-zero confidence.
	// Providers that are genuinely unsure are expected to omit the field
	// instead of reporting a value near zero.
	DefaultConfidence = 0.75

	// minPlausibleConfidence is the floor under which a reported value is
	// treated as "provider omitted the field".
	minPlausibleConfidence = 0.01
)

// fallbackStatus is used when a provider reports a status outside the
// fixed set. Interested sits mid-pipeline, so a coerced result neither
// closes a lead nor resets it.
const fallbackStatus = domain.StatusInterested

// Normalize coerces a raw provider result into the fixed contract:
// a known status and a confidence in [0,1].
func Normalize(res Result) Result {
	res.Status = normalizeStatus(res.Status)
	res.Confidence = normalizeConfidence(res.Confidence)
	res.Objection = strings.TrimSpace(res.Objection)
	return res
}

func normalizeStatus(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if status, ok := domain.ParseStatus(cleaned); ok {
		return string(status)
	}
	return string(fallbackStatus)
}

func normalizeConfidence(value float64) float64 {
	// Some providers report percentages.
	if value > 1 {
		value = value / 100
	}
	if value > 1 {
		value = 1
	}
	if value < minPlausibleConfidence {
		return DefaultConfidence
	}
	return value
}
