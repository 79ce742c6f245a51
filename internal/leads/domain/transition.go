package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Gating thresholds for automatic status changes.
const (
	// MinAutoConfidence is the floor below which an automatic
	// classification is silently ignored.
	MinAutoConfidence = 0.70
	// MinAutoWonConfidence is the stricter floor for closing a lead as won.
	MinAutoWonConfidence = 0.85
)

// DefaultRetrocessionReason is recorded when a classifier moves a lead
// backwards without supplying its own explanation.
const DefaultRetrocessionReason = "retrocessão automática"

// Manual-path validation errors. The service layer wraps these in typed
// apperr values for the HTTP boundary.
var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingValue      = errors.New("negotiated value is required to close as won")
	ErrMissingReason     = errors.New("a reason is required to move a lead backwards")
)

// Origin tags who caused a status change.
type Origin string

const (
	OriginAI    Origin = "ai"
	OriginHuman Origin = "human"
)

// LeadState is the snapshot of a lead the planner operates on.
type LeadState struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	Status     Status
	Confidence float64
}

// AutomaticChange is a classification result mapped into domain terms.
type AutomaticChange struct {
	Status      Status
	Confidence  float64
	Value       *float64
	Objection   string
	Reason      string // provider-supplied retrocession explanation, if any
	MessageText string // the triggering message, used for the won keyword gate
}

// ManualChange is a human-requested status change.
type ManualChange struct {
	Status     Status
	ActingUser uuid.UUID
	Reason     string
	Value      *float64
}

// Transition is the planned outcome of a status change: the new lead state
// plus the StatusLogEntry fields. The repository applies it atomically.
type Transition struct {
	From         Status
	To           Status
	Origin       Origin
	Confidence   *float64 // nil leaves the stored confidence unchanged
	Value        *float64 // nil leaves the negotiated value unchanged
	Reason       *string
	ActingUserID *uuid.UUID
	Objection    string
}

// PlanAutomatic applies the confidence and won gates to a classification
// result. A false return means the change is deliberately not applied; that
// is a silent no-op, never an error.
func PlanAutomatic(lead LeadState, change AutomaticChange) (Transition, bool) {
	if !change.Status.Valid() {
		return Transition{}, false
	}
	if change.Status == lead.Status {
		return Transition{}, false
	}
	if change.Confidence < MinAutoConfidence {
		return Transition{}, false
	}

	// A won lead is only ever overwritten by another won update.
	if lead.Status == StatusWon && change.Status != StatusWon {
		return Transition{}, false
	}

	if change.Status == StatusWon {
		if change.Confidence < MinAutoWonConfidence || !HasWonKeyword(change.MessageText) {
			return Transition{}, false
		}
	}

	confidence := change.Confidence
	t := Transition{
		From:       lead.Status,
		To:         change.Status,
		Origin:     OriginAI,
		Confidence: &confidence,
		Value:      change.Value,
		Objection:  change.Objection,
	}

	if IsRetrocession(lead.Status, change.Status) {
		reason := strings.TrimSpace(change.Reason)
		if reason == "" {
			reason = DefaultRetrocessionReason
		}
		t.Reason = &reason
	} else if reason := strings.TrimSpace(change.Reason); reason != "" {
		t.Reason = &reason
	}

	return t, true
}

// PlanManual validates a human-requested change. Unlike the automatic path,
// violations here are surfaced as errors for the caller to correct.
func PlanManual(lead LeadState, change ManualChange) (Transition, bool, error) {
	if !change.Status.Valid() {
		return Transition{}, false, ErrInvalidTransition
	}
	if lead.Status == StatusWon && change.Status != StatusWon {
		return Transition{}, false, ErrInvalidTransition
	}
	if change.Status == StatusWon && change.Value == nil {
		return Transition{}, false, ErrMissingValue
	}
	if IsRetrocession(lead.Status, change.Status) && strings.TrimSpace(change.Reason) == "" {
		return Transition{}, false, ErrMissingReason
	}

	if change.Status == lead.Status {
		return Transition{}, false, nil
	}

	actingUser := change.ActingUser
	t := Transition{
		From:         lead.Status,
		To:           change.Status,
		Origin:       OriginHuman,
		Value:        change.Value,
		ActingUserID: &actingUser,
	}
	if reason := strings.TrimSpace(change.Reason); reason != "" {
		t.Reason = &reason
	}

	return t, true, nil
}

// wonKeywords are the payment confirmation terms that must appear in the
// triggering message before an automatic transition to won is accepted.
var wonKeywords = []string{
	"pago",
	"paguei",
	"pagamento",
	"comprovante",
	"pix",
	"transferi",
	"transferência",
	"fechado",
	"fechamos",
	"assinado",
	"assinei",
}

// HasWonKeyword reports whether the message contains a strong payment
// confirmation term.
func HasWonKeyword(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range wonKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}
