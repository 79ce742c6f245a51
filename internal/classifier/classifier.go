// Package classifier implements the tiered message classification chain:
// an ordered list of providers tried until one succeeds, plus the result
// normalization rules shared by all providers.
package classifier

import (
	"context"

	"github.com/google/uuid"
)

// Payload is the classification request: a lead snapshot, the triggering
// message and a short conversation history.
type Payload struct {
	TenantID    uuid.UUID `json:"tenantId"`
	LeadID      uuid.UUID `json:"leadId"`
	MessageID   uuid.UUID `json:"messageId"`
	LeadName    string    `json:"leadName"`
	LeadPhone   string    `json:"leadPhone"`
	LeadStatus  string    `json:"leadStatus"`
	MessageText string    `json:"messageText"`
	History     []string  `json:"history"`
}

// Result is a normalized classification outcome.
type Result struct {
	Status          string            `json:"status"`
	Confidence      float64           `json:"confidence"`
	NegotiatedValue *float64          `json:"negotiatedValue,omitempty"`
	Objection       string            `json:"objection,omitempty"`
	Reason          string            `json:"reason,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	Provider        string            `json:"provider"`
	Raw             string            `json:"-"`
}

// Provider classifies one message. Implementations must respect the
// context deadline; a timeout is treated as a provider failure by the chain.
type Provider interface {
	Name() string
	Classify(ctx context.Context, payload Payload) (Result, error)
}
