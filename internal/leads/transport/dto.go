// Package transport defines the HTTP request and response DTOs for leads.
package transport

import (
	"time"

	"leadflow_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ChangeStatusRequest asks for a manual status change on a lead.
type ChangeStatusRequest struct {
	Status string   `json:"status" validate:"required,min=1,max=30"`
	Reason string   `json:"reason,omitempty" validate:"omitempty,max=500"`
	Value  *float64 `json:"value,omitempty" validate:"omitempty,gte=0"`
}

// LeadResponse is the response DTO for a lead.
type LeadResponse struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Email            *string    `json:"email,omitempty"`
	Status           string     `json:"status"`
	StatusConfidence float64    `json:"statusConfidence"`
	NegotiatedValue  *float64   `json:"negotiatedValue,omitempty"`
	LastAIUpdate     *time.Time `json:"lastAiUpdate,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// StatusLogEntryResponse is one row of a lead's status history.
type StatusLogEntryResponse struct {
	ID             uuid.UUID  `json:"id"`
	PreviousStatus string     `json:"previousStatus"`
	NewStatus      string     `json:"newStatus"`
	Origin         string     `json:"origin"`
	Reason         *string    `json:"reason,omitempty"`
	ActingUserID   *uuid.UUID `json:"actingUserId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// StatusLogResponse is the status history for one lead, newest first.
type StatusLogResponse struct {
	Items []StatusLogEntryResponse `json:"items"`
}

// ToLeadResponse maps a lead row to its response DTO.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:               lead.ID,
		Name:             lead.Name,
		Phone:            lead.Phone,
		Email:            lead.Email,
		Status:           lead.Status,
		StatusConfidence: lead.StatusConfidence,
		NegotiatedValue:  lead.NegotiatedValue,
		LastAIUpdate:     lead.LastAIUpdate,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

// ToStatusLogResponse maps status log rows to the response DTO.
func ToStatusLogResponse(entries []repository.StatusLogEntry) StatusLogResponse {
	items := make([]StatusLogEntryResponse, 0, len(entries))
	for _, e := range entries {
		items = append(items, StatusLogEntryResponse{
			ID:             e.ID,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			Origin:         e.Origin,
			Reason:         e.Reason,
			ActingUserID:   e.ActingUserID,
			CreatedAt:      e.CreatedAt,
		})
	}
	return StatusLogResponse{Items: items}
}
