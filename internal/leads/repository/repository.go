// Package repository provides data access for leads, their status history
// and the objection catalog. The transition apply is the single write path
// for status changes and runs inside one transaction under a row lock.
package repository

import (
	"context"
	"errors"
	"time"

	"leadflow_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// Lead is a row in the leads table.
type Lead struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	Phone            string
	Email            *string
	Status           string
	StatusConfidence float64
	NegotiatedValue  *float64
	OwnerID          *uuid.UUID
	LastAIUpdate     *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StatusLogEntry is one row of the append-only status history.
type StatusLogEntry struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	TenantID       uuid.UUID
	PreviousStatus string
	NewStatus      string
	Origin         string
	Reason         *string
	ActingUserID   *uuid.UUID
	CreatedAt      time.Time
}

// PlanFunc decides, under the row lock, whether and how the locked lead
// transitions. Returning ok=false aborts without error (silent no-op).
type PlanFunc func(state domain.LeadState) (domain.Transition, bool, error)

// Repository provides lead persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a leads repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, tenant_id, name, phone, email, status, status_confidence,
	negotiated_value, owner_id, last_ai_update, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.TenantID, &lead.Name, &lead.Phone, &lead.Email,
		&lead.Status, &lead.StatusConfidence, &lead.NegotiatedValue,
		&lead.OwnerID, &lead.LastAIUpdate, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByID returns one lead scoped to its tenant.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2
	`, id, tenantID))
}

// GetByPhone resolves a lead by its tenant-scoped natural key.
func (r *Repository) GetByPhone(ctx context.Context, tenantID uuid.UUID, phone string) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE tenant_id = $1 AND phone = $2
	`, tenantID, phone))
}

// GetOrCreateByPhone resolves the lead owning a phone number, creating it
// in status "new" when unseen. Safe under concurrent ingestion of the same
// number: the unique (tenant_id, phone) index arbitrates, losers re-read.
func (r *Repository) GetOrCreateByPhone(ctx context.Context, tenantID uuid.UUID, phone, nameHint string) (Lead, error) {
	lead, err := r.GetByPhone(ctx, tenantID, phone)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, err
	}

	if nameHint == "" {
		nameHint = phone
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (tenant_id, name, phone, status, status_confidence)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (tenant_id, phone) DO NOTHING
		RETURNING `+leadColumns+`
	`, tenantID, nameHint, phone, domain.StatusNew)

	lead, err = scanLead(row)
	if errors.Is(err, ErrNotFound) {
		// Lost the insert race; the winner's row exists now.
		return r.GetByPhone(ctx, tenantID, phone)
	}
	return lead, err
}

// Transition loads the lead under FOR UPDATE, asks plan for the outcome and,
// when accepted, applies the status change, the log append and the objection
// upsert in the same transaction. Concurrent changes to one lead serialize
// on the row lock.
func (r *Repository) Transition(ctx context.Context, leadID, tenantID uuid.UUID, plan PlanFunc) (Lead, bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lead, err := scanLead(tx.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1 AND tenant_id = $2
		FOR UPDATE
	`, leadID, tenantID))
	if err != nil {
		return Lead{}, false, err
	}

	status, ok := domain.ParseStatus(lead.Status)
	if !ok {
		return Lead{}, false, errors.New("lead has unknown status: " + lead.Status)
	}

	transition, apply, err := plan(domain.LeadState{
		ID:         lead.ID,
		TenantID:   lead.TenantID,
		Status:     status,
		Confidence: lead.StatusConfidence,
	})
	if err != nil {
		return Lead{}, false, err
	}
	if !apply {
		return lead, false, nil
	}

	now := time.Now().UTC()
	confidence := lead.StatusConfidence
	if transition.Confidence != nil {
		confidence = *transition.Confidence
	}
	value := lead.NegotiatedValue
	if transition.Value != nil {
		value = transition.Value
	}

	updated, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads
		SET status = $1, status_confidence = $2, negotiated_value = $3,
			last_ai_update = $4, updated_at = now()
		WHERE id = $5 AND tenant_id = $6
		RETURNING `+leadColumns+`
	`, transition.To, confidence, value, now, leadID, tenantID))
	if err != nil {
		return Lead{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO lead_status_log (lead_id, tenant_id, previous_status, new_status, origin, reason, acting_user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, leadID, tenantID, transition.From, transition.To, transition.Origin, transition.Reason, transition.ActingUserID)
	if err != nil {
		return Lead{}, false, err
	}

	if transition.Objection != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO objections (tenant_id, name, kind, is_active)
			VALUES ($1, $2, 'custom', true)
			ON CONFLICT (tenant_id, name) DO NOTHING
		`, tenantID, transition.Objection)
		if err != nil {
			return Lead{}, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, false, err
	}
	return updated, true, nil
}

// ListStatusLog returns the status history for one lead, newest first.
func (r *Repository) ListStatusLog(ctx context.Context, leadID, tenantID uuid.UUID, limit int) ([]StatusLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, tenant_id, previous_status, new_status, origin, reason, acting_user_id, created_at
		FROM lead_status_log
		WHERE lead_id = $1 AND tenant_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, leadID, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]StatusLogEntry, 0)
	for rows.Next() {
		var e StatusLogEntry
		if err := rows.Scan(
			&e.ID, &e.LeadID, &e.TenantID, &e.PreviousStatus, &e.NewStatus,
			&e.Origin, &e.Reason, &e.ActingUserID, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
