// Package audit persists one record per classification attempt. The records
// are write-only from the pipeline's perspective; they exist for traceability
// and downstream reporting.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"leadflow_backend/internal/classifier"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Outcome flags for a classification attempt.
const (
	OutcomeProcessed = "processed"
	OutcomeError     = "error"
)

// Record is one stored classification attempt.
type Record struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	LeadID         uuid.UUID
	MessageID      uuid.UUID
	Provider       *string
	RequestPayload []byte
	RawResponse    *string
	Outcome        string
	CreatedAt      time.Time
}

// Repository provides audit record persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an audit repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create stores one audit record.
func (r *Repository) Create(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_records (tenant_id, lead_id, message_id, provider, request_payload, raw_response, outcome)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.TenantID, rec.LeadID, rec.MessageID, rec.Provider, rec.RequestPayload, rec.RawResponse, rec.Outcome)
	return err
}

// Store is the persistence surface the recorder needs. Satisfied by Repository.
type Store interface {
	Create(ctx context.Context, rec Record) error
}

// Recorder builds and stores audit records for classification attempts.
// Persistence failures are logged, never propagated: a lost audit record
// must not fail the classification pipeline.
type Recorder struct {
	store Store
	log   *logger.Logger
}

// NewRecorder creates the audit recorder.
func NewRecorder(store Store, log *logger.Logger) *Recorder {
	return &Recorder{store: store, log: log}
}

// RecordSuccess stores the attempt that produced a result.
func (r *Recorder) RecordSuccess(ctx context.Context, payload classifier.Payload, result classifier.Result) {
	raw := result.Raw
	if raw == "" {
		if data, err := json.Marshal(result); err == nil {
			raw = string(data)
		}
	}
	provider := result.Provider

	r.persist(ctx, Record{
		TenantID:    payload.TenantID,
		LeadID:      payload.LeadID,
		MessageID:   payload.MessageID,
		Provider:    &provider,
		RawResponse: &raw,
		Outcome:     OutcomeProcessed,
	}, payload)
}

// RecordFailure stores the attempt where every provider failed.
func (r *Recorder) RecordFailure(ctx context.Context, payload classifier.Payload, attemptErr error) {
	message := attemptErr.Error()
	r.persist(ctx, Record{
		TenantID:    payload.TenantID,
		LeadID:      payload.LeadID,
		MessageID:   payload.MessageID,
		RawResponse: &message,
		Outcome:     OutcomeError,
	}, payload)
}

func (r *Recorder) persist(ctx context.Context, rec Record, payload classifier.Payload) {
	request, err := json.Marshal(payload)
	if err != nil {
		r.log.Error("audit: payload marshal failed", "error", err, "messageId", payload.MessageID)
		return
	}
	rec.RequestPayload = request

	if err := r.store.Create(ctx, rec); err != nil {
		r.log.Error("audit: record persistence failed", "error", err, "messageId", payload.MessageID)
	}
}
