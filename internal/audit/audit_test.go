package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"leadflow_backend/internal/classifier"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	records []Record
	fail    error
}

func (f *fakeStore) Create(_ context.Context, rec Record) error {
	if f.fail != nil {
		return f.fail
	}
	f.records = append(f.records, rec)
	return nil
}

func samplePayload() classifier.Payload {
	return classifier.Payload{
		TenantID:    uuid.New(),
		LeadID:      uuid.New(),
		MessageID:   uuid.New(),
		LeadName:    "Maria",
		MessageText: "quanto fica com desconto?",
	}
}

func TestRecordSuccess(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, logger.New("development"))
	payload := samplePayload()

	recorder.RecordSuccess(context.Background(), payload, classifier.Result{
		Status:     "negotiation",
		Confidence: 0.8,
		Provider:   "gemini",
		Raw:        `{"status":"negotiation"}`,
	})

	if len(store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.Outcome != OutcomeProcessed {
		t.Errorf("outcome = %q, want processed", rec.Outcome)
	}
	if rec.Provider == nil || *rec.Provider != "gemini" {
		t.Errorf("provider = %v, want gemini", rec.Provider)
	}
	if rec.RawResponse == nil || *rec.RawResponse != `{"status":"negotiation"}` {
		t.Errorf("raw response = %v", rec.RawResponse)
	}

	var stored classifier.Payload
	if err := json.Unmarshal(rec.RequestPayload, &stored); err != nil {
		t.Fatalf("request payload is not valid JSON: %v", err)
	}
	if stored.MessageID != payload.MessageID {
		t.Error("request payload must capture the full classification request")
	}
}

func TestRecordFailure(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, logger.New("development"))

	recorder.RecordFailure(context.Background(), samplePayload(),
		errors.New("no provider available: gemini: timeout"))

	if len(store.records) != 1 {
		t.Fatalf("records = %d, want 1", len(store.records))
	}
	rec := store.records[0]
	if rec.Outcome != OutcomeError {
		t.Errorf("outcome = %q, want error", rec.Outcome)
	}
	if rec.Provider != nil {
		t.Errorf("provider = %v, want nil when no provider answered", rec.Provider)
	}
	if rec.RawResponse == nil || *rec.RawResponse == "" {
		t.Error("the aggregated error message must be stored")
	}
}

func TestRecorderSwallowsStoreFailure(t *testing.T) {
	store := &fakeStore{fail: errors.New("db down")}
	recorder := NewRecorder(store, logger.New("development"))

	// Must not panic or propagate; the pipeline continues regardless.
	recorder.RecordSuccess(context.Background(), samplePayload(), classifier.Result{Provider: "rules"})
}
