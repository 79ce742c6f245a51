package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadflow_backend/internal/classifier"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/webhook"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeMessages struct {
	message webhook.Message
	history []string
}

func (f *fakeMessages) GetMessage(_ context.Context, id uuid.UUID) (webhook.Message, error) {
	if f.message.ID != id {
		return webhook.Message{}, webhook.ErrMessageNotFound
	}
	return f.message, nil
}

func (f *fakeMessages) ListHistory(_ context.Context, _, _ uuid.UUID, _ int) ([]string, error) {
	return f.history, nil
}

type fakeLeadSource struct {
	lead leadrepo.Lead
}

func (f *fakeLeadSource) GetByID(_ context.Context, id, tenantID uuid.UUID) (leadrepo.Lead, error) {
	if f.lead.ID != id || f.lead.TenantID != tenantID {
		return leadrepo.Lead{}, leadrepo.ErrNotFound
	}
	return f.lead, nil
}

type fakeMachine struct {
	changes []domain.AutomaticChange
	applied bool
}

func (f *fakeMachine) ApplyAutomatic(_ context.Context, _, _ uuid.UUID, change domain.AutomaticChange) (leadrepo.Lead, bool, error) {
	f.changes = append(f.changes, change)
	return leadrepo.Lead{}, f.applied, nil
}

type fakeChain struct {
	result classifier.Result
	err    error
}

func (f *fakeChain) Classify(_ context.Context, _ classifier.Payload) (classifier.Result, error) {
	return f.result, f.err
}

type fakeAuditor struct {
	successes []classifier.Result
	failures  []error
}

func (f *fakeAuditor) RecordSuccess(_ context.Context, _ classifier.Payload, result classifier.Result) {
	f.successes = append(f.successes, result)
}

func (f *fakeAuditor) RecordFailure(_ context.Context, _ classifier.Payload, err error) {
	f.failures = append(f.failures, err)
}

func newWorkerFixture(chain *fakeChain) (*Worker, *fakeMessages, *fakeMachine, *fakeAuditor) {
	leadID := uuid.New()
	tenantID := uuid.New()
	messages := &fakeMessages{
		message: webhook.Message{
			ID:         uuid.New(),
			TenantID:   tenantID,
			LeadID:     leadID,
			Direction:  "in",
			Content:    "ainda negociando",
			ReceivedAt: time.Now().UTC(),
		},
		history: []string{"oi", "quanto custa?"},
	}
	machine := &fakeMachine{applied: true}
	auditor := &fakeAuditor{}

	w := &Worker{
		messages:    messages,
		leads:       &fakeLeadSource{lead: leadrepo.Lead{ID: leadID, TenantID: tenantID, Name: "Maria", Phone: "+5511999990000", Status: "interested"}},
		machine:     machine,
		chain:       chain,
		auditor:     auditor,
		historySize: 10,
		log:         logger.New("development"),
	}
	return w, messages, machine, auditor
}

func classifyTask(t *testing.T, messageID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewClassifyMessageTask(ClassifyMessagePayload{MessageID: messageID.String()})
	if err != nil {
		t.Fatal(err)
	}
	return task
}

func TestHandleClassifyMessageAppliesResult(t *testing.T) {
	chain := &fakeChain{result: classifier.Result{
		Status:     "negotiation",
		Confidence: 0.72,
		Provider:   "gemini",
	}}
	w, messages, machine, auditor := newWorkerFixture(chain)

	err := w.handleClassifyMessage(context.Background(), classifyTask(t, messages.message.ID))
	if err != nil {
		t.Fatalf("handleClassifyMessage: %v", err)
	}

	if len(auditor.successes) != 1 {
		t.Fatalf("success audits = %d, want 1", len(auditor.successes))
	}
	if len(machine.changes) != 1 {
		t.Fatalf("applied changes = %d, want 1", len(machine.changes))
	}
	change := machine.changes[0]
	if change.Status != domain.StatusNegotiation {
		t.Errorf("status = %q, want negotiation", change.Status)
	}
	if change.MessageText != "ainda negociando" {
		t.Errorf("message text = %q, want the triggering message", change.MessageText)
	}
}

func TestHandleClassifyMessageNoProviderCompletesWithoutRetry(t *testing.T) {
	chain := &fakeChain{err: classifier.ErrNoProviderAvailable}
	w, messages, machine, auditor := newWorkerFixture(chain)

	err := w.handleClassifyMessage(context.Background(), classifyTask(t, messages.message.ID))
	if err != nil {
		t.Fatalf("a failed chain must not trigger a retry, got %v", err)
	}

	if len(auditor.failures) != 1 {
		t.Fatalf("failure audits = %d, want 1", len(auditor.failures))
	}
	if !errors.Is(auditor.failures[0], classifier.ErrNoProviderAvailable) {
		t.Errorf("recorded error = %v", auditor.failures[0])
	}
	if len(machine.changes) != 0 {
		t.Error("the state machine must not run when classification failed")
	}
}

func TestHandleClassifyMessageMissingMessage(t *testing.T) {
	chain := &fakeChain{}
	w, _, machine, auditor := newWorkerFixture(chain)

	err := w.handleClassifyMessage(context.Background(), classifyTask(t, uuid.New()))
	if err != nil {
		t.Fatalf("a purged message must complete the job, got %v", err)
	}
	if len(machine.changes) != 0 || len(auditor.successes) != 0 || len(auditor.failures) != 0 {
		t.Error("nothing may be classified for a missing message")
	}
}
