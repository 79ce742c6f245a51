package scheduler

import (
	"context"
	"errors"
	"fmt"

	"leadflow_backend/internal/classifier"
	"leadflow_backend/internal/leads/domain"
	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/webhook"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// MessageSource loads messages and conversation history.
// Satisfied by webhook.Repository.
type MessageSource interface {
	GetMessage(ctx context.Context, id uuid.UUID) (webhook.Message, error)
	ListHistory(ctx context.Context, leadID, beforeMessageID uuid.UUID, limit int) ([]string, error)
}

// LeadSource loads the lead snapshot for the classifier payload.
// Satisfied by the leads repository.
type LeadSource interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (leadrepo.Lead, error)
}

// StatusApplier feeds classification results into the state machine.
// Satisfied by the leads service.
type StatusApplier interface {
	ApplyAutomatic(ctx context.Context, leadID, tenantID uuid.UUID, change domain.AutomaticChange) (leadrepo.Lead, bool, error)
}

// Classifier runs the provider chain. Satisfied by classifier.Chain.
type Classifier interface {
	Classify(ctx context.Context, payload classifier.Payload) (classifier.Result, error)
}

// Auditor records classification attempts. Satisfied by audit.Recorder.
type Auditor interface {
	RecordSuccess(ctx context.Context, payload classifier.Payload, result classifier.Result)
	RecordFailure(ctx context.Context, payload classifier.Payload, attemptErr error)
}

// Worker consumes classification jobs.
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	messages    MessageSource
	leads       LeadSource
	machine     StatusApplier
	chain       Classifier
	auditor     Auditor
	historySize int
	log         *logger.Logger
}

// WorkerDeps bundles the collaborators the worker needs.
type WorkerDeps struct {
	Messages MessageSource
	Leads    LeadSource
	Machine  StatusApplier
	Chain    Classifier
	Auditor  Auditor
}

func NewWorker(cfg config.SchedulerConfig, historySize int, deps WorkerDeps, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:      server,
		mux:         mux,
		messages:    deps.Messages,
		leads:       deps.Leads,
		machine:     deps.Machine,
		chain:       deps.Chain,
		auditor:     deps.Auditor,
		historySize: historySize,
		log:         log,
	}

	mux.HandleFunc(TaskClassifyMessage, w.handleClassifyMessage)

	return w, nil
}

// Run serves the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

// handleClassifyMessage runs one message through the provider chain and
// feeds the result into the state machine. Every attempt, success or
// failure, leaves one audit record. A chain with no available provider
// completes the job without retry; redispatch is a manual operation.
func (w *Worker) handleClassifyMessage(ctx context.Context, task *asynq.Task) error {
	taskPayload, err := ParseClassifyMessagePayload(task)
	if err != nil {
		return err
	}
	messageID, err := uuid.Parse(taskPayload.MessageID)
	if err != nil {
		return err
	}

	msg, err := w.messages.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, webhook.ErrMessageNotFound) {
			// Purged or never committed; nothing to classify.
			return nil
		}
		return err
	}

	lead, err := w.leads.GetByID(ctx, msg.LeadID, msg.TenantID)
	if err != nil {
		if errors.Is(err, leadrepo.ErrNotFound) {
			return nil
		}
		return err
	}

	history, err := w.messages.ListHistory(ctx, msg.LeadID, msg.ID, w.historySize)
	if err != nil {
		w.log.Error("classify: history load failed", "error", err, "messageId", msg.ID)
		history = nil
	}

	payload := classifier.Payload{
		TenantID:    msg.TenantID,
		LeadID:      lead.ID,
		MessageID:   msg.ID,
		LeadName:    lead.Name,
		LeadPhone:   lead.Phone,
		LeadStatus:  lead.Status,
		MessageText: msg.Content,
		History:     history,
	}

	result, err := w.chain.Classify(ctx, payload)
	if err != nil {
		w.auditor.RecordFailure(ctx, payload, err)
		if errors.Is(err, classifier.ErrNoProviderAvailable) {
			w.log.Error("classify: all providers failed", "messageId", msg.ID, "error", err)
			return nil
		}
		return err
	}
	w.auditor.RecordSuccess(ctx, payload, result)

	status, _ := domain.ParseStatus(result.Status)
	_, applied, err := w.machine.ApplyAutomatic(ctx, lead.ID, msg.TenantID, domain.AutomaticChange{
		Status:      status,
		Confidence:  result.Confidence,
		Value:       result.NegotiatedValue,
		Objection:   result.Objection,
		Reason:      result.Reason,
		MessageText: msg.Content,
	})
	if err != nil {
		return err
	}

	w.log.ClassificationEvent(msg.ID.String(), result.Provider, result.Status, result.Confidence, applied)
	return nil
}
