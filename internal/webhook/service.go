package webhook

import (
	"context"
	"encoding/json"
	"errors"

	leadrepo "leadflow_backend/internal/leads/repository"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
)

// ErrUnauthorized means the webhook token matched no instance. It is the only
// ingestion failure the HTTP boundary surfaces as a non-200.
var ErrUnauthorized = errors.New("unknown webhook token")

// LeadResolver resolves or creates the lead owning a phone number.
// Satisfied by the leads repository.
type LeadResolver interface {
	GetOrCreateByPhone(ctx context.Context, tenantID uuid.UUID, phone, nameHint string) (leadrepo.Lead, error)
}

// Enqueuer dispatches classification jobs. Satisfied by scheduler.Client.
type Enqueuer interface {
	EnqueueClassifyMessage(ctx context.Context, messageID uuid.UUID) error
}

// MessageStore is the persistence surface ingestion needs.
// Satisfied by Repository.
type MessageStore interface {
	GetInstanceByToken(ctx context.Context, token string) (Instance, error)
	FindByExternalID(ctx context.Context, instanceID uuid.UUID, externalID string) (Message, error)
	CreateMessage(ctx context.Context, m Message) (Message, error)
}

// IngestResult reports what ingestion did with one event. All variants are
// acknowledged as success upstream.
type IngestResult struct {
	Stored     bool
	Duplicate  bool
	Skipped    bool
	Classified bool
}

// Service handles inbound provider events.
type Service struct {
	store    MessageStore
	leads    LeadResolver
	enqueuer Enqueuer
	log      *logger.Logger
}

// NewService creates the ingestion service.
func NewService(store MessageStore, leads LeadResolver, enqueuer Enqueuer, log *logger.Logger) *Service {
	return &Service{store: store, leads: leads, enqueuer: enqueuer, log: log}
}

// Ingest processes one raw webhook event. Only an unknown token returns an
// error; every other failure is logged and acknowledged so the upstream
// sender never retries indefinitely.
func (s *Service) Ingest(ctx context.Context, token string, raw []byte) (IngestResult, error) {
	instance, err := s.store.GetInstanceByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			return IngestResult{}, ErrUnauthorized
		}
		s.log.Error("webhook: instance lookup failed", "error", err)
		return IngestResult{Skipped: true}, nil
	}

	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		s.log.Warn("webhook: unparseable event acknowledged", "error", err, "instance", instance.Name)
		return IngestResult{Skipped: true}, nil
	}

	normalized, err := Extract(event)
	if err != nil {
		// Group chats and incomplete envelopes are acknowledged, not stored.
		s.log.Info("webhook: event skipped", "reason", err.Error(), "instance", instance.Name)
		return IngestResult{Skipped: true}, nil
	}

	// Dedup before any write: redelivery of a known event is a success.
	if _, err := s.store.FindByExternalID(ctx, instance.ID, normalized.ExternalID); err == nil {
		return IngestResult{Duplicate: true}, nil
	} else if !errors.Is(err, ErrMessageNotFound) {
		s.log.Error("webhook: dedup lookup failed", "error", err, "externalId", normalized.ExternalID)
		return IngestResult{Skipped: true}, nil
	}

	if normalized.Phone == "" {
		s.log.Warn("webhook: event has no resolvable phone", "chatId", normalized.ChatID, "instance", instance.Name)
		return IngestResult{Skipped: true}, nil
	}

	lead, err := s.leads.GetOrCreateByPhone(ctx, instance.TenantID, normalized.Phone, normalized.PushName)
	if err != nil {
		s.log.Error("webhook: lead resolution failed", "error", err, "phone", normalized.Phone)
		return IngestResult{Skipped: true}, nil
	}

	stored, err := s.store.CreateMessage(ctx, buildMessage(instance, lead.ID, normalized))
	if err != nil {
		if errors.Is(err, ErrDuplicateMessage) {
			return IngestResult{Duplicate: true}, nil
		}
		s.log.Error("webhook: message persistence failed", "error", err, "externalId", normalized.ExternalID)
		return IngestResult{Skipped: true}, nil
	}

	result := IngestResult{Stored: true}
	if normalized.IsClassifiable() {
		if err := s.enqueuer.EnqueueClassifyMessage(ctx, stored.ID); err != nil {
			// The message is stored; a failed enqueue is recoverable later.
			s.log.Error("webhook: classification enqueue failed", "error", err, "messageId", stored.ID)
		} else {
			result.Classified = true
		}
	}
	return result, nil
}

func buildMessage(instance Instance, leadID uuid.UUID, n NormalizedMessage) Message {
	m := Message{
		InstanceID: instance.ID,
		TenantID:   instance.TenantID,
		LeadID:     leadID,
		Direction:  n.Direction,
		Content:    n.Text,
		ExternalID: n.ExternalID,
		ReceivedAt: n.ReceivedAt,
	}
	if n.Media != nil {
		mediaType := n.Media.Type
		m.MediaType = &mediaType
		if n.Media.URL != "" {
			url := n.Media.URL
			m.MediaURL = &url
		}
		if n.Media.Mimetype != "" {
			mime := n.Media.Mimetype
			m.MediaMimetype = &mime
		}
		if n.Media.Hash != "" {
			hash := n.Media.Hash
			m.MediaHash = &hash
		}
		if n.Media.SizeBytes > 0 {
			size := n.Media.SizeBytes
			m.MediaSize = &size
		}
	}
	return m
}
