package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrInstanceNotFound means no instance matched the webhook token.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrMessageNotFound means the requested message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrDuplicateMessage means a message with the same external id already
	// exists for the instance.
	ErrDuplicateMessage = errors.New("duplicate message")
)

// Instance is one messaging channel owned by a tenant.
type Instance struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Name         string
	WebhookToken string
}

// Message is one stored conversation message.
type Message struct {
	ID            uuid.UUID
	InstanceID    uuid.UUID
	TenantID      uuid.UUID
	LeadID        uuid.UUID
	Direction     string
	Content       string
	MediaType     *string
	MediaURL      *string
	MediaMimetype *string
	MediaHash     *string
	MediaSize     *int64
	ExternalID    string
	ReceivedAt    time.Time
	CreatedAt     time.Time
}

// Repository provides webhook persistence: instances and messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webhook repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetInstanceByToken resolves the instance owning a webhook token.
func (r *Repository) GetInstanceByToken(ctx context.Context, token string) (Instance, error) {
	var inst Instance
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, webhook_token
		FROM instances WHERE webhook_token = $1
	`, token).Scan(&inst.ID, &inst.TenantID, &inst.Name, &inst.WebhookToken)
	if errors.Is(err, pgx.ErrNoRows) {
		return Instance{}, ErrInstanceNotFound
	}
	return inst, err
}

const messageColumns = `id, instance_id, tenant_id, lead_id, direction, content,
	media_type, media_url, media_mimetype, media_hash, media_size,
	external_message_id, received_at, created_at`

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	err := row.Scan(
		&m.ID, &m.InstanceID, &m.TenantID, &m.LeadID, &m.Direction, &m.Content,
		&m.MediaType, &m.MediaURL, &m.MediaMimetype, &m.MediaHash, &m.MediaSize,
		&m.ExternalID, &m.ReceivedAt, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, ErrMessageNotFound
	}
	return m, err
}

// CreateMessage stores one message. The unique (instance_id,
// external_message_id) index arbitrates concurrent deliveries of the same
// event; losers get ErrDuplicateMessage.
func (r *Repository) CreateMessage(ctx context.Context, m Message) (Message, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO messages (instance_id, tenant_id, lead_id, direction, content,
			media_type, media_url, media_mimetype, media_hash, media_size,
			external_message_id, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (instance_id, external_message_id) DO NOTHING
		RETURNING `+messageColumns+`
	`, m.InstanceID, m.TenantID, m.LeadID, m.Direction, m.Content,
		m.MediaType, m.MediaURL, m.MediaMimetype, m.MediaHash, m.MediaSize,
		m.ExternalID, m.ReceivedAt)

	stored, err := scanMessage(row)
	if errors.Is(err, ErrMessageNotFound) {
		return Message{}, ErrDuplicateMessage
	}
	return stored, err
}

// FindByExternalID looks up a message by its dedup key.
func (r *Repository) FindByExternalID(ctx context.Context, instanceID uuid.UUID, externalID string) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages WHERE instance_id = $1 AND external_message_id = $2
	`, instanceID, externalID))
}

// GetMessage returns one message by id. Used by the classification worker.
func (r *Repository) GetMessage(ctx context.Context, id uuid.UUID) (Message, error) {
	return scanMessage(r.pool.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM messages WHERE id = $1
	`, id))
}

// ListHistory returns the content of the most recent messages for a lead
// before the given message, oldest first. Feeds the classifier context.
func (r *Repository) ListHistory(ctx context.Context, leadID, beforeMessageID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT content FROM (
			SELECT content, received_at
			FROM messages
			WHERE lead_id = $1 AND id <> $2
			ORDER BY received_at DESC
			LIMIT $3
		) recent
		ORDER BY received_at ASC
	`, leadID, beforeMessageID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]string, 0, limit)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		history = append(history, content)
	}
	return history, rows.Err()
}
