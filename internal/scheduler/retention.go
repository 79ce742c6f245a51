package scheduler

import (
	"context"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// purgedTables are swept by retention, in no particular order. Leads and
// objections are never purged.
var purgedTables = []string{"messages", "audit_records", "lead_status_log"}

// Purger deletes aged records per tenant on a fixed interval.
type Purger struct {
	pool        *pgxpool.Pool
	interval    time.Duration
	defaultDays int
	batchSize   int
	log         *logger.Logger
}

// NewPurger creates the retention purge runner.
func NewPurger(pool *pgxpool.Pool, cfg config.RetentionConfig, log *logger.Logger) *Purger {
	interval := cfg.GetRetentionInterval()
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	defaultDays := cfg.GetRetentionDefaultDays()
	if defaultDays <= 0 {
		defaultDays = 30
	}
	batchSize := cfg.GetRetentionBatchSize()
	if batchSize <= 0 {
		batchSize = 500
	}

	return &Purger{
		pool:        pool,
		interval:    interval,
		defaultDays: defaultDays,
		batchSize:   batchSize,
		log:         log,
	}
}

// Run sweeps once immediately, then on every tick until the context is
// cancelled.
func (p *Purger) Run(ctx context.Context) error {
	p.sweep(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

type tenantRetention struct {
	ID   uuid.UUID
	Days int
}

func (p *Purger) sweep(ctx context.Context) {
	tenants, err := p.listTenants(ctx)
	if err != nil {
		p.log.Error("retention: tenant listing failed", "error", err)
		return
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return
		}
		cutoff := time.Now().UTC().AddDate(0, 0, -tenant.Days)
		for _, table := range purgedTables {
			deleted, err := p.purgeTable(ctx, table, tenant.ID, cutoff)
			if err != nil {
				p.log.Error("retention: purge failed", "error", err, "table", table, "tenantId", tenant.ID)
				continue
			}
			if deleted > 0 {
				p.log.Info("retention: purged records", "table", table, "tenantId", tenant.ID, "deleted", deleted)
			}
		}
	}
}

func (p *Purger) listTenants(ctx context.Context) ([]tenantRetention, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, COALESCE(retention_days, $1) FROM tenants`, p.defaultDays)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []tenantRetention
	for rows.Next() {
		var t tenantRetention
		if err := rows.Scan(&t.ID, &t.Days); err != nil {
			return nil, err
		}
		if t.Days <= 0 {
			t.Days = p.defaultDays
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// purgeTable deletes in small batches so the sweep never holds long locks
// that would block live ingestion.
func (p *Purger) purgeTable(ctx context.Context, table string, tenantID uuid.UUID, cutoff time.Time) (int64, error) {
	var total int64
	for {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}

		// table comes from the fixed purgedTables list, never from input.
		tag, err := p.pool.Exec(ctx, `
			DELETE FROM `+table+`
			WHERE id IN (
				SELECT id FROM `+table+`
				WHERE tenant_id = $1 AND created_at < $2
				LIMIT $3
			)
		`, tenantID, cutoff, p.batchSize)
		if err != nil {
			return total, err
		}

		total += tag.RowsAffected()
		if tag.RowsAffected() < int64(p.batchSize) {
			return total, nil
		}
	}
}
