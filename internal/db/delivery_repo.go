package db

import (
	"context"
	"time"

	"starnotify/internal/notifications/core"
	"starnotify/internal/types"
)

const deliverySchema = `CREATE TABLE IF NOT EXISTS starnotify_deliveries (
	id          TEXT PRIMARY KEY,
	trigger_id  TEXT NOT NULL,
	channel     TEXT NOT NULL,
	source      TEXT NOT NULL,
	result      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL,
	attempt_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS starnotify_deliveries_attempt_at_idx
	ON starnotify_deliveries (attempt_at DESC)`

// DeliveryRepository stores dispatch attempts in starnotify_deliveries.
type DeliveryRepository struct {
	db DBTX
}

var _ core.DeliveryLog = (*DeliveryRepository)(nil)

// NewDeliveryRepository creates a DeliveryRepository.
func NewDeliveryRepository(db DBTX) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// EnsureSchema creates the table and index if they do not exist.
func (r *DeliveryRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, deliverySchema); err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create delivery schema", err)
	}
	return nil
}

// Record inserts rec. Re-recording an id is a no-op.
func (r *DeliveryRepository) Record(ctx context.Context, rec core.DeliveryRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO starnotify_deliveries
		 (id, trigger_id, channel, source, result, error, body, attempt_at, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID,
		string(rec.TriggerID),
		string(rec.Channel),
		string(rec.Source),
		string(rec.Result),
		rec.Error,
		rec.Body,
		rec.AttemptAt,
		rec.DurationMS,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record delivery", err)
	}
	return nil
}

// Recent returns up to limit attempts, newest first.
func (r *DeliveryRepository) Recent(ctx context.Context, limit int) ([]core.DeliveryRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, trigger_id, channel, source, result, error, body, attempt_at, duration_ms
		 FROM starnotify_deliveries
		 ORDER BY attempt_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list deliveries", err)
	}
	defer rows.Close()

	var out []core.DeliveryRecord
	for rows.Next() {
		var (
			rec                             core.DeliveryRecord
			triggerID, channel, src, result string
			attemptAt                       time.Time
		)
		if err := rows.Scan(&rec.ID, &triggerID, &channel, &src, &result, &rec.Error, &rec.Body, &attemptAt, &rec.DurationMS); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan delivery", err)
		}
		rec.TriggerID = types.TriggerID(triggerID)
		rec.Channel = types.ChannelType(channel)
		rec.Source = types.TriggerSource(src)
		rec.Result = core.MetricResult(result)
		rec.AttemptAt = attemptAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate deliveries", err)
	}
	return out, nil
}
