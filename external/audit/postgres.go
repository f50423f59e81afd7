package audit

import (
	"context"

	"github.com/foxseedlab/kiosko/internal/audit"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

func (r *PostgresRecorder) Record(ctx context.Context, e audit.Entry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO audit_entries
		 (interaction_id, kind, name, user_id, user_tag, guild_id, channel_id, outcome, error_kind, duration_ms, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.InteractionID, e.Kind, e.Name, e.UserID, e.UserTag, e.GuildID, e.ChannelID,
		string(e.Outcome), e.ErrorKind, e.Duration.Milliseconds(), e.OccurredAt)
	return err
}

func (r *PostgresRecorder) Shutdown() error {
	r.pool.Close()
	return nil
}
