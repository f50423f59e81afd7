package audit

import (
	"context"
	"log/slog"
	"time"
)

type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeFailed       Outcome = "failed"
	OutcomePanicked     Outcome = "panicked"
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeExpired      Outcome = "expired"
	OutcomeRejected     Outcome = "rejected"
)

type Entry struct {
	InteractionID string
	Kind          string
	Name          string
	UserID        string
	UserTag       string
	GuildID       string
	ChannelID     string
	Outcome       Outcome
	ErrorKind     string
	Duration      time.Duration
	OccurredAt    time.Time
}

// Recorder appends entries to the trail. Entries are never updated or removed.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// LogRecorder writes the trail to the process log.
type LogRecorder struct{}

func (LogRecorder) Record(_ context.Context, e Entry) error {
	slog.Info("interaction audited",
		"interaction_id", e.InteractionID,
		"kind", e.Kind,
		"name", e.Name,
		"user_id", e.UserID,
		"user_tag", e.UserTag,
		"guild_id", e.GuildID,
		"channel_id", e.ChannelID,
		"outcome", e.Outcome,
		"error_kind", e.ErrorKind,
		"duration_ms", e.Duration.Milliseconds(),
	)
	return nil
}
