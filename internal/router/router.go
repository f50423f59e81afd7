package router

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/audit"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/session"
)

const auditTimeout = 5 * time.Second

type CommandHandler func(ctx context.Context, in discord.Interaction) error

type Router struct {
	sessions *session.Manager
	recorder audit.Recorder
	timeout  time.Duration

	mu       sync.RWMutex
	commands map[string]CommandHandler

	// inflight guards closing and wg.Add so no Add races Shutdown's Wait.
	inflight sync.Mutex
	closing  bool
	wg       sync.WaitGroup
}

func New(sessions *session.Manager, recorder audit.Recorder, timeout time.Duration) *Router {
	return &Router{
		sessions: sessions,
		recorder: recorder,
		timeout:  timeout,
		commands: make(map[string]CommandHandler),
	}
}

func (r *Router) Handle(name string, h CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[name] = h
}

// Dispatch handles in on its own goroutine and returns immediately.
func (r *Router) Dispatch(in discord.Interaction) {
	r.inflight.Lock()
	if r.closing {
		r.inflight.Unlock()
		slog.Warn("dropping interaction during shutdown", "interaction_id", in.ID, "name", in.Name)
		return
	}
	r.wg.Add(1)
	r.inflight.Unlock()
	go func() {
		defer r.wg.Done()
		r.run(in)
	}()
}

// Shutdown stops accepting interactions and waits for in-flight ones.
func (r *Router) Shutdown(ctx context.Context) error {
	r.inflight.Lock()
	r.closing = true
	r.inflight.Unlock()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("router shutdown: %w", ctx.Err())
	}
}

func (r *Router) run(in discord.Interaction) {
	started := time.Now()
	entry := audit.Entry{
		InteractionID: in.ID,
		Kind:          string(in.Kind),
		Name:          in.Name,
		UserID:        in.UserID,
		UserTag:       in.UserTag,
		GuildID:       in.GuildID,
		ChannelID:     in.ChannelID,
		OccurredAt:    started.UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic while handling interaction", "interaction_id", in.ID, "name", in.Name, "panic", rec, "stack", string(debug.Stack()))
			entry.Outcome = audit.OutcomePanicked
			entry.ErrorKind = string(apperror.KindInternal)
			r.replyError(ctx, in, apperror.KindInternal, nil)
		}
		entry.Duration = time.Since(started)
		r.record(entry)
	}()

	var (
		outcome audit.Outcome
		err     error
	)
	switch in.Kind {
	case discord.InteractionCommand:
		outcome, err = r.runCommand(ctx, in)
	case discord.InteractionAction:
		outcome, err = r.runAction(ctx, in)
	default:
		outcome = audit.OutcomeIgnored
	}
	entry.Outcome = outcome
	if err != nil {
		kind := apperror.KindOf(err)
		entry.Outcome = audit.OutcomeFailed
		entry.ErrorKind = string(kind)
		slog.Error("interaction failed", "interaction_id", in.ID, "kind", in.Kind, "name", in.Name, "user_id", in.UserID, "error_kind", kind, "error", err)
		r.replyError(ctx, in, kind, err)
	}
}

func (r *Router) runCommand(ctx context.Context, in discord.Interaction) (audit.Outcome, error) {
	r.mu.RLock()
	h, ok := r.commands[in.Name]
	r.mu.RUnlock()
	if !ok {
		slog.Debug("ignoring unknown command", "name", in.Name)
		return audit.OutcomeIgnored, nil
	}
	return audit.OutcomeOK, h(ctx, in)
}

func (r *Router) runAction(ctx context.Context, in discord.Interaction) (audit.Outcome, error) {
	id, action, ok := session.ParseCustomID(in.Name)
	if !ok {
		slog.Debug("ignoring unknown component", "custom_id", in.Name)
		return audit.OutcomeIgnored, nil
	}
	out, err := r.sessions.Dispatch(ctx, id, session.Event{
		Action:    action,
		Actor:     session.Actor{UserID: in.UserID, ChannelID: in.ChannelID},
		Responder: in.Responder,
	})
	if err != nil {
		return audit.OutcomeFailed, err
	}
	var notice string
	switch out {
	case session.OutcomeApplied:
		return audit.OutcomeOK, nil
	case session.OutcomeUnauthorized:
		notice = msgUnauthorized
	case session.OutcomeExpired:
		notice = msgExpired
	default:
		notice = msgRejected
	}
	r.notify(ctx, in, notice)
	return auditOutcome(out), nil
}

func auditOutcome(o session.Outcome) audit.Outcome {
	switch o {
	case session.OutcomeUnauthorized:
		return audit.OutcomeUnauthorized
	case session.OutcomeExpired:
		return audit.OutcomeExpired
	default:
		return audit.OutcomeRejected
	}
}

func (r *Router) notify(ctx context.Context, in discord.Interaction, content string) {
	if in.Responder == nil {
		return
	}
	reply := discord.Reply{Content: content, Ephemeral: true}
	var err error
	if in.Responder.Acknowledged() {
		_, err = in.Responder.FollowUp(ctx, reply)
	} else {
		_, err = in.Responder.Respond(ctx, reply)
	}
	if err != nil {
		slog.Warn("failed to send notice", "interaction_id", in.ID, "error", err)
	}
}

func (r *Router) replyError(ctx context.Context, in discord.Interaction, kind apperror.Kind, cause error) {
	if in.Responder == nil {
		return
	}
	// the dispatch context may already be spent when the failure was a timeout
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
	}
	desc, ok := apperror.MessageOf(cause)
	if !ok {
		desc = errorMessage(kind)
	}
	reply := discord.Reply{
		Embeds: []discord.Embed{{
			Title:       errorTitle,
			Description: desc,
			Color:       errorColor,
			Footer:      errorFooter,
		}},
		Ephemeral: true,
	}
	var err error
	switch {
	case !in.Responder.Acknowledged():
		_, err = in.Responder.Respond(ctx, reply)
	case in.Kind == discord.InteractionCommand:
		// replaces the deferred placeholder
		_, err = in.Responder.Respond(ctx, reply)
	default:
		_, err = in.Responder.FollowUp(ctx, reply)
	}
	if err != nil {
		slog.Error("failed to send error reply", "interaction_id", in.ID, "error", err)
	}
}

func (r *Router) record(e audit.Entry) {
	if r.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := r.recorder.Record(ctx, e); err != nil {
		slog.Error("failed to record audit entry", "interaction_id", e.InteractionID, "error", err)
	}
}
