package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foxseedlab/kiosko/internal/discord"
)

const expiryCleanupTimeout = 10 * time.Second

// Controls strips interactive components from the message hosting a session.
type Controls interface {
	ClearComponents(ctx context.Context, channelID, messageID string) error
}

type Manager struct {
	controls Controls
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*liveSession
}

type liveSession struct {
	mu       sync.Mutex
	snap     Session
	table    ActionTable
	filter   func(Session, Actor) bool
	onExpire func(context.Context, Session) error
	timer    *time.Timer
	closed   bool
}

func NewManager(controls Controls) *Manager {
	return &Manager{
		controls: controls,
		now:      time.Now,
		sessions: make(map[string]*liveSession),
	}
}

func (m *Manager) Create(sp Spec) (string, error) {
	if err := sp.validate(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	ls := &liveSession{
		snap: Session{
			ID:        id,
			Kind:      sp.Kind,
			OwnerID:   sp.OwnerID,
			GuildID:   sp.GuildID,
			ChannelID: sp.ChannelID,
			CreatedAt: m.now(),
			TTL:       sp.TTL,
			State:     sp.State,
			Items:     append([]string(nil), sp.Items...),
			Data:      sp.Data,
		}.clone(),
		table:    sp.Table,
		filter:   sp.ActorFilter,
		onExpire: sp.OnExpire,
	}

	ls.mu.Lock()
	m.mu.Lock()
	m.sessions[id] = ls
	m.mu.Unlock()
	ls.timer = time.AfterFunc(sp.TTL, func() { m.expire(context.Background(), id) })
	ls.mu.Unlock()

	slog.Debug("session created", "session_id", id, "kind", sp.Kind, "owner_id", sp.OwnerID, "state", sp.State, "ttl", sp.TTL)
	return id, nil
}

// Bind attaches the message that hosts the session's controls.
func (m *Manager) Bind(id, channelID, messageID string) error {
	ls, ok := m.lookup(id)
	if !ok {
		return fmt.Errorf("bind session %s: %w", id, ErrUnknownSession)
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if channelID != "" {
		ls.snap.ChannelID = channelID
	}
	ls.snap.MessageID = messageID
	return nil
}

var ErrUnknownSession = errors.New("unknown session")

func (m *Manager) Get(id string) (Session, bool) {
	ls, ok := m.lookup(id)
	if !ok {
		return Session{}, false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.closed {
		return Session{}, false
	}
	return ls.snap.clone(), true
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Dispatch applies one action. The returned error is set only when the transition's effect failed.
func (m *Manager) Dispatch(ctx context.Context, id string, ev Event) (Outcome, error) {
	ls, ok := m.lookup(id)
	if !ok {
		return OutcomeExpired, nil
	}
	ls.mu.Lock()
	if ls.closed {
		ls.mu.Unlock()
		return OutcomeExpired, nil
	}
	if !m.now().Before(ls.snap.ExpiresAt()) {
		m.closeLocked(ls, StateExpired)
		snap := ls.snap.clone()
		ls.mu.Unlock()
		m.runExpiry(ctx, ls, snap)
		return OutcomeExpired, nil
	}
	defer ls.mu.Unlock()

	if !ls.authorized(ev.Actor) {
		slog.Info("unauthorized session action", "session_id", id, "user_id", ev.Actor.UserID, "owner_id", ls.snap.OwnerID, "action", ev.Action)
		return OutcomeUnauthorized, nil
	}
	tr, ok := ls.table[ls.snap.State][ev.Action]
	if !ok {
		return OutcomeRejected, nil
	}

	next := ls.snap.clone()
	next.State = tr.To
	if tr.Step != 0 && len(next.Items) > 0 {
		n := len(next.Items)
		next.Index = ((next.Index+tr.Step)%n + n) % n
	}

	err := runEffect(ctx, tr.Effect, &Call{Next: &next, Event: ev})
	switch {
	case errors.Is(err, discord.ErrMessageNotFound):
		slog.Info("session message already gone", "session_id", id, "action", ev.Action)
		ls.snap = next
		m.closeLocked(ls, StateDeleted)
		return OutcomeApplied, nil
	case err != nil && !tr.To.Terminal():
		slog.Warn("session effect failed", "session_id", id, "action", ev.Action, "error", err)
		return OutcomeRejected, err
	}

	ls.snap = next
	if tr.To.Terminal() {
		m.closeLocked(ls, tr.To)
	}
	slog.Debug("session transitioned", "session_id", id, "action", ev.Action, "state", next.State, "index", next.Index)
	return OutcomeApplied, err
}

// Discard ends a session silently, without touching its message.
func (m *Manager) Discard(id string) {
	ls, ok := m.lookup(id)
	if !ok {
		return
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if !ls.closed {
		m.closeLocked(ls, StateCancelled)
	}
}

// ExpireAll expires every live session, used on shutdown.
func (m *Manager) ExpireAll(ctx context.Context) {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.expire(ctx, id)
	}
}

func (m *Manager) expire(ctx context.Context, id string) {
	ls, ok := m.lookup(id)
	if !ok {
		return
	}
	ls.mu.Lock()
	if ls.closed {
		ls.mu.Unlock()
		return
	}
	m.closeLocked(ls, StateExpired)
	snap := ls.snap.clone()
	ls.mu.Unlock()

	slog.Debug("session expired", "session_id", id, "kind", snap.Kind)
	m.runExpiry(ctx, ls, snap)
}

func (m *Manager) runExpiry(ctx context.Context, ls *liveSession, snap Session) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in session expiry", "session_id", snap.ID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, expiryCleanupTimeout)
	defer cancel()

	var err error
	switch {
	case ls.onExpire != nil:
		err = ls.onExpire(ctx, snap)
	case snap.MessageID != "" && m.controls != nil:
		err = m.controls.ClearComponents(ctx, snap.ChannelID, snap.MessageID)
	}
	if err != nil {
		slog.Debug("session expiry cleanup skipped", "session_id", snap.ID, "error", err)
	}
}

func (m *Manager) closeLocked(ls *liveSession, final State) {
	ls.closed = true
	ls.snap.State = final
	if ls.timer != nil {
		ls.timer.Stop()
	}
	m.mu.Lock()
	delete(m.sessions, ls.snap.ID)
	m.mu.Unlock()
}

func (m *Manager) lookup(id string) (*liveSession, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.sessions[id]
	return ls, ok
}

func (ls *liveSession) authorized(actor Actor) bool {
	if actor.UserID == ls.snap.OwnerID {
		return true
	}
	return ls.snap.Kind == KindConfirm && ls.filter != nil && ls.filter(ls.snap.clone(), actor)
}

func runEffect(ctx context.Context, effect Effect, call *Call) (err error) {
	if effect == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in session effect: %v", r)
		}
	}()
	return effect(ctx, call)
}
