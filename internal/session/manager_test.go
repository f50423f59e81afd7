package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foxseedlab/kiosko/internal/discord"
)

type mockControls struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (m *mockControls) ClearComponents(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, channelID+"/"+messageID)
	return m.err
}

func (m *mockControls) clearedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cleared)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(controls Controls) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	m := NewManager(controls)
	m.now = clock.Now
	return m, clock
}

func owner(id string) Event {
	return Event{Actor: Actor{UserID: id, ChannelID: "chan-1"}}
}

func act(ev Event, a Action) Event {
	ev.Action = a
	return ev
}

func createCarousel(t *testing.T, m *Manager, items []string, hooks CarouselHooks) string {
	t.Helper()
	id, err := m.Create(Spec{
		Kind:      KindCarousel,
		OwnerID:   "u1",
		ChannelID: "chan-1",
		State:     StateViewing,
		TTL:       time.Hour,
		Items:     items,
		Table:     CarouselTable(hooks),
	})
	if err != nil {
		t.Fatalf("create carousel: %v", err)
	}
	return id
}

func mustDispatch(t *testing.T, m *Manager, id string, ev Event, want Outcome) {
	t.Helper()
	got, err := m.Dispatch(context.Background(), id, ev)
	if err != nil {
		t.Fatalf("dispatch %s: unexpected error: %v", ev.Action, err)
	}
	if got != want {
		t.Fatalf("dispatch %s: outcome = %s, want %s", ev.Action, got, want)
	}
}

func TestCarousel_NextWrapsAround(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	var rendered []string
	id := createCarousel(t, m, []string{"a", "b", "c"}, CarouselHooks{
		Render: func(_ context.Context, call *Call) error {
			rendered = append(rendered, call.Next.Current())
			return nil
		},
	})

	for range 3 {
		mustDispatch(t, m, id, act(owner("u1"), ActionNext), OutcomeApplied)
	}
	s, ok := m.Get(id)
	if !ok {
		t.Fatal("session should still be live")
	}
	if s.Index != 0 || s.Current() != "a" {
		t.Fatalf("index = %d (%q), want 0 (a)", s.Index, s.Current())
	}
	if fmt.Sprint(rendered) != "[b c a]" {
		t.Fatalf("rendered = %v, want [b c a]", rendered)
	}
}

func TestCarousel_PrevFromFirstWrapsToLast(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	id := createCarousel(t, m, []string{"a", "b", "c"}, CarouselHooks{})

	mustDispatch(t, m, id, act(owner("u1"), ActionPrev), OutcomeApplied)
	s, _ := m.Get(id)
	if s.Index != 2 {
		t.Fatalf("index = %d, want 2", s.Index)
	}
}

func TestCarousel_NextThenPrevIsIdentity(t *testing.T) {
	for n := 1; n <= 5; n++ {
		items := make([]string, n)
		for i := range items {
			items[i] = fmt.Sprintf("item-%d", i)
		}
		m, _ := newTestManager(&mockControls{})
		id := createCarousel(t, m, items, CarouselHooks{})
		for start := 0; start < n; start++ {
			before, _ := m.Get(id)
			mustDispatch(t, m, id, act(owner("u1"), ActionNext), OutcomeApplied)
			mid, _ := m.Get(id)
			if mid.Index < 0 || mid.Index >= n {
				t.Fatalf("n=%d: index %d out of range", n, mid.Index)
			}
			mustDispatch(t, m, id, act(owner("u1"), ActionPrev), OutcomeApplied)
			after, _ := m.Get(id)
			if after.Index != before.Index {
				t.Fatalf("n=%d: next+prev moved index %d -> %d", n, before.Index, after.Index)
			}
			mustDispatch(t, m, id, act(owner("u1"), ActionNext), OutcomeApplied)
		}
	}
}

func TestCarousel_SingleItemNavigationIsNoop(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	id := createCarousel(t, m, []string{"only"}, CarouselHooks{})
	for _, a := range []Action{ActionNext, ActionPrev, ActionNext} {
		mustDispatch(t, m, id, act(owner("u1"), a), OutcomeApplied)
		s, _ := m.Get(id)
		if s.Index != 0 {
			t.Fatalf("after %s index = %d, want 0", a, s.Index)
		}
	}
}

func TestCarousel_SaveStaysViewing(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	var saved string
	id := createCarousel(t, m, []string{"a", "b"}, CarouselHooks{
		Save: func(_ context.Context, call *Call) error {
			saved = call.Next.Current()
			return nil
		},
	})
	mustDispatch(t, m, id, act(owner("u1"), ActionNext), OutcomeApplied)
	mustDispatch(t, m, id, act(owner("u1"), ActionSave), OutcomeApplied)
	s, _ := m.Get(id)
	if saved != "b" || s.State != StateViewing {
		t.Fatalf("saved=%q state=%s, want b viewing", saved, s.State)
	}
}

func TestCarousel_DeleteIsTerminal(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	deletes := 0
	id := createCarousel(t, m, []string{"a"}, CarouselHooks{
		Delete: func(context.Context, *Call) error {
			deletes++
			return nil
		},
	})
	mustDispatch(t, m, id, act(owner("u1"), ActionDelete), OutcomeApplied)
	if _, ok := m.Get(id); ok {
		t.Fatal("deleted session should be gone")
	}
	mustDispatch(t, m, id, act(owner("u1"), ActionDelete), OutcomeExpired)
	if deletes != 1 {
		t.Fatalf("delete effect ran %d times, want 1", deletes)
	}
}

func TestDispatch_NonOwnerIsUnauthorizedAndDoesNotMutate(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	called := false
	effect := func(context.Context, *Call) error {
		called = true
		return nil
	}
	id := createCarousel(t, m, []string{"a", "b", "c"}, CarouselHooks{Render: effect, Save: effect, Delete: effect})

	for _, a := range []Action{ActionNext, ActionPrev, ActionSave, ActionDelete} {
		mustDispatch(t, m, id, act(owner("intruder"), a), OutcomeUnauthorized)
	}
	s, ok := m.Get(id)
	if !ok || s.Index != 0 || s.State != StateViewing {
		t.Fatalf("session mutated by non-owner: ok=%v index=%d state=%s", ok, s.Index, s.State)
	}
	if called {
		t.Fatal("effect must not run for a non-owner")
	}
}

func TestDispatch_AfterTTLIsExpiredWithoutEffect(t *testing.T) {
	controls := &mockControls{}
	m, clock := newTestManager(controls)
	called := false
	id, err := m.Create(Spec{
		Kind:    KindConfirm,
		OwnerID: "u1",
		State:   StatePending,
		TTL:     time.Minute,
		Table: ConfirmTable(ConfirmHooks{Confirm: func(context.Context, *Call) error {
			called = true
			return nil
		}}),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.Bind(id, "chan-1", "msg-1"); err != nil {
		t.Fatalf("bind: %v", err)
	}

	clock.Advance(time.Minute)
	mustDispatch(t, m, id, act(owner("u1"), ActionConfirm), OutcomeExpired)
	if called {
		t.Fatal("guarded effect ran after expiry")
	}
	if _, ok := m.Get(id); ok {
		t.Fatal("expired session should be terminal")
	}
	if controls.clearedCount() != 1 {
		t.Fatalf("controls cleared %d times, want 1", controls.clearedCount())
	}
	mustDispatch(t, m, id, act(owner("u1"), ActionConfirm), OutcomeExpired)
}

func TestDispatch_UnknownSessionIsExpired(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	mustDispatch(t, m, "missing", act(owner("u1"), ActionNext), OutcomeExpired)
}

func TestDispatch_ActionNotInTableIsRejected(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	id := createCarousel(t, m, []string{"a"}, CarouselHooks{})
	mustDispatch(t, m, id, act(owner("u1"), ActionConfirm), OutcomeRejected)
	if s, ok := m.Get(id); !ok || s.State != StateViewing {
		t.Fatal("rejected action must not change the session")
	}
}

func TestConfirm_TimerExpiryNeverRunsEffect(t *testing.T) {
	controls := &mockControls{}
	m := NewManager(controls)
	var confirmed atomic.Bool
	id, err := m.Create(Spec{
		Kind:    KindConfirm,
		OwnerID: "u1",
		State:   StatePending,
		TTL:     30 * time.Millisecond,
		Table: ConfirmTable(ConfirmHooks{Confirm: func(context.Context, *Call) error {
			confirmed.Store(true)
			return nil
		}}),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_ = m.Bind(id, "chan-1", "msg-1")

	waitUntil(t, time.Second, func() bool { return m.Len() == 0 }, "session should expire after ttl")
	waitUntil(t, time.Second, func() bool { return controls.clearedCount() == 1 }, "controls should be stripped on expiry")
	if confirmed.Load() {
		t.Fatal("guarded effect ran on expiry")
	}
}

func TestConfirm_OnExpireHookReplacesControlStripping(t *testing.T) {
	controls := &mockControls{}
	m := NewManager(controls)
	hooked := make(chan Session, 1)
	id, err := m.Create(Spec{
		Kind:    KindConfirm,
		OwnerID: "u1",
		State:   StatePending,
		TTL:     20 * time.Millisecond,
		Table:   ConfirmTable(ConfirmHooks{}),
		OnExpire: func(_ context.Context, s Session) error {
			hooked <- s
			return discord.ErrMessageNotFound
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	select {
	case s := <-hooked:
		if s.ID != id || s.State != StateExpired {
			t.Fatalf("hook got %s in %s", s.ID, s.State)
		}
	case <-time.After(time.Second):
		t.Fatal("expiry hook not called")
	}
	if controls.clearedCount() != 0 {
		t.Fatal("default stripping should not run when a hook is set")
	}
}

func TestConfirm_ConfirmRunsEffectOnce(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	calls := 0
	id, _ := m.Create(Spec{
		Kind:    KindConfirm,
		OwnerID: "u1",
		State:   StatePending,
		TTL:     time.Minute,
		Table: ConfirmTable(ConfirmHooks{Confirm: func(context.Context, *Call) error {
			calls++
			return errors.New("publish failed")
		}}),
	})

	out, err := m.Dispatch(context.Background(), id, act(owner("u1"), ActionConfirm))
	if out != OutcomeApplied || err == nil {
		t.Fatalf("outcome=%s err=%v, want applied with error", out, err)
	}
	mustDispatch(t, m, id, act(owner("u1"), ActionConfirm), OutcomeExpired)
	if calls != 1 {
		t.Fatalf("confirm effect ran %d times, want 1", calls)
	}
}

func TestConfirm_CancelIsTerminalWithoutConfirmEffect(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	confirmed := false
	id, _ := m.Create(Spec{
		Kind:    KindConfirm,
		OwnerID: "u1",
		State:   StatePending,
		TTL:     time.Minute,
		Table: ConfirmTable(ConfirmHooks{Confirm: func(context.Context, *Call) error {
			confirmed = true
			return nil
		}}),
	})
	mustDispatch(t, m, id, act(owner("u1"), ActionCancel), OutcomeApplied)
	mustDispatch(t, m, id, act(owner("u1"), ActionConfirm), OutcomeExpired)
	if confirmed {
		t.Fatal("confirm effect ran after cancel")
	}
}

func TestConfirm_ActorFilterAdmitsChannelMembers(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	var by string
	id, _ := m.Create(Spec{
		Kind:      KindConfirm,
		OwnerID:   "u1",
		ChannelID: "chan-1",
		State:     StatePending,
		TTL:       time.Minute,
		Table: ConfirmTable(ConfirmHooks{Confirm: func(_ context.Context, call *Call) error {
			by = call.Event.Actor.UserID
			return nil
		}}),
		ActorFilter: func(s Session, a Actor) bool { return a.ChannelID == s.ChannelID },
	})

	outsider := Event{Action: ActionConfirm, Actor: Actor{UserID: "u3", ChannelID: "chan-2"}}
	mustDispatch(t, m, id, outsider, OutcomeUnauthorized)
	member := Event{Action: ActionConfirm, Actor: Actor{UserID: "u2", ChannelID: "chan-1"}}
	mustDispatch(t, m, id, member, OutcomeApplied)
	if by != "u2" {
		t.Fatalf("confirmed by %q, want u2", by)
	}
}

func TestActorFilter_IgnoredForNonConfirmKinds(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	id, _ := m.Create(Spec{
		Kind:        KindCarousel,
		OwnerID:     "u1",
		State:       StateViewing,
		TTL:         time.Minute,
		Items:       []string{"a", "b"},
		Table:       CarouselTable(CarouselHooks{}),
		ActorFilter: func(Session, Actor) bool { return true },
	})
	mustDispatch(t, m, id, act(owner("u2"), ActionNext), OutcomeUnauthorized)
}

func TestGatedGeneration_VerifyFailureKeepsAwaiting(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	valid := "verify_ok"
	id, _ := m.Create(Spec{
		Kind:    KindGatedGeneration,
		OwnerID: "u1",
		State:   StateAwaitingVerification,
		TTL:     time.Minute,
		Table: GenerationTable(GenerationHooks{
			Verify: func(_ context.Context, call *Call) error {
				if call.Event.Input != valid {
					return errors.New("invalid code")
				}
				call.Next.Data["code"] = call.Event.Input
				return nil
			},
			Generate: func(_ context.Context, call *Call) error {
				call.Next.Data["result"] = "script"
				return nil
			},
		}),
	})

	bad := act(owner("u1"), ActionVerify)
	bad.Input = "verify_bad"
	if out, err := m.Dispatch(context.Background(), id, bad); out != OutcomeRejected || err == nil {
		t.Fatalf("outcome=%s err=%v, want rejected with error", out, err)
	}
	s, _ := m.Get(id)
	if s.State != StateAwaitingVerification || s.Data["code"] != "" {
		t.Fatalf("failed verify mutated session: %s %v", s.State, s.Data)
	}

	mustDispatch(t, m, id, act(owner("u1"), ActionGenerate), OutcomeRejected)

	good := act(owner("u1"), ActionVerify)
	good.Input = valid
	mustDispatch(t, m, id, good, OutcomeApplied)
	mustDispatch(t, m, id, act(owner("u1"), ActionGenerate), OutcomeApplied)
	s, _ = m.Get(id)
	if s.State != StateCompleted || s.Data["code"] != valid || s.Data["result"] != "script" {
		t.Fatalf("unexpected final session: %s %v", s.State, s.Data)
	}
}

func TestGatedGeneration_CompletedAcceptsRegenerateAndDelete(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	runs := 0
	gen := func(_ context.Context, call *Call) error {
		runs++
		call.Next.Data["result"] = fmt.Sprint(runs)
		return nil
	}
	id, _ := m.Create(Spec{
		Kind:    KindGatedGeneration,
		OwnerID: "u1",
		State:   StateVerified,
		TTL:     time.Minute,
		Data:    map[string]string{"prompt": "hola"},
		Table:   GenerationTable(GenerationHooks{Generate: gen, Regenerate: gen}),
	})
	mustDispatch(t, m, id, act(owner("u1"), ActionGenerate), OutcomeApplied)
	mustDispatch(t, m, id, act(owner("u1"), ActionRegenerate), OutcomeApplied)
	s, _ := m.Get(id)
	if s.State != StateCompleted || s.Data["result"] != "2" || s.Data["prompt"] != "hola" {
		t.Fatalf("unexpected session after regenerate: %s %v", s.State, s.Data)
	}
	mustDispatch(t, m, id, act(owner("u1"), ActionDelete), OutcomeApplied)
	if _, ok := m.Get(id); ok {
		t.Fatal("deleted session should be gone")
	}
}

func TestDispatch_MessageGoneMakesSessionTerminal(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	id := createCarousel(t, m, []string{"a", "b"}, CarouselHooks{
		Render: func(context.Context, *Call) error {
			return fmt.Errorf("edit: %w", discord.ErrMessageNotFound)
		},
	})
	mustDispatch(t, m, id, act(owner("u1"), ActionNext), OutcomeApplied)
	if _, ok := m.Get(id); ok {
		t.Fatal("session should be terminal once its message is gone")
	}
}

func TestDispatch_EffectPanicIsRecovered(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	id := createCarousel(t, m, []string{"a", "b"}, CarouselHooks{
		Render: func(context.Context, *Call) error { panic("boom") },
	})
	out, err := m.Dispatch(context.Background(), id, act(owner("u1"), ActionNext))
	if out != OutcomeRejected || err == nil {
		t.Fatalf("outcome=%s err=%v, want rejected with error", out, err)
	}
	if s, _ := m.Get(id); s.Index != 0 {
		t.Fatalf("index = %d after failed effect, want 0", s.Index)
	}
}

func TestDispatch_SerializesActionsPerSession(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	var inFlight, maxInFlight atomic.Int32
	id := createCarousel(t, m, []string{"a", "b", "c", "d", "e", "f", "g"}, CarouselHooks{
		Render: func(context.Context, *Call) error {
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			return nil
		},
	})

	var wg sync.WaitGroup
	for range 21 {
		wg.Go(func() {
			_, _ = m.Dispatch(context.Background(), id, act(owner("u1"), ActionNext))
		})
	}
	wg.Wait()
	if maxInFlight.Load() != 1 {
		t.Fatalf("max concurrent effects = %d, want 1", maxInFlight.Load())
	}
	if s, _ := m.Get(id); s.Index != 0 {
		t.Fatalf("index = %d after 21 nexts over 7 items, want 0", s.Index)
	}
}

func TestCreate_ValidatesInitialState(t *testing.T) {
	m, _ := newTestManager(&mockControls{})
	cases := []Spec{
		{Kind: KindCarousel, OwnerID: "u1", State: StateViewing, TTL: time.Minute, Table: CarouselTable(CarouselHooks{})},
		{Kind: KindConfirm, OwnerID: "u1", State: StateViewing, TTL: time.Minute, Table: ConfirmTable(ConfirmHooks{})},
		{Kind: KindGatedGeneration, OwnerID: "u1", State: StateCompleted, TTL: time.Minute, Table: GenerationTable(GenerationHooks{})},
		{Kind: KindConfirm, State: StatePending, TTL: time.Minute, Table: ConfirmTable(ConfirmHooks{})},
		{Kind: KindConfirm, OwnerID: "u1", State: StatePending, Table: ConfirmTable(ConfirmHooks{})},
	}
	for i, sp := range cases {
		if _, err := m.Create(sp); !errors.Is(err, ErrInvalidSpec) {
			t.Fatalf("case %d: err = %v, want ErrInvalidSpec", i, err)
		}
	}
	if m.Len() != 0 {
		t.Fatalf("invalid specs created %d sessions", m.Len())
	}
}

func TestExpireAll_StripsControlsOfLiveSessions(t *testing.T) {
	controls := &mockControls{}
	m, _ := newTestManager(controls)
	for i := range 3 {
		id := createCarousel(t, m, []string{"a"}, CarouselHooks{})
		_ = m.Bind(id, "chan-1", fmt.Sprintf("msg-%d", i))
	}
	m.ExpireAll(context.Background())
	if m.Len() != 0 {
		t.Fatalf("live sessions = %d, want 0", m.Len())
	}
	if controls.clearedCount() != 3 {
		t.Fatalf("cleared = %d, want 3", controls.clearedCount())
	}
}

func TestDiscard_DoesNotTouchMessage(t *testing.T) {
	controls := &mockControls{}
	m, _ := newTestManager(controls)
	id := createCarousel(t, m, []string{"a"}, CarouselHooks{})
	_ = m.Bind(id, "chan-1", "msg-1")
	m.Discard(id)
	mustDispatch(t, m, id, act(owner("u1"), ActionNext), OutcomeExpired)
	if controls.clearedCount() != 0 {
		t.Fatal("discard should not strip controls")
	}
}

func TestParseActionAndCustomID(t *testing.T) {
	if got := CustomID("abc", ActionNext); got != "s:abc:next" {
		t.Fatalf("CustomID = %q", got)
	}
	id, action, ok := ParseCustomID("s:abc-123:regenerate")
	if !ok || id != "abc-123" || action != ActionRegenerate {
		t.Fatalf("ParseCustomID = %q %q %v", id, action, ok)
	}
	for _, raw := range []string{"", "s:abc", "x:abc:next", "s::next", "s:abc:explode"} {
		if _, _, ok := ParseCustomID(raw); ok {
			t.Fatalf("ParseCustomID(%q) should fail", raw)
		}
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}
