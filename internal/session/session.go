package session

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/foxseedlab/kiosko/internal/discord"
)

type Kind string

const (
	KindCarousel        Kind = "carousel"
	KindConfirm         Kind = "confirm"
	KindGatedGeneration Kind = "gated_generation"
)

type State string

const (
	StateViewing              State = "viewing"
	StatePending              State = "pending"
	StateConfirmed            State = "confirmed"
	StateCancelled            State = "cancelled"
	StateAwaitingVerification State = "awaiting_verification"
	StateVerified             State = "verified"
	StateCompleted            State = "completed"
	StateDeleted              State = "deleted"
	StateExpired              State = "expired"
)

func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateCancelled, StateDeleted, StateExpired:
		return true
	default:
		return false
	}
}

// Action is the closed set of button and internal actions a session can receive.
type Action string

const (
	ActionPrev       Action = "prev"
	ActionNext       Action = "next"
	ActionSave       Action = "save"
	ActionDelete     Action = "delete"
	ActionConfirm    Action = "confirm"
	ActionCancel     Action = "cancel"
	ActionVerify     Action = "verify"
	ActionGenerate   Action = "generate"
	ActionRegenerate Action = "regenerate"
)

var knownActions = []Action{
	ActionPrev, ActionNext, ActionSave, ActionDelete, ActionConfirm,
	ActionCancel, ActionVerify, ActionGenerate, ActionRegenerate,
}

func ParseAction(raw string) (Action, bool) {
	a := Action(raw)
	return a, slices.Contains(knownActions, a)
}

type Outcome string

const (
	OutcomeApplied      Outcome = "applied"
	OutcomeUnauthorized Outcome = "unauthorized"
	OutcomeExpired      Outcome = "expired"
	OutcomeRejected     Outcome = "rejected"
)

var (
	ErrInvalidSpec = errors.New("invalid session spec")
	ErrRejected    = errors.New("action not accepted in current state")
)

type Actor struct {
	UserID    string
	ChannelID string
}

// Session is a snapshot of server-held interaction state.
type Session struct {
	ID        string
	Kind      Kind
	OwnerID   string
	GuildID   string
	ChannelID string
	MessageID string
	CreatedAt time.Time
	TTL       time.Duration
	State     State
	Index     int
	Items     []string
	Data      map[string]string
}

func (s Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(s.TTL)
}

func (s Session) Current() string {
	if s.Index < 0 || s.Index >= len(s.Items) {
		return ""
	}
	return s.Items[s.Index]
}

func (s Session) clone() Session {
	c := s
	c.Data = maps.Clone(s.Data)
	if c.Data == nil {
		c.Data = map[string]string{}
	}
	return c
}

type Event struct {
	Action    Action
	Actor     Actor
	Input     string
	Responder discord.Responder
}

// Call is handed to an effect. Next is the proposed snapshot; writes to Next.Data are
// committed only when the transition commits.
type Call struct {
	Next  *Session
	Event Event
}

type Effect func(ctx context.Context, call *Call) error

type Transition struct {
	To     State
	Step   int
	Effect Effect
}

type ActionTable map[State]map[Action]Transition

type Spec struct {
	Kind      Kind
	OwnerID   string
	GuildID   string
	ChannelID string
	State     State
	TTL       time.Duration
	Items     []string
	Data      map[string]string
	Table     ActionTable
	// ActorFilter widens who may act on a confirm session.
	ActorFilter func(Session, Actor) bool
	// OnExpire replaces the default control stripping when the ttl elapses.
	OnExpire func(ctx context.Context, s Session) error
}

func (sp Spec) validate() error {
	if sp.OwnerID == "" {
		return errors.Join(ErrInvalidSpec, errors.New("owner is required"))
	}
	if sp.TTL <= 0 {
		return errors.Join(ErrInvalidSpec, errors.New("ttl must be positive"))
	}
	if len(sp.Table) == 0 {
		return errors.Join(ErrInvalidSpec, errors.New("action table is required"))
	}
	switch sp.Kind {
	case KindCarousel:
		if sp.State != StateViewing || len(sp.Items) == 0 {
			return errors.Join(ErrInvalidSpec, errors.New("carousel needs items and starts viewing"))
		}
	case KindConfirm:
		if sp.State != StatePending {
			return errors.Join(ErrInvalidSpec, errors.New("confirm starts pending"))
		}
	case KindGatedGeneration:
		if sp.State != StateAwaitingVerification && sp.State != StateVerified {
			return errors.Join(ErrInvalidSpec, errors.New("gated generation starts awaiting verification or verified"))
		}
	default:
		return errors.Join(ErrInvalidSpec, errors.New("unknown kind"))
	}
	return nil
}

type CarouselHooks struct {
	Render Effect
	Save   Effect
	Delete Effect
}

func CarouselTable(h CarouselHooks) ActionTable {
	return ActionTable{
		StateViewing: {
			ActionPrev:   {To: StateViewing, Step: -1, Effect: h.Render},
			ActionNext:   {To: StateViewing, Step: 1, Effect: h.Render},
			ActionSave:   {To: StateViewing, Effect: h.Save},
			ActionDelete: {To: StateDeleted, Effect: h.Delete},
		},
	}
}

type ConfirmHooks struct {
	Confirm Effect
	Cancel  Effect
}

func ConfirmTable(h ConfirmHooks) ActionTable {
	return ActionTable{
		StatePending: {
			ActionConfirm: {To: StateConfirmed, Effect: h.Confirm},
			ActionCancel:  {To: StateCancelled, Effect: h.Cancel},
		},
	}
}

type GenerationHooks struct {
	Verify     Effect
	Generate   Effect
	Save       Effect
	Regenerate Effect
	Delete     Effect
}

func GenerationTable(h GenerationHooks) ActionTable {
	return ActionTable{
		StateAwaitingVerification: {
			ActionVerify: {To: StateVerified, Effect: h.Verify},
		},
		StateVerified: {
			ActionGenerate: {To: StateCompleted, Effect: h.Generate},
		},
		StateCompleted: {
			ActionSave:       {To: StateCompleted, Effect: h.Save},
			ActionRegenerate: {To: StateCompleted, Effect: h.Regenerate},
			ActionDelete:     {To: StateDeleted, Effect: h.Delete},
		},
	}
}

// CustomID encodes a button id routed back to a session.
func CustomID(sessionID string, action Action) string {
	return customIDPrefix + sessionID + ":" + string(action)
}

const customIDPrefix = "s:"

func ParseCustomID(raw string) (string, Action, bool) {
	rest, ok := strings.CutPrefix(raw, customIDPrefix)
	if !ok {
		return "", "", false
	}
	id, rawAction, ok := strings.Cut(rest, ":")
	if !ok || id == "" {
		return "", "", false
	}
	action, ok := ParseAction(rawAction)
	if !ok {
		return "", "", false
	}
	return id, action, true
}
