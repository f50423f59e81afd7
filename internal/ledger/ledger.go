package ledger

import (
	"bytes"
	"context"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPrefixNotAllowed   = errors.New("code prefix not allowed")
	ErrCodeSpaceExhausted = errors.New("could not generate a unique code")
)

const generateAttempts = 8

var codeEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Record marks a verified group. VerifiedAt is stored as epoch milliseconds;
// RFC 3339 strings are also read.
type Record struct {
	VerifiedAt time.Time
	Code       string
}

type recordJSON struct {
	VerifiedAt json.RawMessage `json:"verified_at,omitempty"`
	Code       string          `json:"code"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{Code: r.Code}
	if !r.VerifiedAt.IsZero() {
		out.VerifiedAt = json.RawMessage(strconv.FormatInt(r.VerifiedAt.UnixMilli(), 10))
	}
	return json.Marshal(out)
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	at, err := parseVerifiedAt(raw.VerifiedAt)
	if err != nil {
		return fmt.Errorf("verified_at: %w", err)
	}
	*r = Record{VerifiedAt: at, Code: raw.Code}
	return nil
}

func parseVerifiedAt(raw json.RawMessage) (time.Time, error) {
	v := bytes.TrimSpace(raw)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return time.Time{}, nil
	}
	if v[0] == '"' {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return time.Time{}, err
		}
		return time.Parse(time.RFC3339Nano, s)
	}
	var ms json.Number
	if err := json.Unmarshal(v, &ms); err != nil {
		return time.Time{}, err
	}
	if n, err := ms.Int64(); err == nil {
		return time.UnixMilli(n), nil
	}
	f, err := ms.Float64()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(int64(f)), nil
}

// State is the whole persisted ledger. Stores hand out a copy inside Update.
type State struct {
	Groups map[string]Record
	Codes  []string
}

func (s *State) Clone() *State {
	c := &State{
		Groups: make(map[string]Record, len(s.Groups)),
		Codes:  slices.Clone(s.Codes),
	}
	for k, v := range s.Groups {
		c.Groups[k] = v
	}
	return c
}

func (s *State) hasCode(code string) bool {
	return slices.Contains(s.Codes, code)
}

// Store loads and atomically persists ledger state.
type Store interface {
	View(ctx context.Context) (*State, error)
	// Update applies fn to a copy and persists it only when fn returns nil.
	Update(ctx context.Context, fn func(*State) error) error
}

type RedeemResult string

const (
	RedeemSuccess         RedeemResult = "success"
	RedeemInvalidCode     RedeemResult = "invalid_code"
	RedeemAlreadyVerified RedeemResult = "already_verified"
)

type Ledger struct {
	store    Store
	prefixes []string
	now      func() time.Time

	mu sync.Mutex
}

func New(store Store, allowedPrefixes []string) *Ledger {
	return &Ledger{
		store:    store,
		prefixes: slices.Clone(allowedPrefixes),
		now:      time.Now,
	}
}

func (l *Ledger) AllowedPrefixes() []string {
	return slices.Clone(l.prefixes)
}

func (l *Ledger) IsVerified(ctx context.Context, groupID string) (bool, error) {
	st, err := l.store.View(ctx)
	if err != nil {
		return false, err
	}
	_, ok := st.Groups[groupID]
	return ok, nil
}

func (l *Ledger) Record(ctx context.Context, groupID string) (Record, bool, error) {
	st, err := l.store.View(ctx)
	if err != nil {
		return Record{}, false, err
	}
	r, ok := st.Groups[groupID]
	return r, ok, nil
}

// Redeem consumes code for groupID. Redemptions, removals and generation are serialized.
func (l *Ledger) Redeem(ctx context.Context, groupID, code string) (RedeemResult, error) {
	code = strings.TrimSpace(code)
	l.mu.Lock()
	defer l.mu.Unlock()

	result := RedeemInvalidCode
	err := l.store.Update(ctx, func(st *State) error {
		if _, ok := st.Groups[groupID]; ok {
			result = RedeemAlreadyVerified
			return errNoChange
		}
		i := slices.Index(st.Codes, code)
		if code == "" || i < 0 {
			result = RedeemInvalidCode
			return errNoChange
		}
		st.Codes = slices.Delete(st.Codes, i, i+1)
		st.Groups[groupID] = Record{VerifiedAt: l.now().UTC(), Code: code}
		result = RedeemSuccess
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return "", fmt.Errorf("redeem code: %w", err)
	}
	if result == RedeemSuccess {
		slog.Info("group verified", "guild_id", groupID)
	}
	return result, nil
}

// Generate appends a new code with the given prefix to the pool.
func (l *Ledger) Generate(ctx context.Context, prefix string) (string, error) {
	if !slices.Contains(l.prefixes, prefix) {
		return "", fmt.Errorf("%w: %q", ErrPrefixNotAllowed, prefix)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var code string
	err := l.store.Update(ctx, func(st *State) error {
		for range generateAttempts {
			candidate := prefix + randomSuffix()
			if !st.hasCode(candidate) {
				code = candidate
				st.Codes = append(st.Codes, code)
				return nil
			}
		}
		return ErrCodeSpaceExhausted
	})
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}

// Revoke removes a pending code without verifying anyone.
func (l *Ledger) Revoke(ctx context.Context, code string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := false
	err := l.store.Update(ctx, func(st *State) error {
		i := slices.Index(st.Codes, code)
		if i < 0 {
			return errNoChange
		}
		st.Codes = slices.Delete(st.Codes, i, i+1)
		removed = true
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return false, fmt.Errorf("revoke code: %w", err)
	}
	return removed, nil
}

func (l *Ledger) PendingCodes(ctx context.Context) ([]string, error) {
	st, err := l.store.View(ctx)
	if err != nil {
		return nil, err
	}
	return slices.Clone(st.Codes), nil
}

var errNoChange = errors.New("ledger unchanged")

// randomSuffix yields 16 base32 characters carrying 80 random bits of a v4 uuid.
// Bytes 6 and 8 hold the version and variant, so only the fully random ones are used.
func randomSuffix() string {
	u := uuid.New()
	b := append(u[:6:6], u[10:14]...)
	return strings.ToLower(codeEncoding.EncodeToString(b))
}
