package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/ledger"
	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/provider"
	"github.com/foxseedlab/kiosko/internal/session"
)

type mockResponder struct {
	mu        sync.Mutex
	acked     bool
	deferred  []bool
	responds  []discord.Reply
	followUps []discord.Reply
	updates   []discord.Reply
	messageID string
}

func (m *mockResponder) Defer(_ context.Context, ephemeral bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	m.deferred = append(m.deferred, ephemeral)
	return nil
}

func (m *mockResponder) Respond(_ context.Context, r discord.Reply) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	m.responds = append(m.responds, r)
	if m.messageID == "" {
		return "msg-reply", nil
	}
	return m.messageID, nil
}

func (m *mockResponder) FollowUp(_ context.Context, r discord.Reply) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.followUps = append(m.followUps, r)
	return fmt.Sprintf("msg-follow-%d", len(m.followUps)), nil
}

func (m *mockResponder) Update(_ context.Context, r discord.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	m.updates = append(m.updates, r)
	return nil
}

func (m *mockResponder) Acknowledged() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acked
}

func (m *mockResponder) lastRespond(t *testing.T) discord.Reply {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responds) == 0 {
		t.Fatal("expected a response")
	}
	return m.responds[len(m.responds)-1]
}

func (m *mockResponder) respondCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.responds)
}

type sentMessage struct {
	channelID string
	reply     discord.Reply
}

type mockClient struct {
	mu       sync.Mutex
	sent     []sentMessage
	dms      map[string][]string
	deleted  []string
	cleared  []string
	dmErr    error
	sendErr  error
	deleteEr error
	stats    discord.Stats
}

func newMockClient() *mockClient {
	return &mockClient{dms: map[string][]string{}}
}

func (m *mockClient) Connect(context.Context) error { return nil }

func (m *mockClient) Close() error { return nil }

func (m *mockClient) RegisterInteractionHandler(func(discord.Interaction)) {}

func (m *mockClient) UpsertSlashCommands(string, []discord.SlashCommandDefinition) error {
	return nil
}

func (m *mockClient) UpdatePresence(string) error { return nil }

func (m *mockClient) GetBotUserID() (string, error) { return "bot", nil }

func (m *mockClient) Run() error { return nil }

func (m *mockClient) Stats() discord.Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *mockClient) SendChannelMessage(_ context.Context, channelID string, r discord.Reply) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.sent = append(m.sent, sentMessage{channelID: channelID, reply: r})
	return fmt.Sprintf("sent-%d", len(m.sent)), nil
}

func (m *mockClient) EditChannelMessage(context.Context, string, string, discord.Reply) error {
	return nil
}

func (m *mockClient) ClearComponents(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, channelID+"/"+messageID)
	return nil
}

func (m *mockClient) DeleteChannelMessage(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteEr != nil {
		return m.deleteEr
	}
	m.deleted = append(m.deleted, channelID+"/"+messageID)
	return nil
}

func (m *mockClient) SendDirectMessage(_ context.Context, userID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmErr != nil {
		return m.dmErr
	}
	m.dms[userID] = append(m.dms[userID], content)
	return nil
}

func (m *mockClient) sentTo(channelID string) []discord.Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []discord.Reply
	for _, s := range m.sent {
		if s.channelID == channelID {
			out = append(out, s.reply)
		}
	}
	return out
}

type mockText struct {
	mu      sync.Mutex
	prompts []string
	replies []string
	err     error
}

func (m *mockText) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "respuesta", nil
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r, nil
}

func (m *mockText) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

type mockImages struct {
	urls []string
	err  error
}

func (m mockImages) SearchImages(context.Context, string) ([]string, error) {
	return m.urls, m.err
}

type mockStock struct {
	images []string
	videos []provider.Video
}

func (m mockStock) SearchImages(context.Context, string) ([]string, error) {
	return m.images, nil
}

func (m mockStock) SearchVideos(context.Context, string) ([]provider.Video, error) {
	return m.videos, nil
}

type mockVideo struct {
	meta    media.Metadata
	payload []byte
}

func (m mockVideo) ValidateRef(ref string) error {
	if !strings.Contains(ref, "youtube.com/watch") {
		return errors.New("not a video link")
	}
	return nil
}

func (m mockVideo) Metadata(context.Context, string) (media.Metadata, error) {
	return m.meta, nil
}

func (m mockVideo) Open(context.Context, string, media.Format) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader(string(m.payload))), int64(len(m.payload)), nil
}

type mockReputation struct {
	mu       sync.Mutex
	pending  int
	verdict  provider.Verdict
	fetches  int
	submitEr error
}

func (m *mockReputation) Submit(context.Context, string) (string, error) {
	return "analysis-1", m.submitEr
}

func (m *mockReputation) Fetch(context.Context, string) (provider.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches++
	if m.fetches <= m.pending {
		return provider.Verdict{}, provider.ErrNotReady
	}
	return m.verdict, nil
}

type mockPreview struct {
	preview provider.Preview
	err     error
}

func (m mockPreview) Preview(context.Context, string) (provider.Preview, error) {
	return m.preview, m.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		OwnerID:             "owner",
		LogChannelID:        "log-chan",
		SecretPassword:      "abre-sesamo",
		DownloadDir:         t.TempDir(),
		AllowedCodePrefixes: []string{"verify_", "script_"},
		MaxMediaDurationSec: 600,
		MaxMediaBytes:       25 * 1024 * 1024,
		CarouselTTL:         time.Minute,
		ConfirmTTL:          time.Minute,
		GenerationTTL:       time.Minute,
		LogDeleteTTL:        time.Minute,
		ScanMaxWait:         time.Second,
		CommandTimeout:      time.Minute,
	}
}

type harness struct {
	w        *Workflows
	dc       *mockClient
	sessions *session.Manager
	ledger   *ledger.Ledger
	cfg      *config.Config
}

func newHarness(t *testing.T, p Providers) *harness {
	t.Helper()
	return newHarnessWithConfig(t, testConfig(t), p)
}

func newHarnessWithConfig(t *testing.T, cfg *config.Config, p Providers) *harness {
	t.Helper()
	dc := newMockClient()
	sessions := session.NewManager(dc)
	l := ledger.New(ledger.NewMemoryStore(), cfg.AllowedCodePrefixes)
	pipeline, err := media.NewPipeline(cfg.DownloadDir)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	w := New(cfg, dc, sessions, l, pipeline, p)
	w.scanInterval = time.Millisecond
	t.Cleanup(func() { sessions.ExpireAll(context.Background()) })
	return &harness{w: w, dc: dc, sessions: sessions, ledger: l, cfg: cfg}
}

func commandIn(name, user string, opts map[string]string) (discord.Interaction, *mockResponder) {
	resp := &mockResponder{}
	return discord.Interaction{
		ID:        "i-" + name,
		Kind:      discord.InteractionCommand,
		Name:      name,
		UserID:    user,
		UserTag:   user + "#0001",
		GuildID:   "guild-1",
		ChannelID: "chan-1",
		Options:   opts,
		Responder: resp,
	}, resp
}

// press simulates a button click on the control with the given action.
func (h *harness) press(t *testing.T, buttons []discord.Button, action session.Action, user, channel string) (session.Outcome, *mockResponder, error) {
	t.Helper()
	for _, b := range buttons {
		id, a, ok := session.ParseCustomID(b.ID)
		if !ok || a != action {
			continue
		}
		resp := &mockResponder{}
		out, err := h.sessions.Dispatch(context.Background(), id, session.Event{
			Action:    a,
			Actor:     session.Actor{UserID: user, ChannelID: channel},
			Responder: resp,
		})
		return out, resp, err
	}
	t.Fatalf("no %s button among %+v", action, buttons)
	return "", nil, nil
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func mp4Payload() []byte {
	return append([]byte{0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'm', 'p', '4', '2', 0, 0, 0, 0, 'm', 'p', '4', '2', 'i', 's', 'o', 'm'}, make([]byte, 2048)...)
}
