package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/session"
)

func TestScripter_UnverifiedWithoutCodeDoesNotGenerate(t *testing.T) {
	text := &mockText{}
	h := newHarness(t, Providers{Text: text})
	in, resp := commandIn("scripter-ia", "u1", map[string]string{"idea": "puerta secreta"})

	if err := h.w.scripter(context.Background(), in); err != nil {
		t.Fatalf("scripter: %v", err)
	}
	if got := resp.lastRespond(t).Content; got != msgNotVerified {
		t.Fatalf("reply = %q", got)
	}
	if text.calls() != 0 {
		t.Fatal("generation must not run for an unverified group")
	}
	if h.sessions.Len() != 0 {
		t.Fatal("the gated session should be discarded")
	}
}

func TestScripter_InvalidCodeIsRejected(t *testing.T) {
	text := &mockText{}
	h := newHarness(t, Providers{Text: text})
	in, _ := commandIn("scripter-ia", "u1", map[string]string{"idea": "puerta", "codigo": "verify_nope"})

	err := h.w.scripter(context.Background(), in)
	if apperror.KindOf(err) != apperror.KindInvalidInput {
		t.Fatalf("err = %v", err)
	}
	if msg, _ := apperror.MessageOf(err); msg != msgInvalidCode {
		t.Fatalf("message = %q", msg)
	}
	if text.calls() != 0 || h.sessions.Len() != 0 {
		t.Fatalf("calls=%d sessions=%d", text.calls(), h.sessions.Len())
	}
}

func TestScripter_ValidCodeVerifiesGroupThenGenerates(t *testing.T) {
	text := &mockText{replies: []string{"print('hola')"}}
	h := newHarness(t, Providers{Text: text})
	ctx := context.Background()
	code, err := h.ledger.Generate(ctx, "verify_")
	if err != nil {
		t.Fatal(err)
	}

	in, resp := commandIn("scripter-ia", "u1", map[string]string{"idea": "puerta", "codigo": code})
	if err := h.w.scripter(ctx, in); err != nil {
		t.Fatalf("scripter: %v", err)
	}
	if len(resp.followUps) != 1 || resp.followUps[0].Content != msgVerified {
		t.Fatalf("follow-ups = %+v", resp.followUps)
	}
	reply := resp.lastRespond(t)
	if !strings.Contains(reply.Embeds[0].Description, "```lua\nprint('hola')\n```") {
		t.Fatalf("script embed = %q", reply.Embeds[0].Description)
	}
	if len(reply.Buttons) != 3 {
		t.Fatalf("buttons = %+v", reply.Buttons)
	}
	if ok, _ := h.ledger.IsVerified(ctx, "guild-1"); !ok {
		t.Fatal("group should be verified")
	}
	if !strings.Contains(text.prompts[0], "puerta") {
		t.Fatalf("prompt = %q", text.prompts[0])
	}

	// a verified group no longer needs a code
	again, resp2 := commandIn("scripter-ia", "u2", map[string]string{"idea": "otra"})
	if err := h.w.scripter(ctx, again); err != nil {
		t.Fatalf("second scripter: %v", err)
	}
	if len(resp2.followUps) != 0 || resp2.respondCount() != 1 || text.calls() != 2 {
		t.Fatalf("followUps=%d responds=%d calls=%d", len(resp2.followUps), resp2.respondCount(), text.calls())
	}
}

func TestAsk_GenerationFailureDiscardsSession(t *testing.T) {
	h := newHarness(t, Providers{Text: &mockText{err: errors.New("quota")}})
	in, _ := commandIn("ia", "u1", map[string]string{"pregunta": "¿hola?"})

	err := h.w.ask(context.Background(), in)
	if apperror.KindOf(err) != apperror.KindProviderFailure {
		t.Fatalf("err = %v", err)
	}
	if msg, _ := apperror.MessageOf(err); msg != msgAIFailed {
		t.Fatalf("message = %q", msg)
	}
	if h.sessions.Len() != 0 {
		t.Fatal("failed generation must not leave a session behind")
	}
}

func TestAsk_NotConfigured(t *testing.T) {
	h := newHarness(t, Providers{})
	in, resp := commandIn("ia", "u1", map[string]string{"pregunta": "x"})
	err := h.w.ask(context.Background(), in)
	if apperror.KindOf(err) != apperror.KindConfigurationMissing {
		t.Fatalf("err = %v", err)
	}
	if resp.Acknowledged() {
		t.Fatal("configuration is checked before deferring")
	}
}

func TestAsk_LongAnswerIsSplitIntoParts(t *testing.T) {
	long := strings.Repeat("ñ", embedChunkRunes+10)
	h := newHarness(t, Providers{Text: &mockText{replies: []string{long}}})
	in, resp := commandIn("ia", "u1", map[string]string{"pregunta": "x"})
	if err := h.w.ask(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	if len(resp.followUps) != 1 || resp.followUps[0].Embeds[0].Title != "🧠 Respuesta de IA (Parte 2)" {
		t.Fatalf("follow-ups = %+v", resp.followUps)
	}
	if len([]rune(resp.lastRespond(t).Embeds[0].Description)) != embedChunkRunes {
		t.Fatal("first part should be a full chunk")
	}
}

func TestGeneratedAnswer_ButtonsSaveRegenerateDelete(t *testing.T) {
	text := &mockText{replies: []string{"primera", "segunda"}}
	h := newHarness(t, Providers{Text: text})
	in, resp := commandIn("ia", "u1", map[string]string{"pregunta": "x"})
	resp.messageID = "answer-msg"
	if err := h.w.ask(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	buttons := resp.lastRespond(t).Buttons

	out, _, err := h.press(t, buttons, session.ActionSave, "u2", "chan-1")
	if out != session.OutcomeUnauthorized || err != nil {
		t.Fatalf("non-owner save = %s, %v", out, err)
	}

	out, saveResp, err := h.press(t, buttons, session.ActionSave, "u1", "chan-1")
	if out != session.OutcomeApplied || err != nil {
		t.Fatalf("save = %s, %v", out, err)
	}
	if h.dc.dms["u1"][0] != "primera" || saveResp.lastRespond(t).Content != msgAnswerSaved {
		t.Fatalf("dms = %+v", h.dc.dms)
	}

	out, regenResp, err := h.press(t, buttons, session.ActionRegenerate, "u1", "chan-1")
	if out != session.OutcomeApplied || err != nil {
		t.Fatalf("regenerate = %s, %v", out, err)
	}
	if len(regenResp.updates) != 1 || regenResp.updates[0].Embeds[0].Description != "segunda" {
		t.Fatalf("regenerate updates = %+v", regenResp.updates)
	}

	out, _, err = h.press(t, buttons, session.ActionDelete, "u1", "chan-1")
	if out != session.OutcomeApplied || err != nil {
		t.Fatalf("delete = %s, %v", out, err)
	}
	if len(h.dc.deleted) != 1 || h.dc.deleted[0] != "chan-1/answer-msg" {
		t.Fatalf("deleted = %+v", h.dc.deleted)
	}
	if h.sessions.Len() != 0 {
		t.Fatal("delete is terminal")
	}
}

func TestGeneratedAnswer_ClosedDMIsSoftNotice(t *testing.T) {
	h := newHarness(t, Providers{Text: &mockText{}})
	h.dc.dmErr = discord.ErrDirectMessageClosed
	in, resp := commandIn("consejo", "u1", nil)
	if err := h.w.advice(context.Background(), in); err != nil {
		t.Fatal(err)
	}
	out, saveResp, err := h.press(t, resp.lastRespond(t).Buttons, session.ActionSave, "u1", "chan-1")
	if out != session.OutcomeApplied || err != nil {
		t.Fatalf("save = %s, %v", out, err)
	}
	if got := saveResp.lastRespond(t); got.Content != msgDMClosed || !got.Ephemeral {
		t.Fatalf("notice = %+v", got)
	}
}

func TestSplitRunes(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want int
	}{
		{"", 4, 1},
		{"abcd", 4, 1},
		{"abcde", 4, 2},
		{"ñññññññññ", 3, 3},
	}
	for _, tc := range cases {
		if got := splitRunes(tc.in, tc.n); len(got) != tc.want || strings.Join(got, "") != tc.in {
			t.Fatalf("splitRunes(%q, %d) = %q", tc.in, tc.n, got)
		}
	}
}
