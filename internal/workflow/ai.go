package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/ledger"
	"github.com/foxseedlab/kiosko/internal/provider"
	"github.com/foxseedlab/kiosko/internal/session"
)

const (
	embedChunkRunes = 4000
	dmChunkRunes    = 1900
)

type generationKind string

const (
	genAnswer generationKind = "ia"
	genAdvice generationKind = "consejo"
	genScript generationKind = "script"
)

const (
	dataKind   = "kind"
	dataPrompt = "prompt"
	dataResult = "result"
	dataGroup  = "group"
)

const advicePrompt = "Dame un consejo útil, motivador y original para hoy. Máximo 500 caracteres."

func scriptPrompt(idea string) string {
	return "Eres un experto en scripting de Roblox Lua. Genera un script funcional y bien comentado para: " +
		idea + ". Incluye explicaciones breves en los comentarios."
}

func (w *Workflows) ask(ctx context.Context, in discord.Interaction) error {
	if w.p.Text == nil {
		return notConfigured("ia", msgAINotConfigured)
	}
	question, err := requiredOption(in, "pregunta")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	return w.startGeneration(ctx, in, session.StateVerified, map[string]string{
		dataKind:   string(genAnswer),
		dataPrompt: question,
	})
}

func (w *Workflows) advice(ctx context.Context, in discord.Interaction) error {
	if w.p.Text == nil {
		return notConfigured("consejo", msgAIShortNotConfigure)
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	return w.startGeneration(ctx, in, session.StateVerified, map[string]string{
		dataKind: string(genAdvice),
	})
}

// verificationGroup is the ledger key for an interaction: the guild, or the user in a DM.
func verificationGroup(in discord.Interaction) string {
	if in.GuildID != "" {
		return in.GuildID
	}
	return "dm:" + in.UserID
}

func (w *Workflows) scripter(ctx context.Context, in discord.Interaction) error {
	if w.p.Text == nil {
		return notConfigured("scripter-ia", msgAIShortNotConfigure)
	}
	idea, err := requiredOption(in, "idea")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}

	group := verificationGroup(in)
	verified, err := w.ledger.IsVerified(ctx, group)
	if err != nil {
		return fmt.Errorf("check verification for %s: %w", group, err)
	}
	start := session.StateVerified
	if !verified {
		start = session.StateAwaitingVerification
	}
	id, err := w.createGeneration(in, start, map[string]string{
		dataKind:   string(genScript),
		dataPrompt: idea,
		dataGroup:  group,
	})
	if err != nil {
		return err
	}
	if verified {
		return w.runGenerate(ctx, id, in)
	}

	code := strings.TrimSpace(in.Option("codigo"))
	if code == "" {
		w.sessions.Discard(id)
		_, err := in.Responder.Respond(ctx, discord.Reply{Content: msgNotVerified})
		return err
	}
	out, err := w.sessions.Dispatch(ctx, id, session.Event{
		Action:    session.ActionVerify,
		Actor:     actorOf(in),
		Input:     code,
		Responder: in.Responder,
	})
	if err != nil || out != session.OutcomeApplied {
		w.sessions.Discard(id)
		if err == nil {
			err = fmt.Errorf("verify session %s: %s", id, out)
		}
		return err
	}
	return w.runGenerate(ctx, id, in)
}

func (w *Workflows) startGeneration(ctx context.Context, in discord.Interaction, start session.State, data map[string]string) error {
	id, err := w.createGeneration(in, start, data)
	if err != nil {
		return err
	}
	return w.runGenerate(ctx, id, in)
}

func (w *Workflows) createGeneration(in discord.Interaction, start session.State, data map[string]string) (string, error) {
	return w.sessions.Create(session.Spec{
		Kind:      session.KindGatedGeneration,
		OwnerID:   in.UserID,
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
		State:     start,
		TTL:       w.cfg.GenerationTTL,
		Data:      data,
		Table: session.GenerationTable(session.GenerationHooks{
			Verify:     w.verifyGroup,
			Generate:   w.generate,
			Save:       w.saveGeneration,
			Regenerate: w.regenerate,
			Delete:     w.deleteHost,
		}),
	})
}

func (w *Workflows) runGenerate(ctx context.Context, id string, in discord.Interaction) error {
	out, err := w.sessions.Dispatch(ctx, id, session.Event{
		Action:    session.ActionGenerate,
		Actor:     actorOf(in),
		Responder: in.Responder,
	})
	if err != nil || out != session.OutcomeApplied {
		w.sessions.Discard(id)
		if err == nil {
			err = fmt.Errorf("generation session %s: %s", id, out)
		}
		return err
	}
	return nil
}

func (w *Workflows) verifyGroup(ctx context.Context, call *session.Call) error {
	group := call.Next.Data[dataGroup]
	res, err := w.ledger.Redeem(ctx, group, call.Event.Input)
	if err != nil {
		return err
	}
	switch res {
	case ledger.RedeemSuccess:
		if _, err := call.Event.Responder.FollowUp(ctx, discord.Reply{Content: msgVerified}); err != nil {
			slog.Warn("failed to announce verification", "guild_id", group, "error", err)
		}
		return nil
	case ledger.RedeemAlreadyVerified:
		return nil
	default:
		return apperror.WithMessage(fmt.Errorf("redeem code for %s: %w", group, apperror.ErrInvalidInput), msgInvalidCode)
	}
}

func (w *Workflows) generate(ctx context.Context, call *session.Call) error {
	text, err := w.complete(ctx, call.Next.Data)
	if err != nil {
		return err
	}
	call.Next.Data[dataResult] = text
	replies := w.renderGeneration(*call.Next)
	id, err := call.Event.Responder.Respond(ctx, replies[0])
	if err != nil {
		return err
	}
	call.Next.MessageID = id
	w.followUpParts(ctx, call, replies[1:])
	return nil
}

func (w *Workflows) regenerate(ctx context.Context, call *session.Call) error {
	if err := call.Event.Responder.Defer(ctx, false); err != nil {
		return err
	}
	text, err := w.complete(ctx, call.Next.Data)
	if err != nil {
		return err
	}
	call.Next.Data[dataResult] = text
	replies := w.renderGeneration(*call.Next)
	if err := call.Event.Responder.Update(ctx, replies[0]); err != nil {
		return err
	}
	w.followUpParts(ctx, call, replies[1:])
	return nil
}

func (w *Workflows) followUpParts(ctx context.Context, call *session.Call, parts []discord.Reply) {
	for _, r := range parts {
		if _, err := call.Event.Responder.FollowUp(ctx, r); err != nil {
			slog.Warn("failed to send follow-up part", "session_id", call.Next.ID, "error", err)
			return
		}
	}
}

func (w *Workflows) saveGeneration(ctx context.Context, call *session.Call) error {
	result := call.Next.Data[dataResult]
	notice := msgSavedToDM
	if generationKind(call.Next.Data[dataKind]) == genAnswer {
		notice = msgAnswerSaved
	}
	var parts []string
	for _, c := range splitRunes(result, dmChunkRunes) {
		if generationKind(call.Next.Data[dataKind]) == genScript {
			c = "```lua\n" + c + "\n```"
		}
		parts = append(parts, c)
	}
	return w.sendDM(ctx, call, parts, notice, msgDMClosed)
}

// complete runs the text generation described by a session's data.
func (w *Workflows) complete(ctx context.Context, data map[string]string) (string, error) {
	kind := generationKind(data[dataKind])
	var prompt, failure string
	switch kind {
	case genAnswer:
		prompt, failure = data[dataPrompt], msgAIFailed
	case genAdvice:
		prompt, failure = advicePrompt, msgAdviceFailed
	case genScript:
		prompt, failure = scriptPrompt(data[dataPrompt]), msgScriptFailed
	default:
		return "", fmt.Errorf("unknown generation kind %q", kind)
	}
	if w.p.Text == nil {
		return "", notConfigured(string(kind), msgAIShortNotConfigure)
	}
	text, err := w.p.Text.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, apperror.ErrProviderFailure) {
			err = fmt.Errorf("%w: %w", provider.ErrUnavailable, err)
		}
		return "", apperror.WithMessage(err, failure)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperror.WithMessage(fmt.Errorf("empty %s generation: %w", kind, provider.ErrUnavailable), msgAIEmpty)
	}
	return text, nil
}

func (w *Workflows) renderGeneration(s session.Session) []discord.Reply {
	kind := generationKind(s.Data[dataKind])
	text := s.Data[dataResult]
	var chunks []string
	if kind == genAdvice {
		chunks = splitRunes(text, embedChunkRunes)[:1]
	} else {
		chunks = splitRunes(text, embedChunkRunes)
	}

	replies := make([]discord.Reply, 0, len(chunks))
	for i, c := range chunks {
		e := discord.Embed{Description: c}
		switch kind {
		case genAnswer:
			e.Title = "🧠 Respuesta de IA"
			if i > 0 {
				e.Title = fmt.Sprintf("🧠 Respuesta de IA (Parte %d)", i+1)
			}
			e.Color = colorAnswer
			e.Footer = "Respuesta generada por IA • " + w.timestamp()
		case genAdvice:
			e.Title = "💡 Consejo del día"
			e.Color = colorAdvice
			e.Footer = "Consejo generado por IA"
		case genScript:
			e.Title = "📜 Script de Roblox"
			if i > 0 {
				e.Title = fmt.Sprintf("📜 Script (Parte %d)", i+1)
			}
			e.Description = "```lua\n" + c + "\n```"
			e.Color = colorScript
			e.Footer = "Generado para: " + s.Data[dataPrompt]
		}
		replies = append(replies, discord.Reply{Embeds: []discord.Embed{e}})
	}
	replies[0].Buttons = generationButtons(s.ID, kind)
	return replies
}

func generationButtons(id string, kind generationKind) []discord.Button {
	save, regen := "📩 Guardar en MD", "🔁 Regenerar"
	switch kind {
	case genAdvice:
		save, regen = "📩 Guardar", "🔁 Nuevo consejo"
	case genScript:
		save = "📩 Enviar a MD"
	}
	return []discord.Button{
		{ID: session.CustomID(id, session.ActionSave), Label: save, Style: discord.ButtonSuccess},
		{ID: session.CustomID(id, session.ActionRegenerate), Label: regen, Style: discord.ButtonPrimary},
		{ID: session.CustomID(id, session.ActionDelete), Label: "🗑️ Eliminar", Style: discord.ButtonDanger},
	}
}

// splitRunes cuts s into pieces of at most n runes. It never returns an empty slice.
func splitRunes(s string, n int) []string {
	r := []rune(s)
	if len(r) <= n {
		return []string{s}
	}
	out := make([]string, 0, len(r)/n+1)
	for len(r) > 0 {
		k := min(n, len(r))
		out = append(out, string(r[:k]))
		r = r[k:]
	}
	return out
}
