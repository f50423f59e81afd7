package workflow

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/session"
)

const (
	dataContent       = "content"
	dataTargetChannel = "target_channel"
	dataTargetMessage = "target_message"

	logContentRunes = 1000
)

func (w *Workflows) sendMessage(ctx context.Context, in discord.Interaction) error {
	content, err := requiredOption(in, "contenido")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, true); err != nil {
		return err
	}
	responder := in.Responder
	id, err := w.sessions.Create(session.Spec{
		Kind:      session.KindConfirm,
		OwnerID:   in.UserID,
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
		State:     session.StatePending,
		TTL:       w.cfg.ConfirmTTL,
		Data:      map[string]string{dataContent: content, dataUserTag: in.UserTag},
		Table: session.ConfirmTable(session.ConfirmHooks{
			Confirm: w.confirmSend,
			Cancel:  cancelSend,
		}),
		// the preview is ephemeral, so only the interaction token can edit it
		OnExpire: func(ctx context.Context, _ session.Session) error {
			_, err := responder.Respond(ctx, discord.Reply{Content: msgSendTimeout, Ephemeral: true})
			return err
		},
	})
	if err != nil {
		return err
	}
	msgID, err := in.Responder.Respond(ctx, discord.Reply{
		Embeds: []discord.Embed{{
			Title:       "⚠️ Confirmación de envío",
			Description: "**Contenido:**\n" + content,
			Color:       colorPending,
			Footer:      "Este mensaje será enviado en tu nombre",
		}},
		Buttons: []discord.Button{
			{ID: session.CustomID(id, session.ActionConfirm), Label: "✅ Confirmar envío", Style: discord.ButtonSuccess},
			{ID: session.CustomID(id, session.ActionCancel), Label: "❌ Cancelar", Style: discord.ButtonDanger},
		},
		Ephemeral: true,
	})
	if err != nil {
		w.sessions.Discard(id)
		return err
	}
	return w.sessions.Bind(id, in.ChannelID, msgID)
}

func (w *Workflows) confirmSend(ctx context.Context, call *session.Call) error {
	content := call.Next.Data[dataContent]
	sentID, err := w.dc.SendChannelMessage(ctx, call.Next.ChannelID, discord.Reply{Content: content})
	if err != nil {
		slog.Error("failed to relay message", "session_id", call.Next.ID, "channel_id", call.Next.ChannelID, "error", err)
		return call.Event.Responder.Update(ctx, discord.Reply{Content: msgSendFailed})
	}
	w.recordSentMessage(ctx, *call.Next, sentID)
	return call.Event.Responder.Update(ctx, discord.Reply{
		Embeds: []discord.Embed{{
			Title:       "✅ Mensaje enviado",
			Description: "Tu mensaje ha sido publicado y registrado correctamente.",
			Color:       colorSuccess,
		}},
	})
}

func cancelSend(ctx context.Context, call *session.Call) error {
	return call.Event.Responder.Update(ctx, discord.Reply{
		Embeds: []discord.Embed{{
			Title:       "🚫 Envío cancelado",
			Description: "El mensaje no fue enviado.",
			Color:       colorDanger,
		}},
	})
}

// recordSentMessage posts an audit entry to the log channel with a button that
// deletes the relayed message.
func (w *Workflows) recordSentMessage(ctx context.Context, s session.Session, sentID string) {
	if w.cfg.LogChannelID == "" {
		return
	}
	owner := w.cfg.OwnerID
	if owner == "" {
		owner = s.OwnerID
	}
	id, err := w.sessions.Create(session.Spec{
		Kind:      session.KindConfirm,
		OwnerID:   owner,
		GuildID:   s.GuildID,
		ChannelID: w.cfg.LogChannelID,
		State:     session.StatePending,
		TTL:       w.cfg.LogDeleteTTL,
		Data: map[string]string{
			dataTargetChannel: s.ChannelID,
			dataTargetMessage: sentID,
		},
		Table:       session.ConfirmTable(session.ConfirmHooks{Confirm: w.deleteRelayed}),
		ActorFilter: sameChannel,
	})
	if err != nil {
		slog.Warn("failed to open log delete session", "error", err)
		return
	}
	msgID := w.logToChannel(ctx, discord.Reply{
		Embeds: []discord.Embed{{
			Title: "📨 Mensaje enviado registrado",
			Color: colorLog,
			Fields: []discord.EmbedField{
				{Name: "👤 Usuario", Value: fmt.Sprintf("%s (%s)", s.Data[dataUserTag], s.OwnerID)},
				{Name: "📍 Canal", Value: fmt.Sprintf("<#%s> (%s)", s.ChannelID, s.ChannelID)},
				{Name: "💬 Contenido", Value: splitRunes(s.Data[dataContent], logContentRunes)[0]},
				{Name: "🕐 Timestamp", Value: w.timestamp()},
			},
		}},
		Buttons: []discord.Button{
			{ID: session.CustomID(id, session.ActionConfirm), Label: "🗑️ Eliminar mensaje", Style: discord.ButtonDanger},
		},
	})
	if msgID == "" {
		w.sessions.Discard(id)
		return
	}
	if err := w.sessions.Bind(id, w.cfg.LogChannelID, msgID); err != nil {
		slog.Warn("failed to bind log delete session", "session_id", id, "error", err)
	}
}

func (w *Workflows) deleteRelayed(ctx context.Context, call *session.Call) error {
	err := w.dc.DeleteChannelMessage(ctx, call.Next.Data[dataTargetChannel], call.Next.Data[dataTargetMessage])
	notice := msgLogDeleted
	if err != nil && !errors.Is(err, discord.ErrMessageNotFound) {
		slog.Warn("failed to delete relayed message", "session_id", call.Next.ID, "error", err)
		notice = msgLogDeleteFail
	}
	if err := w.dc.ClearComponents(ctx, call.Next.ChannelID, call.Next.MessageID); err != nil {
		slog.Debug("failed to clear log message controls", "session_id", call.Next.ID, "error", err)
	}
	_, rerr := call.Event.Responder.Respond(ctx, discord.Reply{Content: notice, Ephemeral: true})
	return rerr
}

func (w *Workflows) decipher(ctx context.Context, in discord.Interaction) error {
	if w.cfg.SecretPassword == "" {
		return notConfigured("descifrar", msgSecretNotConfigured)
	}
	attempt, err := requiredOption(in, "clave")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, true); err != nil {
		return err
	}
	mention := "<@" + in.UserID + ">"
	if subtle.ConstantTimeCompare([]byte(attempt), []byte(w.cfg.SecretPassword)) != 1 {
		slog.Info("secret password attempt failed", "user_id", in.UserID, "guild_id", in.GuildID)
		w.logToChannel(ctx, discord.Reply{Embeds: []discord.Embed{{
			Title:  "🚨 Intento de contraseña fallido",
			Color:  colorAlert,
			Fields: []discord.EmbedField{{Name: "Usuario", Value: fmt.Sprintf("%s (%s)", in.UserTag, in.UserID)}},
		}}})
		_, err := in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{{
			Title:       "❌ Contraseña incorrecta",
			Description: "Intenta nuevamente. La contraseña sigue oculta...",
			Color:       colorDanger,
		}}})
		return err
	}

	slog.Info("secret password solved", "user_id", in.UserID, "guild_id", in.GuildID)
	if _, err := in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{{
		Title:       "🔓 ¡Contraseña correcta!",
		Description: fmt.Sprintf("¡Felicidades %s! Has descifrado la contraseña secreta.", mention),
		Color:       colorSecret,
		Footer:      "Acceso concedido",
	}}}); err != nil {
		return err
	}
	if _, err := w.dc.SendChannelMessage(ctx, in.ChannelID, discord.Reply{Embeds: []discord.Embed{{
		Title:       "🎉 Contraseña descifrada",
		Description: mention + " ha logrado descifrar la contraseña secreta del bot.",
		Color:       colorSecret,
	}}}); err != nil {
		slog.Warn("failed to announce solved password", "channel_id", in.ChannelID, "error", err)
	}
	w.logToChannel(ctx, discord.Reply{Content: fmt.Sprintf("✅ %s descifró la contraseña correctamente.", in.UserTag)})
	return nil
}
