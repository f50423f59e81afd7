package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/session"
)

const (
	dataURL     = "url"
	dataFormat  = "format"
	dataUserTag = "user_tag"
)

type downloadParams struct {
	URL       string
	Format    string
	UserTag   string
	Responder discord.Responder
}

func parseFormat(raw string) (media.Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "mp3":
		return media.FormatAudio, nil
	case "mp4":
		return media.FormatVideo, nil
	default:
		return "", fmt.Errorf("unknown format %q: %w", raw, apperror.ErrInvalidInput)
	}
}

func (w *Workflows) descargar(ctx context.Context, in discord.Interaction) error {
	if w.p.Video == nil {
		return notConfigured("descargar", msgVideoNotConfigured)
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	return w.download(ctx, downloadParams{
		URL:       in.Option("url"),
		Format:    in.Option("formato"),
		UserTag:   in.UserTag,
		Responder: in.Responder,
	})
}

// download fetches a platform video and attaches it to the interaction's reply.
// It is shared by /descargar and the /info download button.
func (w *Workflows) download(ctx context.Context, p downloadParams) error {
	format, err := parseFormat(p.Format)
	if err != nil {
		return err
	}
	job, err := w.media.Fetch(ctx, w.p.Video, p.URL, format, w.constraints())
	if err != nil {
		return w.downloadError(err)
	}
	defer func() {
		if err := job.Cleanup(); err != nil {
			slog.Warn("failed to clean up download", "path", job.Path, "error", err)
		}
	}()

	e := discord.Embed{
		Title:        "🎬 " + job.Meta.Title,
		Description:  fmt.Sprintf("⏱️ Duración: %s\n📦 Tamaño: %s", clock(job.Meta.DurationSeconds), humanize.IBytes(uint64(job.Bytes))),
		Color:        colorDownload,
		ThumbnailURL: job.Meta.Thumbnail,
		Fields: []discord.EmbedField{
			{Name: "🎧 Formato", Value: strings.ToUpper(p.Format), Inline: true},
			{Name: "🔗 Enlace", Value: fmt.Sprintf("[Ver original](%s)", job.SourceRef), Inline: true},
		},
	}
	if p.UserTag != "" {
		e.Footer = "Descargado por " + p.UserTag
	}
	_, err = p.Responder.Respond(ctx, discord.Reply{
		Embeds: []discord.Embed{e},
		Files:  []discord.File{{Name: job.FileName(), ContentType: job.ContentType, Path: job.Path}},
	})
	return err
}

func (w *Workflows) downloadError(err error) error {
	switch {
	case errors.Is(err, media.ErrInvalidSource):
		return apperror.WithMessage(err, msgInvalidVideoURL)
	case errors.Is(err, media.ErrTooLong):
		return apperror.WithMessage(err, fmt.Sprintf(msgVideoTooLong, w.cfg.MaxMediaDurationSec/60))
	case errors.Is(err, media.ErrTooLarge):
		return apperror.WithMessage(err, fmt.Sprintf(msgFileTooLarge, humanize.IBytes(uint64(w.cfg.MaxMediaBytes))))
	default:
		return apperror.WithMessage(err, msgDownloadFailed)
	}
}

func (w *Workflows) info(ctx context.Context, in discord.Interaction) error {
	if w.p.Video == nil {
		return notConfigured("info", msgVideoNotConfigured)
	}
	rawFormat := in.Option("formato")
	if _, err := parseFormat(rawFormat); err != nil {
		return err
	}
	url := strings.TrimSpace(in.Option("url"))
	if err := w.p.Video.ValidateRef(url); err != nil {
		return apperror.WithMessage(fmt.Errorf("%w: %w", media.ErrInvalidSource, err), msgInvalidVideoShort)
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	meta, err := w.p.Video.Metadata(ctx, url)
	if err != nil {
		return apperror.WithMessage(err, msgInfoFailed)
	}

	id, err := w.sessions.Create(session.Spec{
		Kind:        session.KindConfirm,
		OwnerID:     in.UserID,
		GuildID:     in.GuildID,
		ChannelID:   in.ChannelID,
		State:       session.StatePending,
		TTL:         w.cfg.GenerationTTL,
		Data:        map[string]string{dataURL: url, dataFormat: rawFormat, dataUserTag: in.UserTag},
		Table:       session.ConfirmTable(session.ConfirmHooks{Confirm: w.confirmDownload}),
		ActorFilter: sameChannel,
	})
	if err != nil {
		return err
	}

	e := discord.Embed{
		Title:        "🔎 " + meta.Title,
		Description:  w.printer.Sprintf("📤 Subido por: %s\n👁️ Vistas: %d", meta.Author, meta.Views),
		Color:        colorInfo,
		ThumbnailURL: meta.Thumbnail,
		Fields: []discord.EmbedField{
			{Name: "⏱️ Duración", Value: clock(meta.DurationSeconds), Inline: true},
			{Name: "🎧 Formato elegido", Value: strings.ToUpper(rawFormat), Inline: true},
		},
		Footer: "Presiona el botón para descargar",
	}
	msgID, err := in.Responder.Respond(ctx, discord.Reply{
		Embeds: []discord.Embed{e},
		Buttons: []discord.Button{
			{ID: session.CustomID(id, session.ActionConfirm), Label: "📥 Descargar ahora", Style: discord.ButtonSuccess},
		},
	})
	if err != nil {
		w.sessions.Discard(id)
		return err
	}
	return w.sessions.Bind(id, in.ChannelID, msgID)
}

func (w *Workflows) confirmDownload(ctx context.Context, call *session.Call) error {
	if err := call.Event.Responder.Defer(ctx, false); err != nil {
		return err
	}
	return w.download(ctx, downloadParams{
		URL:       call.Next.Data[dataURL],
		Format:    call.Next.Data[dataFormat],
		UserTag:   call.Next.Data[dataUserTag],
		Responder: call.Event.Responder,
	})
}

// sameChannel lets anyone in the session's channel act on it.
func sameChannel(s session.Session, a session.Actor) bool {
	return s.ChannelID != "" && a.ChannelID == s.ChannelID
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
