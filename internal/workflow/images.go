package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/provider"
	"github.com/foxseedlab/kiosko/internal/session"
)

const (
	dataQuery  = "query"
	dataSource = "source"

	sourceGoogle = "google"
	sourcePexels = "pexels"
)

func (w *Workflows) googleImages(ctx context.Context, in discord.Interaction) error {
	if w.p.Images == nil {
		return notConfigured("imagen", msgImagesNotConfigured)
	}
	query, err := requiredOption(in, "busqueda")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	urls, err := w.p.Images.SearchImages(ctx, query)
	if err != nil {
		return apperror.WithMessage(err, msgImagesFailed)
	}
	if len(urls) == 0 {
		return apperror.WithMessage(fmt.Errorf("image search %q: %w", query, apperror.ErrNotFound), msgImagesNotFound)
	}
	return w.openCarousel(ctx, in, query, sourceGoogle, urls)
}

func (w *Workflows) pexelsImages(ctx context.Context, in discord.Interaction) error {
	if w.p.Stock == nil {
		return notConfigured("imagenes-public", msgPexelsNotConfigured)
	}
	query, err := requiredOption(in, "busqueda")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	urls, err := w.p.Stock.SearchImages(ctx, query)
	if err != nil {
		return apperror.WithMessage(err, msgPexelsFailed)
	}
	if len(urls) == 0 {
		return apperror.WithMessage(fmt.Errorf("pexels search %q: %w", query, apperror.ErrNotFound), msgPexelsNotFound)
	}
	return w.openCarousel(ctx, in, query, sourcePexels, urls)
}

func (w *Workflows) openCarousel(ctx context.Context, in discord.Interaction, query, source string, urls []string) error {
	id, err := w.sessions.Create(session.Spec{
		Kind:      session.KindCarousel,
		OwnerID:   in.UserID,
		GuildID:   in.GuildID,
		ChannelID: in.ChannelID,
		State:     session.StateViewing,
		TTL:       w.cfg.CarouselTTL,
		Items:     urls,
		Data:      map[string]string{dataQuery: query, dataSource: source},
		Table: session.CarouselTable(session.CarouselHooks{
			Render: w.renderCarouselTurn,
			Save:   w.saveImage,
			Delete: w.deleteHost,
		}),
	})
	if err != nil {
		return err
	}
	s, ok := w.sessions.Get(id)
	if !ok {
		return fmt.Errorf("carousel %s vanished before render", id)
	}
	msgID, err := in.Responder.Respond(ctx, renderCarousel(s))
	if err != nil {
		w.sessions.Discard(id)
		return err
	}
	return w.sessions.Bind(id, in.ChannelID, msgID)
}

func (w *Workflows) renderCarouselTurn(ctx context.Context, call *session.Call) error {
	return call.Event.Responder.Update(ctx, renderCarousel(*call.Next))
}

func (w *Workflows) saveImage(ctx context.Context, call *session.Call) error {
	return w.sendDM(ctx, call, []string{"📷 Imagen guardada:\n" + call.Next.Current()}, msgImageSaved, msgDMClosedLong)
}

func renderCarousel(s session.Session) discord.Reply {
	color, source := colorGoogle, "Google"
	if s.Data[dataSource] == sourcePexels {
		color, source = colorPexels, "Pexels"
	}
	single := len(s.Items) == 1
	return discord.Reply{
		Embeds: []discord.Embed{{
			Title:       fmt.Sprintf("🖼️ Imagen %d/%d", s.Index+1, len(s.Items)),
			Description: fmt.Sprintf("🔍 Búsqueda: **%s**", s.Data[dataQuery]),
			ImageURL:    s.Current(),
			Color:       color,
			Footer:      fmt.Sprintf("Fuente: %s • Usa los botones para navegar", source),
		}},
		Buttons: []discord.Button{
			{ID: session.CustomID(s.ID, session.ActionPrev), Label: "⏪ Anterior", Style: discord.ButtonSecondary, Disabled: single},
			{ID: session.CustomID(s.ID, session.ActionNext), Label: "⏩ Siguiente", Style: discord.ButtonSecondary, Disabled: single},
			{ID: session.CustomID(s.ID, session.ActionSave), Label: "📩 Guardar", Style: discord.ButtonSuccess},
			{ID: session.CustomID(s.ID, session.ActionDelete), Label: "🗑️ Eliminar", Style: discord.ButtonDanger},
		},
	}
}

func (w *Workflows) stockVideo(ctx context.Context, in discord.Interaction) error {
	if w.p.Stock == nil {
		return notConfigured("videos-public", msgPexelsNotConfigured)
	}
	query, err := requiredOption(in, "busqueda")
	if err != nil {
		return err
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}
	videos, err := w.p.Stock.SearchVideos(ctx, query)
	if err != nil {
		return apperror.WithMessage(err, msgStockVideoFailed)
	}
	var file provider.VideoFile
	found := false
	if len(videos) > 0 {
		file, found = videos[0].Smallest()
	}
	if !found {
		return apperror.WithMessage(fmt.Errorf("pexels videos %q: %w", query, apperror.ErrNotFound), msgVideosNotFound)
	}

	job, err := w.media.Fetch(ctx, w.files, file.Link, media.FormatVideo, media.Constraints{MaxBytes: w.cfg.MaxMediaBytes})
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) {
			return apperror.WithMessage(err, fmt.Sprintf(msgStockVideoTooLarge, humanize.IBytes(uint64(w.cfg.MaxMediaBytes))))
		}
		return apperror.WithMessage(err, msgStockVideoFailed)
	}
	defer func() {
		if err := job.Cleanup(); err != nil {
			slog.Warn("failed to clean up stock video", "path", job.Path, "error", err)
		}
	}()

	_, err = in.Responder.Respond(ctx, discord.Reply{
		Embeds: []discord.Embed{{
			Title:       "📹 Video de Pexels",
			Description: fmt.Sprintf("🔍 Búsqueda: %s\n📦 Tamaño: %s", query, humanize.IBytes(uint64(job.Bytes))),
			Color:       colorStock,
		}},
		Files: []discord.File{{Name: job.FileName(), ContentType: job.ContentType, Path: job.Path}},
	})
	return err
}
