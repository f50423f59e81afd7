package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/discord"
	"github.com/foxseedlab/kiosko/internal/provider"
)

const previewDescriptionRunes = 300

func (w *Workflows) checkLink(ctx context.Context, in discord.Interaction) error {
	if w.p.Reputation == nil && w.p.Preview == nil {
		return notConfigured("revisar-enlace", msgLinkNotConfigured)
	}
	url, err := requiredOption(in, "url")
	if err != nil {
		return err
	}
	if err := w.validate.Var(url, "http_url"); err != nil {
		return apperror.WithMessage(fmt.Errorf("link %q: %w", url, apperror.ErrInvalidInput), msgLinkFailed)
	}
	if err := in.Responder.Defer(ctx, false); err != nil {
		return err
	}

	var (
		verdict    *provider.Verdict
		preview    *provider.Preview
		scanErr    error
		previewErr error
	)
	var g errgroup.Group
	if w.p.Reputation != nil {
		g.Go(func() error {
			v, err := w.scan(ctx, url)
			if err != nil {
				scanErr = err
				return nil
			}
			verdict = &v
			return nil
		})
	}
	if w.p.Preview != nil {
		g.Go(func() error {
			p, err := w.p.Preview.Preview(ctx, url)
			if err != nil {
				previewErr = err
				return nil
			}
			preview = &p
			return nil
		})
	}
	_ = g.Wait()

	if scanErr != nil {
		slog.Warn("url reputation check failed", "url", url, "error", scanErr)
	}
	if previewErr != nil {
		slog.Warn("link preview failed", "url", url, "error", previewErr)
	}
	if verdict == nil && preview == nil {
		return apperror.WithMessage(errors.Join(provider.ErrUnavailable, scanErr, previewErr), msgLinkFailed)
	}

	_, err = in.Responder.Respond(ctx, discord.Reply{Embeds: []discord.Embed{renderLinkReport(url, verdict, preview)}})
	return err
}

// scan submits url and polls for the verdict with exponential backoff until
// ScanMaxWait elapses.
func (w *Workflows) scan(ctx context.Context, url string) (provider.Verdict, error) {
	id, err := w.p.Reputation.Submit(ctx, url)
	if err != nil {
		return provider.Verdict{}, fmt.Errorf("submit url: %w", err)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.scanInterval
	b.MaxInterval = 4 * w.scanInterval

	v, err := backoff.Retry(ctx, func() (provider.Verdict, error) {
		v, err := w.p.Reputation.Fetch(ctx, id)
		if err != nil && !errors.Is(err, provider.ErrNotReady) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(w.cfg.ScanMaxWait))
	if errors.Is(err, provider.ErrNotReady) {
		return provider.Verdict{}, fmt.Errorf("analysis %s not ready after %s: %w", id, w.cfg.ScanMaxWait, provider.ErrUnavailable)
	}
	if err != nil {
		return provider.Verdict{}, fmt.Errorf("fetch analysis %s: %w", id, err)
	}
	return v, nil
}

func renderLinkReport(url string, v *provider.Verdict, p *provider.Preview) discord.Embed {
	e := discord.Embed{
		Title:       "🔗 Análisis de enlace",
		Description: fmt.Sprintf("**URL analizada:**\n`%s`", url),
		Color:       colorLog,
		Footer:      "Análisis completado",
	}
	if v != nil {
		if v.Malicious > 0 {
			e.Color = colorDanger
		}
		e.Fields = append(e.Fields, discord.EmbedField{
			Name: "🔒 Análisis de seguridad (VirusTotal)",
			Value: fmt.Sprintf("🔴 Maliciosos: %d\n🟡 Sospechosos: %d\n🟢 Seguros: %d\n⚪ Sin detectar: %d",
				v.Malicious, v.Suspicious, v.Harmless, v.Undetected),
		})
	}
	if p != nil {
		title, desc := p.Title, p.Description
		if title == "" {
			title = "Sin título"
		}
		if desc == "" {
			desc = "Sin descripción"
		}
		e.Fields = append(e.Fields,
			discord.EmbedField{Name: "📄 Título", Value: title},
			discord.EmbedField{Name: "📝 Descripción", Value: splitRunes(desc, previewDescriptionRunes)[0]},
		)
		e.ThumbnailURL = p.Image
	}
	return e
}
