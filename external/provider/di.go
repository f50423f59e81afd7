package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/foxseedlab/kiosko/external/gemini"
	"github.com/foxseedlab/kiosko/external/googlesearch"
	"github.com/foxseedlab/kiosko/external/linkpreview"
	"github.com/foxseedlab/kiosko/external/pexels"
	"github.com/foxseedlab/kiosko/external/virustotal"
	"github.com/foxseedlab/kiosko/external/youtube"
	"github.com/foxseedlab/kiosko/internal/config"
	"github.com/foxseedlab/kiosko/internal/workflow"
)

const providerInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (workflow.Providers, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return Build(cfg)
	})
}

// Build constructs every integration that has credentials. Missing ones stay nil.
func Build(cfg *config.Config) (workflow.Providers, error) {
	ctx, cancel := context.WithTimeout(context.Background(), providerInitTimeout)
	defer cancel()

	p := workflow.Providers{
		Preview: linkpreview.NewClient(cfg.LinkPreviewAPIKey),
		Video:   youtube.NewSource(&http.Client{}),
	}
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return workflow.Providers{}, fmt.Errorf("failed to create gemini client: %w", err)
		}
		p.Text = g
	}
	if cfg.GoogleAPIKey != "" && cfg.GoogleCXID != "" {
		s, err := googlesearch.NewImageSearcher(ctx, cfg.GoogleAPIKey, cfg.GoogleCXID)
		if err != nil {
			return workflow.Providers{}, fmt.Errorf("failed to create custom search client: %w", err)
		}
		p.Images = s
	}
	if cfg.PexelsAPIKey != "" {
		p.Stock = pexels.NewClient(cfg.PexelsAPIKey)
	}
	if cfg.VTAPIKey != "" {
		p.Reputation = virustotal.NewClient(cfg.VTAPIKey)
	}

	for _, s := range cfg.Providers() {
		if !s.Configured {
			slog.Info("integration not configured", "name", s.Name)
		}
	}
	return p, nil
}
