package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/foxseedlab/kiosko/internal/apperror"
	"github.com/foxseedlab/kiosko/internal/media"
)

var (
	ErrUnavailable = fmt.Errorf("provider unavailable: %w", apperror.ErrProviderFailure)
	// ErrNotReady means a submitted scan has no result yet.
	ErrNotReady = errors.New("result not ready")
)

type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ImageSearcher interface {
	SearchImages(ctx context.Context, query string) ([]string, error)
}

type VideoFile struct {
	Link    string
	Width   int
	Height  int
	Quality string
}

type Video struct {
	ID       int64
	URL      string
	Duration int
	Files    []VideoFile
}

// Smallest returns the narrowest variant, the one most likely to fit an attachment limit.
func (v Video) Smallest() (VideoFile, bool) {
	if len(v.Files) == 0 {
		return VideoFile{}, false
	}
	files := append([]VideoFile(nil), v.Files...)
	sort.SliceStable(files, func(i, j int) bool { return files[i].Width < files[j].Width })
	return files[0], true
}

type StockMedia interface {
	SearchImages(ctx context.Context, query string) ([]string, error)
	SearchVideos(ctx context.Context, query string) ([]Video, error)
}

type Verdict struct {
	Malicious  int
	Suspicious int
	Harmless   int
	Undetected int
}

type URLReputation interface {
	Submit(ctx context.Context, url string) (string, error)
	// Fetch returns ErrNotReady until the analysis for id completes.
	Fetch(ctx context.Context, id string) (Verdict, error)
}

type Preview struct {
	Title       string
	Description string
	Image       string
}

type LinkPreviewer interface {
	Preview(ctx context.Context, url string) (Preview, error)
}

// VideoSource resolves platform video links and streams them in a chosen format.
type VideoSource interface {
	media.Source
}
