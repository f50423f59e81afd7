package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/foxseedlab/kiosko/internal/apperror"
)

// HTTPSource fetches a direct file url, such as a stock video variant.
type HTTPSource struct {
	Client *http.Client
}

func (s HTTPSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

func (s HTTPSource) ValidateRef(ref string) error {
	u, err := url.Parse(ref)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func (s HTTPSource) Metadata(ctx context.Context, ref string) (Metadata, error) {
	meta := Metadata{Title: titleFromURL(ref), SizeBytes: -1}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return meta, err
	}
	res, err := s.client().Do(req)
	if err != nil {
		return meta, fmt.Errorf("%w: %w", apperror.ErrProviderFailure, err)
	}
	_ = res.Body.Close()
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		meta.SizeBytes = res.ContentLength
	}
	return meta, nil
}

func (s HTTPSource) Open(ctx context.Context, ref string, _ Format) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, 0, err
	}
	res, err := s.client().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", apperror.ErrProviderFailure, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_ = res.Body.Close()
		return nil, 0, fmt.Errorf("%w: status %d", apperror.ErrProviderFailure, res.StatusCode)
	}
	return res.Body, res.ContentLength, nil
}

func titleFromURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return u.Hostname()
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
