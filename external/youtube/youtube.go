package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/foxseedlab/kiosko/internal/media"
	"github.com/foxseedlab/kiosko/internal/provider"
)

// Source resolves YouTube links and streams a single muxed or audio-only format.
type Source struct {
	client youtube.Client
}

func NewSource(httpClient *http.Client) *Source {
	return &Source{client: youtube.Client{HTTPClient: httpClient}}
}

var hosts = map[string]bool{
	"youtube.com":       true,
	"www.youtube.com":   true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
	"youtu.be":          true,
}

func (s *Source) ValidateRef(ref string) error {
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || !hosts[strings.ToLower(u.Hostname())] {
		return fmt.Errorf("%w: not a youtube link", media.ErrInvalidSource)
	}
	if _, err := youtube.ExtractVideoID(ref); err != nil {
		return fmt.Errorf("%w: %w", media.ErrInvalidSource, err)
	}
	return nil
}

func (s *Source) Metadata(ctx context.Context, ref string) (media.Metadata, error) {
	v, err := s.video(ctx, ref)
	if err != nil {
		return media.Metadata{}, err
	}
	meta := media.Metadata{
		Title:           v.Title,
		Author:          v.Author,
		DurationSeconds: int(v.Duration.Seconds()),
		SizeBytes:       -1,
		Views:           int64(v.Views),
	}
	if n := len(v.Thumbnails); n > 0 {
		meta.Thumbnail = v.Thumbnails[n-1].URL
	}
	return meta, nil
}

func (s *Source) Open(ctx context.Context, ref string, format media.Format) (io.ReadCloser, int64, error) {
	v, err := s.video(ctx, ref)
	if err != nil {
		return nil, 0, err
	}
	f, ok := pickFormat(v.Formats, format)
	if !ok {
		return nil, 0, fmt.Errorf("no playable %q format for %s: %w", format, v.ID, provider.ErrUnavailable)
	}
	body, size, err := s.client.GetStreamContext(ctx, v, &f)
	if err != nil {
		return nil, 0, fmt.Errorf("open stream %s itag %d: %w: %w", v.ID, f.ItagNo, provider.ErrUnavailable, err)
	}
	if size <= 0 {
		size = -1
	}
	return body, size, nil
}

func (s *Source) video(ctx context.Context, ref string) (*youtube.Video, error) {
	v, err := s.client.GetVideoContext(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("get video %s: %w: %w", ref, provider.ErrUnavailable, err)
	}
	return v, nil
}

// pickFormat prefers the best audio-only stream for audio and the tallest
// muxed mp4 for video. Formats without an audio track are never chosen.
func pickFormat(formats youtube.FormatList, want media.Format) (youtube.Format, bool) {
	withAudio := formats.WithAudioChannels()
	var best youtube.Format
	found := false
	better := func(f youtube.Format) bool {
		if !found {
			return true
		}
		if want == media.FormatAudio {
			return f.Bitrate > best.Bitrate
		}
		return f.Height > best.Height
	}
	for _, f := range withAudio {
		if !matches(f, want) {
			continue
		}
		if better(f) {
			best, found = f, true
		}
	}
	if !found && want == media.FormatAudio {
		// no audio-only stream; any muxed one still carries the track
		return pickFormat(formats, media.FormatVideo)
	}
	return best, found
}

func matches(f youtube.Format, want media.Format) bool {
	switch want {
	case media.FormatAudio:
		return strings.HasPrefix(f.MimeType, "audio/")
	default:
		return strings.HasPrefix(f.MimeType, "video/mp4")
	}
}
