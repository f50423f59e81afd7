package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
)

const (
	maxNameRunes = 40
	tempSuffix   = ".part"
)

type Pipeline struct {
	dir      string
	validate *validator.Validate
	now      func() time.Time
}

func NewPipeline(dir string) (*Pipeline, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}
	return &Pipeline{
		dir:      dir,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}, nil
}

func (p *Pipeline) Dir() string {
	return p.dir
}

// Fetch downloads ref into a fresh artifact. An invalid ref returns no job.
// Every other failure returns the failed job alongside the error, with its artifact already removed.
func (p *Pipeline) Fetch(ctx context.Context, src Source, ref string, format Format, c Constraints) (*Job, error) {
	ref = strings.TrimSpace(ref)
	if err := p.validate.Var(ref, "required,http_url"); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, ref)
	}
	if err := src.ValidateRef(ref); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	job := &Job{SourceRef: ref, Format: format, Constraints: c, state: JobFetching}
	if err := p.fetch(ctx, src, job); err != nil {
		if cerr := job.Cleanup(); cerr != nil {
			slog.Warn("failed to remove media artifact", "path", job.Path, "error", cerr)
		}
		job.setState(JobFailed, err)
		slog.Info("media fetch failed", "ref", ref, "error", err)
		return job, err
	}
	job.setState(JobReady, nil)
	slog.Info("media fetched", "ref", ref, "bytes", job.Bytes, "content_type", job.ContentType)
	return job, nil
}

func (p *Pipeline) fetch(ctx context.Context, src Source, job *Job) error {
	c := job.Constraints
	meta, err := src.Metadata(ctx, job.SourceRef)
	if err != nil {
		return fmt.Errorf("failed to read media metadata: %w", err)
	}
	job.Meta = meta
	if c.MaxDurationSeconds > 0 && meta.DurationSeconds > c.MaxDurationSeconds {
		return fmt.Errorf("%w: %ds > %ds", ErrTooLong, meta.DurationSeconds, c.MaxDurationSeconds)
	}
	if c.MaxBytes > 0 && meta.SizeBytes > c.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, meta.SizeBytes, c.MaxBytes)
	}

	body, size, err := src.Open(ctx, job.SourceRef, job.Format)
	if err != nil {
		return fmt.Errorf("failed to open media stream: %w", err)
	}
	defer body.Close()
	if c.MaxBytes > 0 && size > c.MaxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, c.MaxBytes)
	}

	f, err := os.CreateTemp(p.dir, p.tempPattern(meta.Title))
	if err != nil {
		return fmt.Errorf("failed to create media artifact: %w", err)
	}
	job.Path = f.Name()

	var r io.Reader = body
	if c.MaxBytes > 0 {
		r = &io.LimitedReader{R: body, N: c.MaxBytes + 1}
	}
	written, err := io.Copy(f, readerWithContext{ctx: ctx, r: r})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	job.Bytes = written
	if err != nil {
		return fmt.Errorf("failed to transfer media: %w", err)
	}
	if c.MaxBytes > 0 && written > c.MaxBytes {
		return fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.MaxBytes)
	}
	if written == 0 {
		return ErrEmpty
	}

	mt, err := mimetype.DetectFile(job.Path)
	if err != nil {
		return fmt.Errorf("failed to detect media type: %w", err)
	}
	job.ContentType = mt.String()
	job.Extension = mt.Extension()
	final := strings.TrimSuffix(job.Path, tempSuffix) + job.Extension
	if err := os.Rename(job.Path, final); err != nil {
		return fmt.Errorf("failed to finalize media artifact: %w", err)
	}
	job.Path = final
	return nil
}

// tempPattern derives a name from the title and fetch time; CreateTemp adds the random part.
func (p *Pipeline) tempPattern(title string) string {
	name := safeName(title)
	if name == "" {
		name = "media"
	}
	return name + "-" + strconv.FormatInt(p.now().UnixNano(), 10) + "-*" + tempSuffix
}

// SweepOrphans removes artifacts older than olderThan, left behind by a crash or a lost caller.
func (p *Pipeline) SweepOrphans(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list download dir: %w", err)
	}
	cutoff := p.now().Add(-olderThan)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := removeQuiet(filepath.Join(p.dir, e.Name())); err != nil {
			slog.Warn("failed to remove orphan media", "name", e.Name(), "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		slog.Info("orphan media removed", "count", removed)
	}
	return removed, nil
}

func safeName(title string) string {
	var b strings.Builder
	n := 0
	lastSep := false
	for _, r := range strings.ToLower(title) {
		if n >= maxNameRunes {
			break
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastSep = false
		case !lastSep && b.Len() > 0:
			b.WriteByte('_')
			lastSep = true
		default:
			continue
		}
		n++
	}
	return strings.TrimRight(b.String(), "_")
}

func removeQuiet(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
