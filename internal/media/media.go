package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/foxseedlab/kiosko/internal/apperror"
)

var (
	ErrInvalidSource = fmt.Errorf("invalid media source: %w", apperror.ErrInvalidInput)
	ErrTooLong       = fmt.Errorf("media too long: %w", apperror.ErrSizeOrDurationExceeded)
	ErrTooLarge      = fmt.Errorf("media too large: %w", apperror.ErrSizeOrDurationExceeded)
	ErrEmpty         = errors.New("media payload is empty")
)

type Format string

const (
	FormatAny   Format = ""
	FormatAudio Format = "audio"
	FormatVideo Format = "video"
)

// Metadata is whatever a source knows before the payload is transferred.
// Zero DurationSeconds or negative SizeBytes mean unknown.
type Metadata struct {
	Title           string
	Author          string
	DurationSeconds int
	SizeBytes       int64
	Thumbnail       string
	Views           int64
}

type Source interface {
	ValidateRef(ref string) error
	Metadata(ctx context.Context, ref string) (Metadata, error)
	// Open starts the payload transfer. size is -1 when unknown.
	Open(ctx context.Context, ref string, format Format) (body io.ReadCloser, size int64, err error)
}

type Constraints struct {
	MaxDurationSeconds int
	MaxBytes           int64
}

type JobState string

const (
	JobFetching JobState = "fetching"
	JobReady    JobState = "ready"
	JobFailed   JobState = "failed"
	JobCleaned  JobState = "cleaned"
)

type Job struct {
	SourceRef   string
	Format      Format
	Constraints Constraints
	Meta        Metadata

	Path        string
	Bytes       int64
	ContentType string
	Extension   string

	mu    sync.Mutex
	state JobState
	err   error
	once  sync.Once
}

func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// FileName is the attachment name for the artifact.
func (j *Job) FileName() string {
	name := safeName(j.Meta.Title)
	if name == "" {
		name = "media"
	}
	return name + j.Extension
}

// Cleanup removes the artifact. Only the first call has any effect.
func (j *Job) Cleanup() error {
	var err error
	j.once.Do(func() {
		if j.Path != "" {
			err = removeQuiet(j.Path)
		}
		j.mu.Lock()
		if j.state != JobFailed {
			j.state = JobCleaned
		}
		j.mu.Unlock()
	})
	return err
}

func (j *Job) setState(s JobState, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.state = s
	j.err = err
}
