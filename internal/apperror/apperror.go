package apperror

import "errors"

type Kind string

const (
	KindConfigurationMissing   Kind = "configuration_missing"
	KindInvalidInput           Kind = "invalid_input"
	KindUnauthorized           Kind = "unauthorized"
	KindNotFound               Kind = "not_found"
	KindProviderFailure        Kind = "provider_failure"
	KindSizeOrDurationExceeded Kind = "size_or_duration_exceeded"
	KindExpired                Kind = "expired"
	KindInternal               Kind = "internal"
)

var (
	ErrConfigurationMissing   = errors.New("dependency is not configured")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("no results")
	ErrProviderFailure        = errors.New("provider failure")
	ErrSizeOrDurationExceeded = errors.New("size or duration exceeded")
	ErrExpired                = errors.New("expired")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrConfigurationMissing, KindConfigurationMissing},
	{ErrInvalidInput, KindInvalidInput},
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotFound, KindNotFound},
	{ErrProviderFailure, KindProviderFailure},
	{ErrSizeOrDurationExceeded, KindSizeOrDurationExceeded},
	{ErrExpired, KindExpired},
}

// KindOf classifies err by the first sentinel it wraps. Anything unclassified is internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// UserError carries a message that is safe to show as-is.
type UserError struct {
	Message string
	Err     error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WithMessage attaches a user-facing message to err while keeping its kind.
func WithMessage(err error, message string) error {
	return &UserError{Message: message, Err: err}
}

// MessageOf returns the outermost user-facing message in err's chain.
func MessageOf(err error) (string, bool) {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message, true
	}
	return "", false
}
