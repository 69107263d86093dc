package analysis

import "errors"

// Validation errors, raised before any network call.
var (
	ErrNoImage         = errors.New("no images uploaded")
	ErrTooManyImages   = errors.New("at most two images can be analyzed")
	ErrUnknownMode     = errors.New("unknown analysis mode")
	ErrUnknownAudience = errors.New("unknown audience level")
)

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// QuotaMarker is the error code the HTTP API uses for ErrQuotaExceeded.
const QuotaMarker = "DEMO_QUOTA_EXCEEDED"

// FailedError is any other remote failure. Message is shown to the user as-is.
type FailedError struct {
	Message string
	Err     error
}

func (e *FailedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "analysis failed"
}

func (e *FailedError) Unwrap() error { return e.Err }

// Failed wraps err as a *FailedError unless it already is one or is a quota error.
func Failed(err error) error {
	if err == nil {
		return nil
	}
	var fe *FailedError
	if errors.Is(err, ErrQuotaExceeded) || errors.As(err, &fe) {
		return err
	}
	return &FailedError{Message: err.Error(), Err: err}
}

// IsValidation reports whether err was raised by input validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNoImage) ||
		errors.Is(err, ErrTooManyImages) ||
		errors.Is(err, ErrUnknownMode) ||
		errors.Is(err, ErrUnknownAudience)
}
