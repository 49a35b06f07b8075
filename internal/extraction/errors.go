package extraction

import (
	"errors"
	"fmt"

	"gitlab.com/yelinaung/smart-finance/internal/gemini"
)

// ErrExtractionFailed matches every error returned by the Gateway.
var ErrExtractionFailed = errors.New("extraction failed")

var (
	// ErrEmptyInput indicates blank text or an empty payload.
	ErrEmptyInput = errors.New("input is empty")

	// ErrUnsupportedMedia indicates a file of a type the operation cannot read.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrVoiceCapture indicates the recording could not be transcribed.
	ErrVoiceCapture = errors.New("voice capture failed")
)

// Kind classifies an extraction failure.
type Kind int

// Failure kinds.
const (
	KindService Kind = iota
	KindParse
	KindNoRecords
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindNoRecords:
		return "no_records"
	case KindInput:
		return "input"
	default:
		return "service"
	}
}

// ExtractionError wraps the underlying cause of a failed extraction.
type ExtractionError struct {
	Kind Kind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

// Unwrap exposes both ErrExtractionFailed and the cause to errors.Is.
func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtractionFailed, e.Err}
}

func newError(kind Kind, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err}
}

// classify maps a Gemini client error onto a failure kind.
func classify(err error) Kind {
	switch {
	case errors.Is(err, gemini.ErrNoRecords):
		return KindNoRecords
	case errors.Is(err, gemini.ErrMalformedResponse), errors.Is(err, gemini.ErrEmptyResponse):
		return KindParse
	default:
		return KindService
	}
}

// KindOf returns the failure kind of err, or KindService when err did not
// come from the Gateway.
func KindOf(err error) Kind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindService
}
