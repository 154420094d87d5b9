package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure so callers can tell the taxonomy apart without
// string matching.
type Kind string

const (
	KindValidation         Kind = "validation"
	KindDecode             Kind = "decode"
	KindEncoderUnavailable Kind = "encoder_unavailable"
	KindCapture            Kind = "capture"
	KindStorage            Kind = "storage"
	KindCancelled          Kind = "cancelled"
)

var (
	ErrMissingLogo        = errors.New("logo is required before export")
	ErrMissingSource      = errors.New("no source media provided")
	ErrInvalidAttributes  = errors.New("invalid vehicle attributes")
	ErrWrongMode          = errors.New("operation not available in the current mode")
	ErrNoSupportedEncoder = errors.New("no supported encoder")
	ErrRecorderBusy       = errors.New("a recording is already in progress")
	ErrRecorderUsed       = errors.New("recorder has already run")
	ErrBatchActive        = errors.New("a still export is already in progress")
	ErrCancelled          = errors.New("recording cancelled")
	ErrNoDealer           = errors.New("no dealer in session")
	ErrAssetNotFound      = errors.New("asset not found")
)

// Error is the structured error returned by every export operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an *Error of the given kind. A nil err yields nil.
func E(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error { return E(KindValidation, op, err) }
func Decode(op string, err error) error { return E(KindDecode, op, err) }
func Capture(op string, err error) error { return E(KindCapture, op, err) }
func Storage(op string, err error) error { return E(KindStorage, op, err) }

// InvalidAttributes wraps a VehicleAttributes.Validate failure so both the
// sentinel and the field detail survive.
func InvalidAttributes(op string, err error) error {
	if err == nil {
		return nil
	}
	return Validation(op, fmt.Errorf("%w: %v", ErrInvalidAttributes, err))
}

// KindOf reports the Kind of the outermost *Error in err's chain, or "" when
// err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
