package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoHistoricalData is returned when no year could be obtained for a request.
	ErrNoHistoricalData = errors.New("could not obtain historical data")

	// ErrCorruptEntry is returned by stores for entries that cannot be decoded.
	ErrCorruptEntry = errors.New("corrupt cache entry")
)

// ErrorKind classifies provider failures.
type ErrorKind int

const (
	KindTransient ErrorKind = iota
	KindPermanent
)

func (k ErrorKind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// FetchError is a classified provider failure.
type FetchError struct {
	Kind ErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindTransient, Err: err}
}

// Permanent marks err as not retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Kind: KindPermanent, Err: err}
}

// IsPermanent reports whether err was classified as permanent.
// Unclassified errors are treated as transient.
func IsPermanent(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindPermanent
	}
	return false
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
