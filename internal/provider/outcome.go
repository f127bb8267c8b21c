// Package provider holds the plumbing shared by the four remote data
// sources: the Outcome tagged union every fetch returns, the HTTP JSON
// fetcher, and the matchers that recognise quota-exceeded payloads.
//
// WHY A TAGGED UNION INSTEAD OF (T, error)?
// A panel must treat "the provider says your quota is gone" differently from
// "the network failed" and from "the JSON has the wrong shape": the first
// raises a persistent notice, the others show an error, and none of them may
// erase what is already on screen. Encoding the four cases in one value keeps
// every provider-shape assumption in the mapping functions and lets the
// panel switch on Kind.
package provider

import (
	"errors"
	"fmt"
)

// Kind is the tag of an Outcome.
type Kind int

const (
	KindOK Kind = iota
	KindQuotaExceeded
	KindMalformed
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindMalformed:
		return "malformed_response"
	case KindTransport:
		return "network_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the result of one provider call.
// Value is meaningful only when Kind is KindOK; Err only otherwise.
type Outcome[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// OK wraps a successful value.
func OK[T any](v T) Outcome[T] {
	return Outcome[T]{Kind: KindOK, Value: v}
}

// QuotaExceeded reports a recognised rate-limit payload. message is the
// provider's own wording, shown in the notice.
func QuotaExceeded[T any](message string) Outcome[T] {
	if message == "" {
		message = "API request limit reached"
	}
	return Outcome[T]{Kind: KindQuotaExceeded, Err: &Failure{Kind: KindQuotaExceeded, Err: errors.New(message)}}
}

// Malformed reports a response whose shape is not what the mapping expects.
func Malformed[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindMalformed, Err: &Failure{Kind: KindMalformed, Err: err}}
}

// Transport reports a failure to get a usable response at all.
func Transport[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindTransport, Err: &Failure{Kind: KindTransport, Err: err}}
}

// Ok reports whether the outcome carries a value.
func (o Outcome[T]) Ok() bool {
	return o.Kind == KindOK
}

// Message is the human-readable failure text, empty on success.
func (o Outcome[T]) Message() string {
	if o.Err == nil {
		return ""
	}
	var f *Failure
	if errors.As(o.Err, &f) {
		return f.Err.Error()
	}
	return o.Err.Error()
}

// AsError returns nil on success and a *Failure otherwise, so outcomes can
// travel through APIs that speak error (errgroup).
func (o Outcome[T]) AsError() error {
	if o.Kind == KindOK {
		return nil
	}
	var f *Failure
	if errors.As(o.Err, &f) {
		return f
	}
	return &Failure{Kind: o.Kind, Err: o.Err}
}

// Failure is a non-OK outcome seen as an error.
type Failure struct {
	Kind Kind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// FromError converts an error back into a failed Outcome. A *Failure keeps
// its kind; anything else is a transport failure.
func FromError[T any](err error) Outcome[T] {
	var f *Failure
	if errors.As(err, &f) {
		return Outcome[T]{Kind: f.Kind, Err: f}
	}
	return Transport[T](err)
}

// Retag carries a failed outcome over to another value type.
func Retag[T, U any](o Outcome[T]) Outcome[U] {
	return Outcome[U]{Kind: o.Kind, Err: o.Err}
}

// ResultSet is one page of items plus the provider's total-count hint
// (zero when the provider gives none).
type ResultSet[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// StatusError is a non-2xx HTTP response that is not a quota payload.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider returned HTTP %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider returned HTTP %d", e.Status)
}
