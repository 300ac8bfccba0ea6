// Package result normalizes the outcome of a transport call into a uniform
// success/error envelope. TryTo never re-raises: every failure ends up in
// Outcome.Error.
package result

import (
	"context"
	"errors"

	"github.com/wilhg/adformats/pkg/errmodel"
	"github.com/wilhg/adformats/pkg/transport"
)

// Status tags an envelope.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Success is the payload of a successful call.
type Success[T any] struct {
	Status Status `json:"status"`
	Data   T      `json:"data"`
}

// OK wraps data in a success envelope.
func OK[T any](data T) Success[T] {
	return Success[T]{Status: StatusSuccess, Data: data}
}

// ResponseError is the payload of a failed call.
type ResponseError struct {
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// Fail builds a ResponseError from any error.
func Fail(err error) *ResponseError {
	ce := errmodel.From(err)
	if ce == nil {
		ce = errmodel.System(errmodel.CodeInternal, "unknown error", nil, nil)
	}
	return &ResponseError{
		Status:   StatusError,
		Message:  ce.Message,
		Code:     ce.Code,
		Category: ce.Category,
	}
}

// Outcome holds exactly one of Data or Error.
type Outcome[T any] struct {
	Data  *Success[T]    `json:"data,omitempty"`
	Error *ResponseError `json:"error,omitempty"`
}

// Succeeded wraps data in a success outcome without a transport round trip.
func Succeeded[T any](data T) Outcome[T] {
	s := OK(data)
	return Outcome[T]{Data: &s}
}

// Failed wraps err in an error outcome.
func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{Error: Fail(err)}
}

// OK reports whether the outcome is a success.
func (o Outcome[T]) OK() bool { return o.Error == nil && o.Data != nil }

// Unwrap returns the data or the error.
func (o Outcome[T]) Unwrap() (T, error) {
	var zero T
	if o.Error != nil {
		return zero, o.Error
	}
	if o.Data == nil {
		return zero, Fail(errors.New("empty outcome"))
	}
	return o.Data.Data, nil
}

// TryTo awaits call and normalizes its outcome. A *transport.Fault
// contributes its attached error payload; any other error, including
// cancellation of ctx, is classified through errmodel.From.
func TryTo[T any](ctx context.Context, call *transport.Call[Success[T]]) Outcome[T] {
	resp, err := call.Wait(ctx)
	if err != nil {
		var f *transport.Fault
		if errors.As(err, &f) && f.Response != nil {
			return Outcome[T]{Error: Fail(f.Response)}
		}
		return Failed[T](err)
	}
	data := resp.Data
	return Outcome[T]{Data: &data}
}
