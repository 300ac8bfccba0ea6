// Package transport simulates a network round trip. A call carries its
// payload back to the caller after a fixed delay measured on an injectable
// clock, or settles with a *Fault when a fault injector rejects it.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/wilhg/adformats/pkg/errmodel"
)

// DefaultDelay is the artificial latency applied to every call.
const DefaultDelay = 500 * time.Millisecond

// Response is what a settled call resolves with.
type Response[T any] struct {
	RequestID string
	Data      T
}

// Fault is a failed round trip. Response carries the error payload the
// remote side would have answered with.
type Fault struct {
	Op        string
	RequestID string
	Response  *errmodel.Error
}

func (f *Fault) Error() string {
	if f == nil || f.Response == nil {
		return "transport fault"
	}
	return "transport fault: " + f.Response.Error()
}

func (f *Fault) Unwrap() error {
	if f == nil || f.Response == nil {
		return nil
	}
	return f.Response
}

// FaultInjector decides whether the call named op fails. A nil return lets the
// call succeed.
type FaultInjector func(op string) error

// Transport holds the latency and fault settings shared by all calls.
type Transport struct {
	delay  time.Duration
	clock  clockwork.Clock
	inject FaultInjector
	logger *zap.Logger
}

// Option configures a Transport.
type Option func(*Transport)

// WithDelay overrides DefaultDelay. Non-positive values settle calls immediately.
func WithDelay(d time.Duration) Option { return func(t *Transport) { t.delay = d } }

// WithClock sets the clock used to measure the delay.
func WithClock(c clockwork.Clock) Option {
	return func(t *Transport) {
		if c != nil {
			t.clock = c
		}
	}
}

// WithFaultInjector installs a fault injector.
func WithFaultInjector(f FaultInjector) Option { return func(t *Transport) { t.inject = f } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// New constructs a Transport.
func New(opts ...Option) *Transport {
	t := &Transport{
		delay:  DefaultDelay,
		clock:  clockwork.NewRealClock(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Delay returns the configured latency.
func (t *Transport) Delay() time.Duration { return t.delay }

// Call is an in-flight round trip.
type Call[T any] struct {
	id   string
	op   string
	done chan struct{}
	resp Response[T]
	err  error
}

// Send starts a round trip carrying payload. The delay timer is armed before
// Send returns, so a fake clock observes the waiter immediately. Cancelling ctx
// settles the call with ctx.Err().
func Send[T any](ctx context.Context, tr *Transport, op string, payload T) *Call[T] {
	c := &Call[T]{id: uuid.NewString(), op: op, done: make(chan struct{})}
	tr.logger.Debug("transport send",
		zap.String("op", op),
		zap.String("request_id", c.id),
		zap.Duration("delay", tr.delay))

	if tr.delay <= 0 {
		c.settle(tr, payload, ctx.Err())
		return c
	}
	timer := tr.clock.NewTimer(tr.delay)
	go func() {
		defer timer.Stop()
		select {
		case <-ctx.Done():
			c.settle(tr, payload, ctx.Err())
		case <-timer.Chan():
			c.settle(tr, payload, nil)
		}
	}()
	return c
}

func (c *Call[T]) settle(tr *Transport, payload T, err error) {
	defer close(c.done)
	if err == nil && tr.inject != nil {
		if ierr := tr.inject(c.op); ierr != nil {
			err = c.fault(ierr)
		}
	}
	if err != nil {
		c.err = err
		tr.logger.Debug("transport failed",
			zap.String("op", c.op),
			zap.String("request_id", c.id),
			zap.Error(err))
		return
	}
	c.resp = Response[T]{RequestID: c.id, Data: payload}
	tr.logger.Debug("transport settled", zap.String("op", c.op), zap.String("request_id", c.id))
}

func (c *Call[T]) fault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	var ce *errmodel.Error
	if !errors.As(err, &ce) {
		ce = errmodel.Network(errmodel.CodeTransport, err.Error(), map[string]any{"op": c.op})
	}
	return &Fault{Op: c.op, RequestID: c.id, Response: ce}
}

// ID returns the request id assigned at Send.
func (c *Call[T]) ID() string { return c.id }

// Op returns the operation name.
func (c *Call[T]) Op() string { return c.op }

// Done is closed once the call has settled.
func (c *Call[T]) Done() <-chan struct{} { return c.done }

// Settled reports whether the call has settled without blocking.
func (c *Call[T]) Settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the call settles or ctx is done.
func (c *Call[T]) Wait(ctx context.Context) (Response[T], error) {
	select {
	case <-c.done:
		return c.resp, c.err
	case <-ctx.Done():
		return Response[T]{}, ctx.Err()
	}
}
