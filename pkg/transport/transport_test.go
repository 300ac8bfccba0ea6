package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/goleak"

	"github.com/wilhg/adformats/pkg/errmodel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSendSettlesAfterDelay(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tr := New(WithClock(fc))
	if tr.Delay() != DefaultDelay {
		t.Fatalf("delay=%v want %v", tr.Delay(), DefaultDelay)
	}

	c := Send(t.Context(), tr, "list", 42)
	if c.ID() == "" || c.Op() != "list" {
		t.Fatalf("id=%q op=%q", c.ID(), c.Op())
	}
	fc.Advance(DefaultDelay - time.Millisecond)
	if c.Settled() {
		t.Fatal("settled before the delay elapsed")
	}
	fc.Advance(time.Millisecond)

	resp, err := c.Wait(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	if resp.Data != 42 || resp.RequestID != c.ID() {
		t.Fatalf("resp=%+v", resp)
	}
	if !c.Settled() {
		t.Fatal("call should be settled after Wait")
	}
}

func TestSendZeroDelaySettlesImmediately(t *testing.T) {
	tr := New(WithDelay(0))
	c := Send(t.Context(), tr, "get", "x")
	if !c.Settled() {
		t.Fatal("zero delay should settle inline")
	}
	resp, err := c.Wait(t.Context())
	if err != nil || resp.Data != "x" {
		t.Fatalf("resp=%+v err=%v", resp, err)
	}
}

func TestFaultInjection(t *testing.T) {
	boom := errors.New("connection reset")
	tr := New(WithDelay(0), WithFaultInjector(func(op string) error {
		if op == "update" {
			return boom
		}
		return nil
	}))

	_, err := Send(t.Context(), tr, "update", 1).Wait(t.Context())
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("err=%v want *Fault", err)
	}
	if f.Op != "update" || f.Response == nil || f.Response.Code != errmodel.CodeTransport {
		t.Fatalf("fault=%+v", f)
	}
	if f.Response.Message != "connection reset" {
		t.Fatalf("message=%q", f.Response.Message)
	}

	if _, err := Send(t.Context(), tr, "list", 1).Wait(t.Context()); err != nil {
		t.Fatalf("list should pass: %v", err)
	}
}

func TestFaultInjectionKeepsCompactError(t *testing.T) {
	tr := New(WithDelay(0), WithFaultInjector(func(string) error {
		return errmodel.Network(errmodel.CodeTimeout, "upstream timed out", nil)
	}))
	_, err := Send(t.Context(), tr, "list", 1).Wait(t.Context())
	if !errmodel.IsCode(err, errmodel.CodeTimeout) {
		t.Fatalf("err=%v want timeout code", err)
	}
}

func TestCancelSettlesCall(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tr := New(WithClock(fc))
	ctx, cancel := context.WithCancel(t.Context())
	c := Send(ctx, tr, "list", 1)
	cancel()

	<-c.Done()
	_, err := c.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestWaitHonoursCallerContext(t *testing.T) {
	fc := clockwork.NewFakeClock()
	tr := New(WithClock(fc))
	c := Send(t.Context(), tr, "list", 1)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := c.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}

	fc.Advance(DefaultDelay)
	<-c.Done()
}
