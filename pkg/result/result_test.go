package result

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"

	"github.com/wilhg/adformats/pkg/errmodel"
	"github.com/wilhg/adformats/pkg/transport"
)

func TestTryToSuccess(t *testing.T) {
	tr := transport.New(transport.WithDelay(0))
	out := TryTo(t.Context(), transport.Send(t.Context(), tr, "list", OK([]int{1, 2})))
	if !out.OK() || out.Error != nil {
		t.Fatalf("out=%+v", out)
	}
	if out.Data.Status != StatusSuccess {
		t.Fatalf("status=%q", out.Data.Status)
	}
	got, err := out.Unwrap()
	if err != nil || len(got) != 2 {
		t.Fatalf("got=%v err=%v", got, err)
	}
}

func TestTryToFault(t *testing.T) {
	tr := transport.New(transport.WithDelay(0), transport.WithFaultInjector(func(string) error {
		return errors.New("disconnected")
	}))
	out := TryTo(t.Context(), transport.Send(t.Context(), tr, "update", OK(1)))
	if out.OK() || out.Data != nil {
		t.Fatalf("out=%+v", out)
	}
	if out.Error.Status != StatusError || out.Error.Code != errmodel.CodeTransport || out.Error.Message != "disconnected" {
		t.Fatalf("error=%+v", out.Error)
	}
	if _, err := out.Unwrap(); err == nil {
		t.Fatal("Unwrap should return the error")
	}
}

func TestTryToCancelled(t *testing.T) {
	tr := transport.New(transport.WithClock(clockwork.NewFakeClock()))
	ctx, cancel := context.WithCancel(t.Context())
	call := transport.Send(ctx, tr, "list", OK(0))
	cancel()
	out := TryTo(ctx, call)
	if out.Error == nil || out.Error.Code != errmodel.CodeCanceled {
		t.Fatalf("out=%+v", out)
	}
	<-call.Done()
}

func TestFailNormalizesPlainErrors(t *testing.T) {
	re := Fail(errors.New("boom"))
	if re.Status != StatusError || re.Code != errmodel.CodeInternal || re.Message != "boom" {
		t.Fatalf("re=%+v", re)
	}
	out := Failed[int](errmodel.NotFound("missing", nil))
	if out.Error.Code != errmodel.CodeNotFound || out.Error.Category != errmodel.CategoryValidation {
		t.Fatalf("out=%+v", out.Error)
	}
}

func TestOutcomeJSONShape(t *testing.T) {
	b, err := json.Marshal(Succeeded("x"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"data":{"status":"success","data":"x"}}` {
		t.Fatalf("json=%s", b)
	}
	b, _ = json.Marshal(Failed[string](errmodel.NotFound("gone", nil)))
	if string(b) != `{"error":{"status":"error","message":"gone","code":"not_found","category":"validation"}}` {
		t.Fatalf("json=%s", b)
	}
}
