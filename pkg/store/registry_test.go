package store

import (
	"context"
	"strings"
	"testing"
)

func TestRegisterResolve(t *testing.T) {
	called := false
	f := func(ctx context.Context, dsn string) (Repository, error) {
		called = true
		return nil, nil
	}
	if err := Register("test-backend", f); err != nil {
		t.Fatal(err)
	}
	if err := Register("test-backend", f); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := Register("", f); err == nil {
		t.Fatal("expected empty name error")
	}
	if err := Register("nil-backend", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if _, err := Open(t.Context(), "test-backend", "x"); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("factory not invoked")
	}
	_, err := Open(t.Context(), "missing", "")
	if err == nil || !strings.Contains(err.Error(), "test-backend") {
		t.Fatalf("err=%v should list registered backends", err)
	}
}
