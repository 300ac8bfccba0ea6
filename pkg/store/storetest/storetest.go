// Package storetest holds the behaviour every store.Repository must share.
// Backends call Run from their own tests.
package storetest

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/store"
)

// Opener returns a fresh, empty repository for one subtest.
type Opener func(t *testing.T) store.Repository

// Run executes the repository contract against open.
func Run(t *testing.T, open Opener) {
	t.Helper()

	seeded := func(t *testing.T) store.Repository {
		t.Helper()
		repo := open(t)
		if err := repo.Reset(t.Context(), adformat.Seed(adformat.DefaultSeedCount)); err != nil {
			t.Fatalf("reset: %v", err)
		}
		return repo
	}

	t.Run("ListReturnsSeedInOrder", func(t *testing.T) {
		repo := seeded(t)
		got, err := repo.List(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(adformat.Seed(adformat.DefaultSeedCount), got); diff != "" {
			t.Fatalf("list (-want +got):\n%s", diff)
		}
	})

	t.Run("ListIsolatesCaller", func(t *testing.T) {
		repo := seeded(t)
		first, _ := repo.List(t.Context())
		first[0].Events[0].Label = "mutated"
		first[0].Events = nil
		first[1].Name = "mutated"
		again, err := repo.List(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if len(again[0].Events) != 3 || again[0].Events[0].Label != "點擊" || again[1].Name != "Ad Format 2" {
			t.Fatalf("repository state leaked: %+v %+v", again[0], again[1])
		}
	})

	t.Run("GetFindsRecord", func(t *testing.T) {
		repo := seeded(t)
		got, err := repo.Get(t.Context(), 1)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != 1 || len(got.Events) != 3 {
			t.Fatalf("got=%+v", got)
		}
		if _, err := repo.Get(t.Context(), 9999); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err=%v want ErrNotFound", err)
		}
	})

	t.Run("ReplaceEventsOverwrites", func(t *testing.T) {
		repo := seeded(t)
		updated, err := repo.ReplaceEvents(t.Context(), 1, []adformat.EventLabel{})
		if err != nil {
			t.Fatal(err)
		}
		if updated.ID != 1 || updated.Name != "Ad Format 1" || len(updated.Events) != 0 {
			t.Fatalf("updated=%+v", updated)
		}
		got, _ := repo.Get(t.Context(), 1)
		if len(got.Events) != 0 {
			t.Fatalf("events=%v want none", got.Events)
		}
	})

	t.Run("ReplaceEventsKeepsOthers", func(t *testing.T) {
		repo := seeded(t)
		in := []adformat.EventLabel{{Code: adformat.EventDoubleTap, Label: "雙擊"}}
		if _, err := repo.ReplaceEvents(t.Context(), 5, in); err != nil {
			t.Fatal(err)
		}
		in[0].Label = "mutated after call"

		want := adformat.Seed(adformat.DefaultSeedCount)
		want[4].Events = []adformat.EventLabel{{Code: adformat.EventDoubleTap, Label: "雙擊"}}
		got, _ := repo.List(t.Context())
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("list (-want +got):\n%s", diff)
		}
	})

	t.Run("ReplaceEventsUnknownID", func(t *testing.T) {
		repo := seeded(t)
		_, err := repo.ReplaceEvents(t.Context(), 9999, []adformat.EventLabel{{Code: "a", Label: "x"}})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("err=%v want ErrNotFound", err)
		}
		got, _ := repo.List(t.Context())
		if diff := cmp.Diff(adformat.Seed(adformat.DefaultSeedCount), got); diff != "" {
			t.Fatalf("collection changed (-want +got):\n%s", diff)
		}
	})

	t.Run("ResetReplacesCollection", func(t *testing.T) {
		repo := seeded(t)
		if _, err := repo.ReplaceEvents(t.Context(), 2, adformat.DefaultEvents()); err != nil {
			t.Fatal(err)
		}
		if err := repo.Reset(t.Context(), adformat.Seed(3)); err != nil {
			t.Fatal(err)
		}
		got, _ := repo.List(t.Context())
		if diff := cmp.Diff(adformat.Seed(3), got); diff != "" {
			t.Fatalf("list (-want +got):\n%s", diff)
		}
	})
}
