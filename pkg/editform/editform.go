// Package editform holds the transient state of the ad format edit dialog:
// whether it is visible and the draft being edited.
package editform

import (
	"context"
	"errors"
	"sync"

	"github.com/wilhg/adformats/pkg/adformat"
	"github.com/wilhg/adformats/pkg/result"
)

// ErrClosed is returned when editing a form that is not open.
var ErrClosed = errors.New("edit form is not open")

// Updater applies an events update. *adstore.Store satisfies it.
type Updater interface {
	UpdateEvents(ctx context.Context, id int, events []adformat.EventLabel) result.Outcome[adformat.EventsUpdate]
}

// Form is safe for concurrent use.
type Form struct {
	mu      sync.Mutex
	visible bool
	gen     uint64 // bumped by every Open
	record  *adformat.AdFormat
	draft   *adformat.AdFormat
}

// New returns a closed form.
func New() *Form { return &Form{} }

// Open shows the form with a private copy of rec as the draft.
func (f *Form) Open(rec adformat.AdFormat) {
	r, d := rec.Clone(), rec.Clone()
	f.mu.Lock()
	f.visible = true
	f.gen++
	f.record, f.draft = &r, &d
	f.mu.Unlock()
}

// Close hides the form and drops the draft.
func (f *Form) Close() {
	f.mu.Lock()
	f.visible = false
	f.record, f.draft = nil, nil
	f.mu.Unlock()
}

// Visible reports whether the form is shown.
func (f *Form) Visible() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible
}

// Record returns the record as it was when the form was opened.
func (f *Form) Record() (adformat.AdFormat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil {
		return adformat.AdFormat{}, false
	}
	return f.record.Clone(), true
}

// Draft returns a copy of the record being edited.
func (f *Form) Draft() (adformat.AdFormat, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft == nil {
		return adformat.AdFormat{}, false
	}
	return f.draft.Clone(), true
}

// SetEvents replaces the draft's events.
func (f *Form) SetEvents(events []adformat.EventLabel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.draft == nil {
		return ErrClosed
	}
	f.draft.Events = adformat.CloneEvents(events)
	return nil
}

// Submit sends the draft's events through u and closes the form on success.
// On failure the form stays open with the draft intact. A form reopened while
// the update is in flight is left as it is.
func (f *Form) Submit(ctx context.Context, u Updater) result.Outcome[adformat.EventsUpdate] {
	f.mu.Lock()
	if f.draft == nil {
		f.mu.Unlock()
		return result.Failed[adformat.EventsUpdate](ErrClosed)
	}
	d, gen := f.draft.Clone(), f.gen
	f.mu.Unlock()

	out := u.UpdateEvents(ctx, d.ID, d.Events)
	if !out.OK() {
		return out
	}
	f.mu.Lock()
	if f.gen == gen {
		f.visible = false
		f.record, f.draft = nil, nil
	}
	f.mu.Unlock()
	return out
}
