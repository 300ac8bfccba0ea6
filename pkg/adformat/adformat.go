// Package adformat defines ad format records and their interaction event labels.
// Values handed across package boundaries are always deep copies; callers may
// mutate what they receive without affecting the owner.
package adformat

import (
	"errors"
	"fmt"
	"strings"
)

// EventCode identifies one user interaction type.
type EventCode string

// Known event codes.
const (
	EventClick      EventCode = "click"
	EventSwipeLeft  EventCode = "swipe_left"
	EventSwipeRight EventCode = "swipe_right"
	EventSwipeUp    EventCode = "swipe_up"
	EventSwipeDown  EventCode = "swipe_down"
	EventLongPress  EventCode = "long_press"
	EventDoubleTap  EventCode = "double_tap"
)

var knownCodes = map[EventCode]struct{}{
	EventClick:      {},
	EventSwipeLeft:  {},
	EventSwipeRight: {},
	EventSwipeUp:    {},
	EventSwipeDown:  {},
	EventLongPress:  {},
	EventDoubleTap:  {},
}

// Known reports whether c is one of the recognised event codes.
func (c EventCode) Known() bool {
	_, ok := knownCodes[c]
	return ok
}

// Codes returns the recognised event codes in declaration order.
func Codes() []EventCode {
	return []EventCode{
		EventClick, EventSwipeLeft, EventSwipeRight,
		EventSwipeUp, EventSwipeDown, EventLongPress, EventDoubleTap,
	}
}

// EventLabel pairs an event code with its localized display string.
type EventLabel struct {
	Code  EventCode `json:"code" jsonschema:"event code such as click or swipe_left"`
	Label string    `json:"label" jsonschema:"localized display string"`
}

// AdFormat is a configurable ad unit.
type AdFormat struct {
	ID     int          `json:"id"`
	Name   string       `json:"name"`
	Events []EventLabel `json:"events"`
}

// EventsUpdate echoes the result of replacing a record's events.
type EventsUpdate struct {
	ID     int          `json:"id"`
	Events []EventLabel `json:"events"`
}

// CloneEvents returns an independent copy of events. A nil input yields an
// empty, non-nil slice so that encoded records always carry an array.
func CloneEvents(events []EventLabel) []EventLabel {
	out := make([]EventLabel, len(events))
	copy(out, events)
	return out
}

// Clone returns a deep copy of f.
func (f AdFormat) Clone() AdFormat {
	f.Events = CloneEvents(f.Events)
	return f
}

// CloneAll deep-copies a list of records.
func CloneAll(in []AdFormat) []AdFormat {
	out := make([]AdFormat, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}

// ErrInvalidEvents is wrapped by ValidateEvents failures.
var ErrInvalidEvents = errors.New("invalid events")

// ValidateEvents checks that every label has a known code and a non-blank
// display string, and that no code appears twice.
func ValidateEvents(events []EventLabel) error {
	seen := make(map[EventCode]int, len(events))
	for i, ev := range events {
		if !ev.Code.Known() {
			return fmt.Errorf("%w: events[%d]: unknown code %q", ErrInvalidEvents, i, ev.Code)
		}
		if strings.TrimSpace(ev.Label) == "" {
			return fmt.Errorf("%w: events[%d]: empty label for %q", ErrInvalidEvents, i, ev.Code)
		}
		if j, dup := seen[ev.Code]; dup {
			return fmt.Errorf("%w: events[%d]: code %q already used at events[%d]", ErrInvalidEvents, i, ev.Code, j)
		}
		seen[ev.Code] = i
	}
	return nil
}
