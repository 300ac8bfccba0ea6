package adformat

import "fmt"

// DefaultSeedCount is the number of records a fresh collection holds.
const DefaultSeedCount = 10

// DefaultEvents are the labels pre-populated on the first seeded record.
func DefaultEvents() []EventLabel {
	return []EventLabel{
		{Code: EventClick, Label: "點擊"},
		{Code: EventSwipeLeft, Label: "左滑"},
		{Code: EventSwipeRight, Label: "右滑"},
	}
}

// Seed builds n deterministic records with ids 1..n. Only the first record
// carries event labels. n <= 0 yields an empty collection.
func Seed(n int) []AdFormat {
	if n <= 0 {
		return []AdFormat{}
	}
	out := make([]AdFormat, n)
	for i := range out {
		id := i + 1
		out[i] = AdFormat{
			ID:     id,
			Name:   fmt.Sprintf("Ad Format %d", id),
			Events: []EventLabel{},
		}
	}
	out[0].Events = DefaultEvents()
	return out
}
