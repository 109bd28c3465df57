// Package caption provides time-synced caption records for a track and lookup
// of the caption active at a playback position.
package caption

import "time"

// Caption is a single timed text record. Start <= End.
type Caption struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}

// Index is an ordered caption set for one track. The zero value is an empty
// index and is valid.
type Index struct {
	captions []Caption
}

// NewIndex builds an index over the given records. The records are expected
// ordered by Start; the index preserves the given order for lookup.
func NewIndex(captions []Caption) *Index {
	return &Index{captions: captions}
}

// Len returns the number of captions.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.captions)
}

// Captions returns a copy of the records.
func (ix *Index) Captions() []Caption {
	if ix == nil {
		return nil
	}
	out := make([]Caption, len(ix.captions))
	copy(out, ix.captions)
	return out
}

// ActiveAt returns the caption active at t. Exactly one caption is active at
// any instant even when adjacent records share a boundary: an instant that is
// both one caption's end and the next caption's start belongs to the later
// record. A caption's end instant is still covered when nothing follows it.
// With overlapping entries the first match in sequence order wins.
func (ix *Index) ActiveAt(t time.Duration) (Caption, bool) {
	if ix == nil {
		return Caption{}, false
	}
	for _, c := range ix.captions {
		if t >= c.Start && t < c.End {
			return c, true
		}
	}
	for _, c := range ix.captions {
		if t == c.End && t >= c.Start {
			return c, true
		}
	}
	return Caption{}, false
}
