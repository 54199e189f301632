package latency

import (
	"sort"

	"github.com/bnema/lagmon/internal/event"
)

type pendingEntry struct {
	eventTime int64
	id        event.EventID
}

// pendingIndex orders pending event ids by eventTime so the tracker can pop
// the oldest entries during pruning. Events mostly arrive in time order, so
// insertion appends in the common case and falls back to a binary-search
// insert otherwise. Several entries may share one eventTime.
type pendingIndex struct {
	entries []pendingEntry
}

// insert adds an (eventTime, id) pair, keeping the index ordered.
func (p *pendingIndex) insert(eventTime int64, id event.EventID) {
	entry := pendingEntry{eventTime: eventTime, id: id}

	if n := len(p.entries); n == 0 || p.entries[n-1].eventTime <= eventTime {
		p.entries = append(p.entries, entry)
		return
	}

	idx := sort.Search(len(p.entries), func(i int) bool {
		return p.entries[i].eventTime > eventTime
	})
	p.entries = append(p.entries, pendingEntry{})
	copy(p.entries[idx+1:], p.entries[idx:])
	p.entries[idx] = entry
}

// oldest returns the entry with the smallest eventTime.
func (p *pendingIndex) oldest() (pendingEntry, bool) {
	if len(p.entries) == 0 {
		return pendingEntry{}, false
	}
	return p.entries[0], true
}

// popOldest removes the entry with the smallest eventTime.
func (p *pendingIndex) popOldest() {
	if len(p.entries) > 0 {
		p.entries = p.entries[1:]
	}
}

// eraseByID removes every entry carrying the given id.
func (p *pendingIndex) eraseByID(id event.EventID) {
	kept := p.entries[:0]
	for _, e := range p.entries {
		if e.id != id {
			kept = append(kept, e)
		}
	}
	p.entries = kept
}

func (p *pendingIndex) len() int {
	return len(p.entries)
}
