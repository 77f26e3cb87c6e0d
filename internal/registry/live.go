// Package registry tracks every submission considered live, active or
// shelved, within the rolling lookback window. It is the source of truth for
// comment routing decisions.
package registry

import (
	"sort"
	"sync"

	"bird-board/internal/models"
)

// ActiveEntry carries the submission snapshot plus the number of comments the
// backfill still expects to see for it.
type ActiveEntry struct {
	Sub       models.Submission
	Remaining int
}

// LiveRegistry is keyed by numeric submission id. A sorted id slice backs the
// earliest/latest queries in O(log n); entry counts stay small enough that
// inserts are cheap. Reads and writes may come from any fetch or processing
// context, so compound check-then-act sequences hold the lock.
type LiveRegistry struct {
	mu      sync.RWMutex
	active  map[int64]*ActiveEntry
	shelved map[int64]int64 // id -> createdAt
	ids     []int64         // sorted, active + shelved
}

func NewLiveRegistry() *LiveRegistry {
	return &LiveRegistry{
		active:  make(map[int64]*ActiveEntry),
		shelved: make(map[int64]int64),
	}
}

// PutActive inserts or refreshes an active entry. A shelved id stays shelved;
// refreshing it would resurrect a removed submission.
func (r *LiveRegistry) PutActive(sub models.Submission, remaining int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, gone := r.shelved[sub.NumID]; gone {
		return false
	}
	if _, ok := r.active[sub.NumID]; !ok {
		r.insertID(sub.NumID)
	}
	r.active[sub.NumID] = &ActiveEntry{Sub: sub, Remaining: remaining}
	return true
}

// Shelve moves an active entry to shelved, keeping only {id, createdAt} so
// trailing comments to a just-removed submission are still recognized.
// Returns false (and does nothing) if the id is already shelved or unknown.
func (r *LiveRegistry) Shelve(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.active[id]
	if !ok {
		return false
	}
	delete(r.active, id)
	r.shelved[id] = entry.Sub.CreatedAt
	return true
}

func (r *LiveRegistry) IsShelved(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.shelved[id]
	return ok
}

func (r *LiveRegistry) GetActive(id int64) (ActiveEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.active[id]; ok {
		return *e, true
	}
	return ActiveEntry{}, false
}

// DecrementRemaining lowers the expected-comment counter for an active entry.
func (r *LiveRegistry) DecrementRemaining(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.active[id]; ok && e.Remaining > 0 {
		e.Remaining--
	}
}

// Earliest returns the minimum live id across active and shelved entries.
// Used to classify an unseen submission id as "too old to exist" versus
// "plausibly just created".
func (r *LiveRegistry) Earliest() (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.ids) == 0 {
		return 0, false
	}
	return r.ids[0], true
}

// Latest returns the maximum live id across active and shelved entries.
func (r *LiveRegistry) Latest() (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.ids) == 0 {
		return 0, false
	}
	return r.ids[len(r.ids)-1], true
}

// Expire drops every entry, active or shelved, whose creation time falls
// before cutoff, and returns exactly the dropped ids so dependent state can
// be torn down.
func (r *LiveRegistry) Expire(cutoff int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []int64
	for id, e := range r.active {
		if e.Sub.CreatedAt < cutoff {
			delete(r.active, id)
			dropped = append(dropped, id)
		}
	}
	for id, createdAt := range r.shelved {
		if createdAt < cutoff {
			delete(r.shelved, id)
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		r.removeID(id)
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i] < dropped[j] })
	return dropped
}

// Counts returns (active, shelved) entry counts for the health surface.
func (r *LiveRegistry) Counts() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active), len(r.shelved)
}

// ActiveIDs snapshots all active ids, ascending. The submissions agent uses
// it to pick shelf candidates for bulk recheck.
func (r *LiveRegistry) ActiveIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.active))
	for _, id := range r.ids {
		if _, ok := r.active[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (r *LiveRegistry) insertID(id int64) {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i < len(r.ids) && r.ids[i] == id {
		return
	}
	r.ids = append(r.ids, 0)
	copy(r.ids[i+1:], r.ids[i:])
	r.ids[i] = id
}

func (r *LiveRegistry) removeID(id int64) {
	i := sort.Search(len(r.ids), func(i int) bool { return r.ids[i] >= id })
	if i < len(r.ids) && r.ids[i] == id {
		r.ids = append(r.ids[:i], r.ids[i+1:]...)
	}
}
