package mentor

import (
	"sync"

	"github.com/ashureev/leetmentor/internal/interview"
)

// Key identifies the interview of one browser tab of one user.
type Key struct {
	UserID string
	TabID  string
}

func (k Key) String() string {
	return k.UserID + ":" + k.TabID
}

// Registry holds one interview.Tracker per Key.
type Registry struct {
	mu       sync.Mutex
	trackers map[Key]*interview.Tracker
	opts     []interview.Option
}

// NewRegistry creates an empty Registry. opts are applied to every new Tracker.
func NewRegistry(opts ...interview.Option) *Registry {
	return &Registry{
		trackers: make(map[Key]*interview.Tracker),
		opts:     opts,
	}
}

// Update runs fn on the tracker for key, creating it on first use.
// fn runs under the registry lock, so DeleteInactive cannot drop the tracker while fn starts a session.
func (r *Registry) Update(key Key, fn func(*interview.Tracker)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[key]
	if !ok {
		t = interview.New(r.opts...)
		r.trackers[key] = t
	}
	fn(t)
}

// DeleteInactive forgets t if it is still the tracker for key and has no live session.
func (r *Registry) DeleteInactive(key Key, t *interview.Tracker) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.trackers[key]; !ok || current != t || t.Active() {
		return false
	}
	delete(r.trackers, key)
	return true
}

// Lookup returns the tracker for key without creating one.
func (r *Registry) Lookup(key Key) (*interview.Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.trackers[key]
	return t, ok
}

// Range calls fn for a snapshot of all trackers until fn returns false.
func (r *Registry) Range(fn func(Key, *interview.Tracker) bool) {
	r.mu.Lock()
	snapshot := make(map[Key]*interview.Tracker, len(r.trackers))
	for k, t := range r.trackers {
		snapshot[k] = t
	}
	r.mu.Unlock()

	for k, t := range snapshot {
		if !fn(k, t) {
			return
		}
	}
}

// Len returns the number of trackers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trackers)
}
