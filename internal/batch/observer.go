package batch

import "sync"

// Subscriber receives every batch state change. Calls are synchronous and in
// registration order; there is at least one notification per state change
// and no upper bound on frequency.
type Subscriber func(State)

type observerRegistry struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn Subscriber
}

func (r *observerRegistry) subscribe(fn Subscriber) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs = append(r.subs, subscription{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i, s := range r.subs {
			if s.id == id {
				r.subs = append(r.subs[:i], r.subs[i+1:]...)
				return
			}
		}
	}
}

func (r *observerRegistry) notify(state State) {
	r.mu.Lock()
	subs := make([]subscription, len(r.subs))
	copy(subs, r.subs)
	r.mu.Unlock()

	for _, s := range subs {
		s.fn(state)
	}
}
