package lifecycle

import "sync"

// observable holds a state value and fans snapshots out to subscribers. A
// subscriber that falls behind only ever sees the newest snapshot.
type observable[T any] struct {
	mu    sync.Mutex
	state T
	clone func(T) T
	subs  map[chan T]struct{}
}

func newObservable[T any](initial T, clone func(T) T) *observable[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &observable[T]{state: initial, clone: clone, subs: map[chan T]struct{}{}}
}

func (o *observable[T]) get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.clone(o.state)
}

// update applies fn under the lock and publishes the result.
func (o *observable[T]) update(fn func(*T)) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.state)
	snap := o.clone(o.state)
	for ch := range o.subs {
		offer(ch, o.clone(o.state))
	}
	return snap
}

func offer[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	// full: replace the stale snapshot
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

func (o *observable[T]) subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	o.mu.Lock()
	o.subs[ch] = struct{}{}
	ch <- o.clone(o.state)
	o.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, ch)
			o.mu.Unlock()
		})
	}
}
