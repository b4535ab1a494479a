package store

import "sync"

// feed fans out snapshots to subscribers. Each subscriber channel holds at
// most one value; a slow reader only ever sees the latest snapshot and
// publishing never blocks.
type feed[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

// subscribe registers a subscriber primed with initial. The returned func
// unsubscribes and closes the channel; it is a no-op once the channel has
// been closed, by itself or by close.
func (f *feed[T]) subscribe(initial T) (<-chan T, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.subs == nil {
		f.subs = make(map[int]chan T)
	}
	id := f.next
	f.next++

	ch := make(chan T, 1)
	ch <- initial
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[id]; !ok {
			return
		}
		delete(f.subs, id)
		close(ch)
	}
	return ch, cancel
}

// publish replaces any unread value in every subscriber channel with v.
func (f *feed[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

// close closes every subscriber channel.
func (f *feed[T]) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
}
