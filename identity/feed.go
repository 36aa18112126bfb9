package identity

import "sync"

// Feed fans session events out to subscribers and remembers the latest one.
// Handlers are called synchronously, outside the feed's lock, in publish
// order.
type Feed struct {
	mu      sync.Mutex
	current Event
	nextID  int
	subs    map[int]func(Event)
	// deliver serializes handler invocation so every subscriber observes
	// events in the order they were published.
	deliver sync.Mutex
}

// NewFeed returns a Feed whose initial state is Absent.
func NewFeed() *Feed {
	return &Feed{subs: make(map[int]func(Event))}
}

// Current returns the last published event.
func (f *Feed) Current() Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Publish records ev as the current state and delivers it to all subscribers.
func (f *Feed) Publish(ev Event) {
	f.deliver.Lock()
	defer f.deliver.Unlock()

	f.mu.Lock()
	f.current = ev
	handlers := make([]func(Event), 0, len(f.subs))
	for _, fn := range f.subs {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}

// Subscribe registers fn and immediately delivers the current state to it.
func (f *Feed) Subscribe(fn func(Event)) func() {
	f.deliver.Lock()
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = fn
	current := f.current
	f.mu.Unlock()

	fn(current)
	f.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}
