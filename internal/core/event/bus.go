package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events posted during frame N are
// delivered in frame N+1 when the input phase calls SwapBuffers and DispatchAll.
type Bus struct {
	mu       sync.Mutex // guards handler registration and posting from backend goroutines
	front    map[reflect.Type][]Event
	back     map[reflect.Type][]Event
	handlers map[reflect.Type][]any
	seen     map[reflect.Type]bool
	order    []reflect.Type
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]Event),
		back:     make(map[reflect.Type][]Event),
		handlers: make(map[reflect.Type][]any),
		seen:     make(map[reflect.Type]bool),
	}
}

// Post queues an event into the back buffer. It matches EventCallbackFn so a
// bus can be handed straight to a window backend.
func (b *Bus) Post(ev Event) {
	t := reflect.TypeOf(ev)
	b.mu.Lock()
	if !b.seen[t] {
		b.seen[t] = true
		b.order = append(b.order, t)
	}
	b.back[t] = append(b.back[t], ev)
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T Event](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SubscribeAll registers a handler that receives every event type.
func (b *Bus) SubscribeAll(fn EventCallbackFn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[nil] = append(b.handlers[nil], fn)
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at frame start.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers front-buffer events to their handlers, event types in
// first-seen order.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	order := append([]reflect.Type(nil), b.order...)
	b.mu.Unlock()

	for _, t := range order {
		events := b.front[t]
		if len(events) == 0 {
			continue
		}
		typed := b.handlers[t]
		all := b.handlers[nil]
		for _, ev := range events {
			for _, h := range typed {
				callHandler(h, ev)
			}
			for _, h := range all {
				h.(EventCallbackFn)(ev)
			}
		}
	}
}

// Pending returns the number of events waiting in the back buffer.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, evs := range b.back {
		n += len(evs)
	}
	return n
}

func callHandler(handler any, ev Event) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(ev)})
}
