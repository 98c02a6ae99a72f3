// Package event carries window input to interested listeners. An Event is a
// plain value tagged with its Kind; listeners subscribe per kind.
package event

import "sync"

// Kind discriminates Event payloads
type Kind int

const (
	KindScroll Kind = iota
	KindCursor
	KindKey
	KindResize
	kindCount // Sentinel value for array sizing
)

func (k Kind) String() string {
	switch k {
	case KindScroll:
		return "scroll"
	case KindCursor:
		return "cursor"
	case KindKey:
		return "key"
	case KindResize:
		return "resize"
	}
	return "unknown"
}

// KeyAction is what happened to a key
type KeyAction int

const (
	Release KeyAction = iota
	Press
	Repeat
)

// Event is one input occurrence. Which fields are meaningful depends on Kind:
//
//	KindScroll  X, Y are scroll offsets
//	KindCursor  X, Y are the cursor movement since the previous cursor event
//	KindKey     Key, Action
//	KindResize  Width, Height of the framebuffer in pixels
type Event struct {
	Kind Kind

	X, Y float64

	Key    int
	Action KeyAction

	Width, Height int
}

func NewScroll(dx, dy float64) Event {
	return Event{Kind: KindScroll, X: dx, Y: dy}
}

func NewCursor(dx, dy float64) Event {
	return Event{Kind: KindCursor, X: dx, Y: dy}
}

func NewKey(key int, action KeyAction) Event {
	return Event{Kind: KindKey, Key: key, Action: action}
}

func NewResize(width, height int) Event {
	return Event{Kind: KindResize, Width: width, Height: height}
}

// Listener handles one event
type Listener func(Event)

// Dispatcher routes events to the listeners subscribed to their kind
type Dispatcher struct {
	mu        sync.RWMutex
	listeners [kindCount][]Listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe adds l to the listeners of kind k. Listeners run in
// subscription order.
func (d *Dispatcher) Subscribe(k Kind, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if k < 0 || k >= kindCount || l == nil {
		return
	}

	d.listeners[k] = append(d.listeners[k], l)
}

// Dispatch delivers e to every listener of its kind. Listeners may
// subscribe further listeners; those see the next event, not this one.
func (d *Dispatcher) Dispatch(e Event) {
	if e.Kind < 0 || e.Kind >= kindCount {
		return
	}
	d.mu.RLock()
	ls := d.listeners[e.Kind]
	d.mu.RUnlock()

	for _, l := range ls {
		l(e)
	}
}

// Listeners returns how many listeners kind k has
func (d *Dispatcher) Listeners(k Kind) int {
	if k < 0 || k >= kindCount {
		return 0
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[k])
}
