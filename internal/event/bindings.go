package event

import "sync"

// Action represents a logical application action, not a physical key
type Action int

const (
	ActionQuit Action = iota
	ActionToggleVSync
	ActionToggleProfiling
	ActionResetView
	ActionCount // Sentinel value for array sizing
)

// Bindings maps physical keys to logical actions and dispatches the actions
// of pressed keys. It is meant to be subscribed to KindKey.
type Bindings struct {
	mu sync.RWMutex

	// One key can map to multiple actions
	keyToActions map[int][]Action

	handlers [ActionCount][]func()
}

func NewBindings() *Bindings {
	return &Bindings{keyToActions: make(map[int][]Action)}
}

// BindKey binds a physical key to a logical action.
// Multiple keys can be bound to the same action.
func (b *Bindings) BindKey(key int, action Action) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if action < 0 || action >= ActionCount {
		return
	}

	b.keyToActions[key] = append(b.keyToActions[key], action)
}

// UnbindKey removes all action bindings for a key
func (b *Bindings) UnbindKey(key int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.keyToActions, key)
}

// On registers h to run whenever action is triggered
func (b *Bindings) On(action Action, h func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if action < 0 || action >= ActionCount || h == nil {
		return
	}

	b.handlers[action] = append(b.handlers[action], h)
}

// Actions returns the actions bound to key
func (b *Bindings) Actions(key int) []Action {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Action(nil), b.keyToActions[key]...)
}

// HandleKey triggers the actions bound to a pressed key. Releases and
// repeats are ignored.
func (b *Bindings) HandleKey(e Event) {
	if e.Kind != KindKey || e.Action != Press {
		return
	}
	b.mu.RLock()
	var run []func()
	for _, a := range b.keyToActions[e.Key] {
		run = append(run, b.handlers[a]...)
	}
	b.mu.RUnlock()

	for _, h := range run {
		h()
	}
}
