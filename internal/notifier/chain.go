package notifier

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Action identifies the kind of event delivered through a Chain.
type Action uint

// Result is returned by handlers to steer the walk over the chain.
type Result int

const (
	ResultDone Result = iota
	ResultOK
	ResultStop
)

var (
	ErrChainClosed      = errors.New("notifier chain is closed")
	ErrDuplicateHandler = errors.New("handler already registered")
	ErrHandlerNotFound  = errors.New("handler not registered")
	ErrNilHandler       = errors.New("handler must not be nil")
)

// Handler receives every action published on the chain it is registered with.
// Filtering on action is the handler's responsibility.
type Handler[T any] func(action Action, data T) Result

type entry[T any] struct {
	name     string
	priority int
	seq      uint64
	handler  Handler[T]
}

// Chain is a named, priority ordered list of handlers. It is safe for
// concurrent registration and publication.
type Chain[T any] struct {
	name string

	mu      sync.RWMutex
	entries []entry[T]
	seq     uint64
	closed  bool
}

func NewChain[T any](name string) *Chain[T] {
	return &Chain[T]{name: name}
}

func (c *Chain[T]) Name() string {
	return c.name
}

// Register adds handler under name. Handlers with higher priority are called
// first, equal priorities keep registration order.
func (c *Chain[T]) Register(name string, priority int, handler Handler[T]) error {
	if handler == nil {
		return fmt.Errorf("failed to register %q on chain %q: %w", name, c.name, ErrNilHandler)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("failed to register %q on chain %q: %w", name, c.name, ErrChainClosed)
	}
	for _, e := range c.entries {
		if e.name == name {
			return fmt.Errorf("failed to register %q on chain %q: %w", name, c.name, ErrDuplicateHandler)
		}
	}

	c.seq++
	c.entries = append(c.entries, entry[T]{name: name, priority: priority, seq: c.seq, handler: handler})
	sort.SliceStable(c.entries, func(i, j int) bool {
		if c.entries[i].priority != c.entries[j].priority {
			return c.entries[i].priority > c.entries[j].priority
		}
		return c.entries[i].seq < c.entries[j].seq
	})

	return nil
}

func (c *Chain[T]) Unregister(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.entries {
		if e.name == name {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return nil
		}
	}

	return fmt.Errorf("failed to unregister %q from chain %q: %w", name, c.name, ErrHandlerNotFound)
}

// Call delivers action to every registered handler until one returns
// ResultStop. The handler list is copied before the walk so handlers may
// register or unregister without deadlocking.
func (c *Chain[T]) Call(action Action, data T) Result {
	c.mu.RLock()
	handlers := make([]Handler[T], 0, len(c.entries))
	for _, e := range c.entries {
		handlers = append(handlers, e.handler)
	}
	c.mu.RUnlock()

	ret := ResultDone
	for _, h := range handlers {
		ret = h(action, data)
		if ret == ResultStop {
			break
		}
	}

	return ret
}

func (c *Chain[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close drops every handler and rejects future registrations.
func (c *Chain[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.entries = nil
}
