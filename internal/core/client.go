package core

import "sync"

// DefaultEventBuffer is the outbound queue size used when none is configured.
const DefaultEventBuffer = 16

// Handle is a live connection as seen by the core layer.
// Push must not block; it only enqueues.
type Handle interface {
	ID() string
	Push(ev *Event) error
}

// Client is a websocket connection's handle. Events are drained by the
// connection's writer; Events is never closed, watch Done instead.
type Client struct {
	id     string
	Events chan *Event

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewClient constructs a client with an outbound buffer of the given size.
func NewClient(id string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Client{
		id:     id,
		Events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// Push enqueues an event for the writer without blocking.
func (c *Client) Push(ev *Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrDeadHandle
	}
	select {
	case c.Events <- ev:
		return nil
	default:
		// Drop if slow consumer.
		return ErrSlowConsumer
	}
}

// Close marks the handle dead. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Done is closed once the handle is dead.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
