// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Emberlink Contributors

package message

import (
	"context"
	"log/slog"
	"sync"
)

// subscriberBuffer is the per-subscriber delivery queue depth.
const subscriberBuffer = 100

// Bus is an in-process Messenger for single-process deployments (game
// server and bot in one binary) and tests. Every delivery is
// same-process, so the local flag on Publish is effectively always
// honored; a cross-process implementation would consult it.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	nextID int
	closed bool
	wg     sync.WaitGroup
}

type subscriber struct {
	id      int
	queue   chan Message
	handler Handler
}

// NewBus creates an in-process bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]*subscriber)}
}

// Publish delivers the message to every subscriber of its type. Delivery
// is asynchronous; a subscriber whose queue is full misses the message,
// which is logged and counts as the at-least-once contract's failure
// mode for this transport.
func (b *Bus) Publish(_ context.Context, msg Message, _ bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for _, sub := range b.subs[msg.MessageType()] {
		select {
		case sub.queue <- msg:
		default:
			slog.Warn("message dropped: subscriber queue full",
				"type", msg.MessageType(),
				"subscriber", sub.id,
			)
		}
	}
	return nil
}

// Subscribe registers a handler for a message type. Each subscriber gets
// its own delivery goroutine so a slow handler cannot stall publishers
// or sibling subscribers.
func (b *Bus) Subscribe(msgType string, h Handler) func() {
	b.mu.Lock()
	sub := &subscriber{
		id:      b.nextID,
		queue:   make(chan Message, subscriberBuffer),
		handler: h,
	}
	b.nextID++
	b.subs[msgType] = append(b.subs[msgType], sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range sub.queue {
			sub.handler(context.Background(), msg)
		}
	}()

	return func() { b.unsubscribe(msgType, sub.id) }
}

func (b *Bus) unsubscribe(msgType string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[msgType]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[msgType] = append(subs[:i], subs[i+1:]...)
			close(sub.queue)
			return
		}
	}
}

// Close stops all subscribers and waits for in-flight deliveries.
// Publish after Close returns ErrBusClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for msgType, subs := range b.subs {
		for _, sub := range subs {
			close(sub.queue)
		}
		delete(b.subs, msgType)
	}
	b.mu.Unlock()

	b.wg.Wait()
}
