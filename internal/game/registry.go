package game

import (
	"log"
	"sync"
)

// Sender is the outbound half of one player's connection. Send enqueues a
// frame and reports false when the player's queue is full; Kick tears the
// connection down (the driver then reports a normal disconnect).
type Sender interface {
	Send(frame []byte) bool
	Kick()
}

// Registry maps player ids to their senders and tracks lobby membership.
// Mutations come from the Coordinator only; sends take a short read lock so
// fan-out never blocks on socket I/O.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
	waiting []string // admission order, preserved across game transitions
	active  map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		senders: make(map[string]Sender),
		active:  make(map[string]bool),
	}
}

// Attach registers a new connection and places the player in the waiting
// list.
func (r *Registry) Attach(id string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.senders[id] = sender
	r.waiting = append(r.waiting, id)
}

// Detach removes the player from every set. Safe to call twice.
func (r *Registry) Detach(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.senders, id)
	delete(r.active, id)
	r.waiting = removeID(r.waiting, id)
}

// Send enqueues a frame to one player. Sending to a vanished id is a silent
// no-op. A full queue kicks the slow client rather than stalling the caller.
func (r *Registry) Send(id string, frame []byte) {
	r.mu.RLock()
	sender, ok := r.senders[id]
	r.mu.RUnlock()

	if !ok {
		return
	}
	if !sender.Send(frame) {
		log.Printf("[CONN] Send queue full for player %s, dropping connection", id)
		sender.Kick()
	}
}

// Broadcast enqueues a frame to every connected player not in exclude.
func (r *Registry) Broadcast(frame []byte, exclude map[string]bool) {
	r.mu.RLock()
	targets := make(map[string]Sender, len(r.senders))
	for id, sender := range r.senders {
		if !exclude[id] {
			targets[id] = sender
		}
	}
	r.mu.RUnlock()

	for id, sender := range targets {
		if !sender.Send(frame) {
			log.Printf("[CONN] Send queue full for player %s, dropping connection", id)
			sender.Kick()
		}
	}
}

// MoveToActive moves the given players from waiting into the active set.
func (r *Registry) MoveToActive(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		r.waiting = removeID(r.waiting, id)
		r.active[id] = true
	}
}

// ReturnToWaiting clears the active set and appends the still-connected
// survivors back onto the waiting list in the given order.
func (r *Registry) ReturnToWaiting(ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if !r.active[id] {
			continue
		}
		delete(r.active, id)
		if _, connected := r.senders[id]; connected {
			r.waiting = append(r.waiting, id)
		}
	}
}

// WaitingSnapshot returns the waiting players in admission order.
func (r *Registry) WaitingSnapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.waiting))
	copy(out, r.waiting)
	return out
}

// ActiveSnapshot returns the active player ids (unordered; the turn queue
// holds the order).
func (r *Registry) ActiveSnapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	return out
}

// Counts returns the waiting and active population sizes.
func (r *Registry) Counts() (waiting, active int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.waiting), len(r.active)
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
