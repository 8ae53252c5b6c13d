package delivery

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// Event names pushed to clients.
const (
	EventMessage      = "message"
	EventOpenQueryBox = "openQueryBox"
)

var (
	ErrDelivery      = errors.New("delivery failed")
	ErrChannelClosed = fmt.Errorf("%w: channel closed", ErrDelivery)
	ErrChannelFull   = fmt.Errorf("%w: channel send buffer full", ErrDelivery)
)

// Event is the frame written to a live channel.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Channel is one live connection. Send must not block on slow peers.
type Channel interface {
	Send(evt Event) error
}

// Router maps identities to their live channels. Delivery is best effort:
// events for identities with no channel are dropped.
type Router struct {
	mu       sync.RWMutex
	channels map[string]map[Channel]struct{}
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{channels: make(map[string]map[Channel]struct{})}
}

// Register binds ch to identity.
func (r *Router) Register(identity string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[identity]
	if !ok {
		set = make(map[Channel]struct{})
		r.channels[identity] = set
	}
	set[ch] = struct{}{}
	log.Printf("[delivery] channel registered identity=%s total=%d", identity, len(set))
}

// Unregister removes ch. Unknown channels are ignored.
func (r *Router) Unregister(identity string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.channels[identity]
	if !ok {
		return
	}
	delete(set, ch)
	if len(set) == 0 {
		delete(r.channels, identity)
	}
	log.Printf("[delivery] channel unregistered identity=%s remaining=%d", identity, len(set))
}

// Connections returns the number of live channels bound to identity.
func (r *Router) Connections(identity string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels[identity])
}

// Push sends the event to every channel of identity and returns how many accepted it.
func (r *Router) Push(identity, event string, payload any) int {
	targets := r.snapshot(identity)
	if len(targets) == 0 {
		log.Printf("[delivery] no live channel identity=%s event=%s, dropped", identity, event)
		return 0
	}
	return r.send(targets, identity, Event{Event: event, Data: payload})
}

// BroadcastAll sends the event to every registered channel.
func (r *Router) BroadcastAll(event string, payload any) int {
	r.mu.RLock()
	var targets []Channel
	for _, set := range r.channels {
		for ch := range set {
			targets = append(targets, ch)
		}
	}
	r.mu.RUnlock()

	return r.send(targets, "*", Event{Event: event, Data: payload})
}

func (r *Router) snapshot(identity string) []Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.channels[identity]
	targets := make([]Channel, 0, len(set))
	for ch := range set {
		targets = append(targets, ch)
	}
	return targets
}

func (r *Router) send(targets []Channel, identity string, evt Event) int {
	delivered := 0
	for _, ch := range targets {
		if err := ch.Send(evt); err != nil {
			// a channel closed after the snapshot is a drop, not a failure of the caller
			log.Printf("[delivery] push failed identity=%s event=%s: %v", identity, evt.Event, err)
			continue
		}
		delivered++
	}
	return delivered
}
