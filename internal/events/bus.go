// Package events is a small synchronous publish/subscribe bus for the named
// interaction signals the site emits.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Name identifies an event type.
type Name string

const (
	ProjectOpened        Name = "project-opened"
	RoleOpened           Name = "role-opened"
	BubbleCollected      Name = "bubble-collected"
	FooterLinkClicked    Name = "footer-link-clicked"
	FeatureToggleChanged Name = "feature-toggle-changed"
	SectionVisible       Name = "section-visible"
	JournalLinkClicked   Name = "journal-link-clicked"
	BadgeUnlocked        Name = "badge-unlocked"
)

// Names lists every event a producer may send.
var Names = []Name{
	ProjectOpened, RoleOpened, BubbleCollected, FooterLinkClicked,
	FeatureToggleChanged, SectionVisible, JournalLinkClicked, BadgeUnlocked,
}

// UnknownEventError is returned by ParseName for names outside Names.
type UnknownEventError struct {
	Name string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown event type %q", e.Name)
}

// ParseName validates an event name.
func ParseName(s string) (Name, error) {
	for _, n := range Names {
		if string(n) == s {
			return n, nil
		}
	}
	return "", &UnknownEventError{Name: s}
}

// Event is one signal with its payload. Only the fields relevant to Name are set:
// ID for project/role/footer/section/badge events, Total for project/role
// events, Count for bubble-collected, Enabled for feature toggles, Ratio for
// section visibility. A nil Ratio means the producer only reports threshold
// crossings.
type Event struct {
	Name    Name      `json:"type" validate:"required"`
	ID      string    `json:"id,omitempty"`
	Total   int       `json:"total,omitempty" validate:"gte=0"`
	Count   int       `json:"count,omitempty" validate:"gte=0"`
	Enabled bool      `json:"enabled,omitempty"`
	Ratio   *float64  `json:"ratio,omitempty" validate:"omitempty,gte=0,lte=1"`
	At      time.Time `json:"at,omitzero"`
}

// Handler receives published events.
type Handler func(Event)

// Unsubscribe removes a subscription. It is safe to call more than once.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events to subscribers synchronously, in subscription order,
// on the publisher's goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Name][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Name][]subscription)}
}

// Subscribe registers handler for name.
func (b *Bus) Subscribe(name Name, handler Handler) Unsubscribe {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: handler})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name Name, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			// copy so in-flight Publish snapshots stay intact
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.subs, name)
			} else {
				b.subs[name] = next
			}
			return
		}
	}
}

// Publish delivers e to the current subscribers of e.Name. Handlers may
// publish or (un)subscribe; changes take effect on the next Publish.
func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	subs := b.subs[e.Name]
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
}

// Subscribers returns the number of handlers registered for name.
func (b *Bus) Subscribers(name Name) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}
