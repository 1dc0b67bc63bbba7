package core

import "sync"

type EventContext struct {
	GroupID  string
	OptionID string
	// Percent is set by EventLoadProgress.
	Percent int
	// Count is the number of entries involved, e.g. culled meshes.
	Count int
}

type SystemEventCode int

const (
	// A trait entry was attached to the avatar.
	/* Context usage:
	 * GroupID, OptionID
	 */
	EventTraitAttached SystemEventCode = 0x01

	// A trait entry was disposed and its slot cleared.
	/* Context usage:
	 * GroupID
	 */
	EventTraitRemoved SystemEventCode = 0x02

	// Cross-trait culling was recomputed.
	/* Context usage:
	 * Count = number of meshes that took part
	 */
	EventCullingUpdated SystemEventCode = 0x03

	// Batch loading progress changed.
	/* Context usage:
	 * Percent
	 */
	EventLoadProgress SystemEventCode = 0x04

	// A catalog was loaded or replaced.
	EventManifestLoaded SystemEventCode = 0x05

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to listeners in registration order. Every
// composer owns its own bus so that independent avatars do not share listeners.
type EventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 * @param code The event code to listen for.
 * @param listener A listener instance. Can be nil.
 * @param onEvent The callback invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range b.registered[code] {
		if listener != nil && e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister the given listener from the provided code.
 * @returns true if a registration was removed; otherwise false.
 */
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @returns true if handled, otherwise false.
 */
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	events := append([]*registeredEvent(nil), b.registered[code]...)
	b.mu.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (b *EventBus) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = make(map[SystemEventCode][]*registeredEvent)
	return nil
}
