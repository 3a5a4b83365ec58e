package ports

import (
	"github.com/tejashwikalptaru/tunedeck/internal/domain"
)

// EventBus carries player events between the services and the UI.
//
// The playback engine publishes track lifecycle events (loading, prepared,
// started, completed, engine error) from whichever goroutine applied the
// backend message. The library service publishes catalog events from its
// watcher. Handlers therefore run on those goroutines and must not call back
// into the publisher while it holds a lock.
//
//	id := bus.Subscribe(domain.EventTrackCompleted, func(e domain.Event) {
//	    _ = controller.Next()
//	})
//	defer bus.Unsubscribe(id)
type EventBus interface {
	// Publish delivers event to the handlers of its type, then to the
	// catch-all handlers.
	Publish(event domain.Event)

	// Subscribe registers handler for one event type.
	Subscribe(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// SubscribeAll registers handler for every event type.
	SubscribeAll(handler domain.EventHandler) domain.SubscriptionID

	// Unsubscribe removes a subscription. Unknown ids are ignored.
	Unsubscribe(id domain.SubscriptionID)

	// Close drops every subscription; later publishes are no-ops.
	Close() error
}

// EventFilter reports whether a subscriber wants event.
type EventFilter func(event domain.Event) bool
