package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventClassCreated         EventType = "class_created"
	EventClassUpdated         EventType = "class_updated"
	EventClassDeleted         EventType = "class_deleted"
	EventAttributeCreated     EventType = "attribute_created"
	EventAttributeUpdated     EventType = "attribute_updated"
	EventAttributeDeleted     EventType = "attribute_deleted"
	EventRulesUpdated         EventType = "rules_updated"
	EventObjectCreated        EventType = "object_created"
	EventObjectUpdated        EventType = "object_updated"
	EventObjectsMoved         EventType = "objects_moved"
	EventObjectsCopied        EventType = "objects_copied"
	EventObjectsDeleted       EventType = "objects_deleted"
	EventRelationshipCreated  EventType = "relationship_created"
	EventRelationshipReleased EventType = "relationship_released"
	EventListTypeItemsUpdated EventType = "list_type_items_updated"
	EventPoolsUpdated         EventType = "pools_updated"
	EventTemplatesUpdated     EventType = "templates_updated"
	EventDataModelImported    EventType = "data_model_imported"
)

// Event represents an event that occurred in the system
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Unsubscribe removes a subscriber
func (eb *EventBus) Unsubscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	for i, sub := range eb.subscribers {
		if sub == ch {
			eb.subscribers = append(eb.subscribers[:i], eb.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}
