package kafka

import "time"

// EventType определяет тип доменного события.
type EventType string

const (
	EventTypeOrderPaid          EventType = "order.paid"
	EventTypeOrderStatusUpdated EventType = "order.status_updated"

	EventTypeReturnRequested EventType = "return.requested"
	EventTypeReturnApproved  EventType = "return.approved"
	EventTypeReturnDenied    EventType = "return.denied"
	EventTypeReturnRefunded  EventType = "return.refunded"

	EventTypeLoyaltyCredited     EventType = "loyalty.credited"
	EventTypeLoyaltyDebited      EventType = "loyalty.debited"
	EventTypeLoyaltyHoldReleased EventType = "loyalty.hold_released"
)

// Топики доменных событий.
const (
	TopicOrderEvents   = "glowup.order.events"
	TopicReturnEvents  = "glowup.return.events"
	TopicLoyaltyEvents = "glowup.loyalty.events"
)

// HeaderEventType дублирует тип события в заголовке сообщения для фильтрации без разбора тела.
const HeaderEventType = "x-event-type"

// DomainEvent описывает конверт события. AggregateID служит ключом партиционирования.
type DomainEvent struct {
	EventType   EventType      `json:"event_type"`
	AggregateID string         `json:"aggregate_id"`
	UserID      string         `json:"user_id,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	Data        map[string]any `json:"data,omitempty"`
}

// Type возвращает тип события.
func (e *DomainEvent) Type() EventType {
	return e.EventType
}

// TopicFor возвращает топик по префиксу типа события.
func TopicFor(eventType EventType) string {
	switch eventType {
	case EventTypeReturnRequested, EventTypeReturnApproved, EventTypeReturnDenied, EventTypeReturnRefunded:
		return TopicReturnEvents
	case EventTypeLoyaltyCredited, EventTypeLoyaltyDebited, EventTypeLoyaltyHoldReleased:
		return TopicLoyaltyEvents
	default:
		return TopicOrderEvents
	}
}

// NewDomainEvent создаёт событие с текущим временем.
func NewDomainEvent(eventType EventType, aggregateID, userID string, data map[string]any) *DomainEvent {
	return &DomainEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
		Data:        data,
	}
}
