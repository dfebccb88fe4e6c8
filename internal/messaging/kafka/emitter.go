package kafka

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// Emitter публикует доменные события после фиксации изменений в хранилище.
// Ошибки публикации логируются и не возвращаются: состояние уже сохранено.
type Emitter struct {
	publisher domain.EventPublisher
	logger    *log.Entry
}

// NewEmitter создаёт эмиттер. nil publisher отключает публикацию.
func NewEmitter(publisher domain.EventPublisher, logger *log.Entry) *Emitter {
	if logger == nil {
		logger = log.WithField("component", "event-emitter")
	}
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit отправляет событие в топик, соответствующий его типу.
func (e *Emitter) Emit(eventType EventType, aggregateID, userID string, data map[string]any) {
	if e == nil || e.publisher == nil {
		return
	}

	event := NewDomainEvent(eventType, aggregateID, userID, data)
	topic := TopicFor(eventType)
	if err := e.publisher.PublishEvent(topic, aggregateID, event); err != nil {
		e.logger.WithError(err).WithFields(log.Fields{
			"event_type":   eventType,
			"aggregate_id": aggregateID,
			"topic":        topic,
		}).Warn("failed to publish domain event")
	}
}
