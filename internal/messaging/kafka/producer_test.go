package kafka

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer)

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var decoded DomainEvent
		if err := json.Unmarshal(val, &decoded); err != nil {
			return err
		}
		if decoded.EventType != EventTypeOrderPaid || decoded.AggregateID != "order-123" {
			return fmt.Errorf("unexpected event: %+v", decoded)
		}
		return nil
	})

	event := NewDomainEvent(EventTypeOrderPaid, "order-123", "user-1", map[string]any{"total": 3830})
	if err := producer.PublishEvent(TopicOrderEvents, "order-123", event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer)

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewDomainEvent(EventTypeReturnRequested, "ret-1", "", nil)
	if err := producer.PublishEvent(TopicReturnEvents, "ret-1", event); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_MarshalError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	producer := newProducer(mockProducer)

	if err := producer.PublishEvent(TopicOrderEvents, "k", map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected marshal error")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewProducerConfig_Idempotent(t *testing.T) {
	config := newProducerConfig()

	if !config.Producer.Idempotent {
		t.Fatal("expected idempotent producer")
	}
	if config.Net.MaxOpenRequests != 1 {
		t.Fatalf("expected MaxOpenRequests=1, got %d", config.Net.MaxOpenRequests)
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("expected WaitForAll acks, got %v", config.Producer.RequiredAcks)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("config must be valid: %v", err)
	}
}

func TestNewDomainEvent(t *testing.T) {
	event := NewDomainEvent(EventTypeLoyaltyCredited, "user-1", "user-1", map[string]any{"points": 38})

	if event.Type() != EventTypeLoyaltyCredited {
		t.Errorf("expected event type %s, got %s", EventTypeLoyaltyCredited, event.EventType)
	}
	if event.Data["points"] != 38 {
		t.Error("data not set correctly")
	}
	if event.Timestamp.IsZero() || time.Since(event.Timestamp) > time.Second {
		t.Errorf("timestamp should be close to now, got %s", event.Timestamp)
	}
}

func TestTopicFor(t *testing.T) {
	tests := map[EventType]string{
		EventTypeOrderPaid:           TopicOrderEvents,
		EventTypeOrderStatusUpdated:  TopicOrderEvents,
		EventTypeReturnApproved:      TopicReturnEvents,
		EventTypeReturnRefunded:      TopicReturnEvents,
		EventTypeLoyaltyDebited:      TopicLoyaltyEvents,
		EventTypeLoyaltyHoldReleased: TopicLoyaltyEvents,
	}

	for eventType, want := range tests {
		if got := TopicFor(eventType); got != want {
			t.Errorf("TopicFor(%s) = %s, want %s", eventType, got, want)
		}
	}
}
