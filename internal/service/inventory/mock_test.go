package inventory

import (
	"context"
	"errors"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

func TestMockService(t *testing.T) {
	mock := NewMockService()
	if mock == nil {
		t.Fatal("expected non-nil mock")
	}

	items := []domain.CartItem{{ID: "l-1", ProductID: "p-1", Price: 100, Quantity: 2}}
	if err := mock.Decrement(context.Background(), "o-1", items); err != nil {
		t.Fatalf("unexpected decrement error: %v", err)
	}

	mock.DecrementErr = errors.New("decrement failed")
	if err := mock.Decrement(context.Background(), "o-2", items); err == nil {
		t.Fatal("expected decrement error")
	}
	if mock.DecrementCalls != 2 {
		t.Fatalf("unexpected call counter: %d", mock.DecrementCalls)
	}
	if len(mock.Orders) != 2 || mock.Orders[1] != "o-2" {
		t.Fatalf("unexpected orders: %v", mock.Orders)
	}
}

func TestLoggingServiceLogsUnits(t *testing.T) {
	logger, hook := test.NewNullLogger()
	service := NewLoggingService(log.NewEntry(logger))

	items := []domain.CartItem{
		{ID: "l-1", Quantity: 2},
		{ID: "l-2", Quantity: 3},
	}
	if err := service.Decrement(context.Background(), "o-1", items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected log entry")
	}
	if entry.Data["order_id"] != "o-1" || entry.Data["units"] != int64(5) || entry.Data["lines"] != 2 {
		t.Fatalf("unexpected log fields: %v", entry.Data)
	}
}
