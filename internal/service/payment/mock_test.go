package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

func TestMockGateway(t *testing.T) {
	mock := NewMockGateway(testSecret)
	if mock == nil {
		t.Fatal("expected non-nil mock")
	}

	params := domain.PaymentIntentParams{
		Amount:         3830,
		Currency:       "kes",
		Metadata:       map[string]string{"draftId": "d-1"},
		IdempotencyKey: "checkout:d-1",
	}
	first, err := mock.CreatePaymentIntent(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if first.ClientSecret == "" || first.Amount != 3830 {
		t.Fatalf("unexpected intent: %+v", first)
	}

	second, err := mock.CreatePaymentIntent(context.Background(), params)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected idempotent intent, got %s and %s", first.ID, second.ID)
	}

	mock.CreateErr = errors.New("gateway down")
	if _, err := mock.CreatePaymentIntent(context.Background(), params); err == nil {
		t.Fatal("expected create error")
	}
	if mock.CreateCalls != 3 {
		t.Fatalf("unexpected create calls: %d", mock.CreateCalls)
	}
	if mock.LastParams.IdempotencyKey != "checkout:d-1" {
		t.Fatalf("unexpected last params: %+v", mock.LastParams)
	}

	payload := testPayload("evt_mock")
	event, err := mock.VerifySignature(payload, mock.Sign(payload))
	if err != nil {
		t.Fatalf("unexpected verify error: %v", err)
	}
	if event.ID != "evt_mock" {
		t.Fatalf("unexpected event id: %s", event.ID)
	}
	if _, err := mock.VerifySignature(payload, "t=1,v1=bad"); err == nil {
		t.Fatal("expected verify error")
	}
	if mock.VerifyCalls != 2 {
		t.Fatalf("unexpected verify calls: %d", mock.VerifyCalls)
	}
}
