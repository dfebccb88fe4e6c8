package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()

	metric := &dto.Metric{}
	if err := c.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()

	h, ok := o.(prometheus.Histogram)
	if !ok {
		t.Fatalf("observer %T is not a histogram", o)
	}
	metric := &dto.Metric{}
	if err := h.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	return metric.GetHistogram().GetSampleCount()
}

func TestStorefrontMetrics_RecordCheckout(t *testing.T) {
	m := NewStorefrontMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordCheckout(OutcomeOK, 20*time.Millisecond)
	m.RecordCheckout(OutcomeOK, 30*time.Millisecond)
	m.RecordCheckout(OutcomeFailed, time.Millisecond)

	if got := counterValue(t, m.checkouts.WithLabelValues(OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 successful checkouts, got %f", got)
	}
	if got := counterValue(t, m.checkouts.WithLabelValues(OutcomeFailed)); got != 1 {
		t.Fatalf("expected 1 failed checkout, got %f", got)
	}
	if got := histogramCount(t, m.checkoutDuration); got != 3 {
		t.Fatalf("expected 3 duration samples, got %d", got)
	}
}

func TestStorefrontMetrics_WebhookAndOrders(t *testing.T) {
	m := NewStorefrontMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordWebhook("stripe", OutcomeOK)
	m.RecordWebhook("stripe", OutcomeSkipped)
	m.RecordWebhook("stripe", OutcomeSkipped)
	m.RecordOrderPaid()
	m.RecordOrderStatus("shipped")

	if got := counterValue(t, m.webhookEvents.WithLabelValues("stripe", OutcomeSkipped)); got != 2 {
		t.Fatalf("expected 2 skipped deliveries, got %f", got)
	}
	if got := counterValue(t, m.ordersPaid); got != 1 {
		t.Fatalf("expected 1 paid order, got %f", got)
	}
	if got := counterValue(t, m.orderStatus.WithLabelValues("shipped")); got != 1 {
		t.Fatalf("expected 1 status update, got %f", got)
	}
}

func TestStorefrontMetrics_GatewayOutcomeLabel(t *testing.T) {
	m := NewStorefrontMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordGatewayCall("create_payment_intent", nil, 10*time.Millisecond)
	m.RecordGatewayCall("create_payment_intent", errors.New("boom"), 10*time.Millisecond)

	if got := histogramCount(t, m.gatewayDuration.WithLabelValues("create_payment_intent", OutcomeOK)); got != 1 {
		t.Fatalf("expected 1 ok sample, got %d", got)
	}
	if got := histogramCount(t, m.gatewayDuration.WithLabelValues("create_payment_intent", OutcomeFailed)); got != 1 {
		t.Fatalf("expected 1 failed sample, got %d", got)
	}
}

func TestStorefrontMetrics_LoyaltyAndReturns(t *testing.T) {
	m := NewStorefrontMetricsWithRegisterer(prometheus.NewRegistry())

	m.RecordPointsCredited("purchase", 38)
	m.RecordPointsDebited("redemption", 100)
	m.RecordHoldReleased()
	m.RecordReturn("pending")

	if got := counterValue(t, m.loyaltyPoints.WithLabelValues("credit", "purchase")); got != 38 {
		t.Fatalf("expected 38 credited points, got %f", got)
	}
	if got := counterValue(t, m.loyaltyPoints.WithLabelValues("debit", "redemption")); got != 100 {
		t.Fatalf("expected 100 debited points, got %f", got)
	}
	if got := counterValue(t, m.holdsReleased); got != 1 {
		t.Fatalf("expected 1 released hold, got %f", got)
	}
	if got := counterValue(t, m.returns.WithLabelValues("pending")); got != 1 {
		t.Fatalf("expected 1 pending return, got %f", got)
	}
}

func TestStorefrontMetrics_ReRegistrationReturnsExisting(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewStorefrontMetricsWithRegisterer(reg)
	second := NewStorefrontMetricsWithRegisterer(reg)

	first.RecordOrderPaid()
	if got := counterValue(t, second.ordersPaid); got != 1 {
		t.Fatalf("expected shared collector, got %f", got)
	}
}

func TestStorefrontMetrics_NilReceiverIsNoop(t *testing.T) {
	var m *StorefrontMetrics

	m.RecordCheckout(OutcomeOK, time.Second)
	m.RecordWebhook("refund", OutcomeOK)
	m.RecordOrderPaid()
	m.RecordOrderStatus("paid")
	m.RecordGatewayCall("x", nil, time.Second)
	m.RecordPointsCredited("bonus", 1)
	m.RecordPointsDebited("redemption", 1)
	m.RecordHoldReleased()
	m.RecordReturn("approved")
}
