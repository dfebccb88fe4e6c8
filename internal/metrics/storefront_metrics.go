package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы обработки, используемые как значения меток.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// StorefrontMetrics содержит метрики конвейера заказов витрины.
// Методы безопасно вызывать на nil-получателе: метрики отключены.
type StorefrontMetrics struct {
	checkouts        *prometheus.CounterVec
	checkoutDuration prometheus.Histogram

	webhookEvents *prometheus.CounterVec
	ordersPaid    prometheus.Counter
	orderStatus   *prometheus.CounterVec

	gatewayDuration *prometheus.HistogramVec

	loyaltyPoints *prometheus.CounterVec
	holdsReleased prometheus.Counter

	returns *prometheus.CounterVec
}

// NewStorefrontMetrics регистрирует метрики в реестре по умолчанию.
func NewStorefrontMetrics() *StorefrontMetrics {
	return NewStorefrontMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStorefrontMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewStorefrontMetricsWithRegisterer(registerer prometheus.Registerer) *StorefrontMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StorefrontMetrics{
		checkouts: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowup_checkout_total",
			Help: "Checkout intents by result",
		}, []string{"result"})),
		checkoutDuration: register(registerer, prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "glowup_checkout_duration_seconds",
			Help:    "Duration of checkout intent creation in seconds",
			Buckets: prometheus.DefBuckets,
		})),
		webhookEvents: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowup_webhook_events_total",
			Help: "Webhook deliveries by source and outcome",
		}, []string{"source", "outcome"})),
		ordersPaid: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glowup_orders_paid_total",
			Help: "Orders created from paid drafts",
		})),
		orderStatus: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowup_order_status_updates_total",
			Help: "Admin order status updates by target status",
		}, []string{"status"})),
		gatewayDuration: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "glowup_payment_gateway_duration_seconds",
			Help:    "Payment gateway call latency in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "outcome"})),
		loyaltyPoints: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowup_loyalty_points_total",
			Help: "Loyalty points moved by direction and transaction type",
		}, []string{"direction", "type"})),
		holdsReleased: register(registerer, prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glowup_points_holds_released_total",
			Help: "Points holds re-credited after an abandoned checkout",
		})),
		returns: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowup_returns_total",
			Help: "Return workflow transitions by resulting status",
		}, []string{"status"})),
	}
}

func register[C prometheus.Collector](registerer prometheus.Registerer, collector C) C {
	if err := registerer.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			existing, ok := already.ExistingCollector.(C)
			if !ok {
				panic(fmt.Sprintf("collector already registered with unexpected type %T", already.ExistingCollector))
			}
			return existing
		}
		panic(fmt.Sprintf("register collector: %v", err))
	}
	return collector
}

// RecordCheckout фиксирует результат и длительность оформления.
func (m *StorefrontMetrics) RecordCheckout(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(result).Inc()
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordWebhook фиксирует исход обработки вебхука.
func (m *StorefrontMetrics) RecordWebhook(source, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(source, outcome).Inc()
}

// RecordOrderPaid увеличивает счётчик оплаченных заказов.
func (m *StorefrontMetrics) RecordOrderPaid() {
	if m == nil {
		return
	}
	m.ordersPaid.Inc()
}

// RecordOrderStatus фиксирует смену статуса администратором.
func (m *StorefrontMetrics) RecordOrderStatus(status string) {
	if m == nil {
		return
	}
	m.orderStatus.WithLabelValues(status).Inc()
}

// RecordGatewayCall записывает задержку обращения к платёжному провайдеру.
func (m *StorefrontMetrics) RecordGatewayCall(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeFailed
	}
	m.gatewayDuration.WithLabelValues(operation, outcome).Observe(duration.Seconds())
}

// RecordPointsCredited учитывает начисленные баллы.
func (m *StorefrontMetrics) RecordPointsCredited(txType string, points int64) {
	if m == nil {
		return
	}
	m.loyaltyPoints.WithLabelValues("credit", txType).Add(float64(points))
}

// RecordPointsDebited учитывает списанные баллы.
func (m *StorefrontMetrics) RecordPointsDebited(txType string, points int64) {
	if m == nil {
		return
	}
	m.loyaltyPoints.WithLabelValues("debit", txType).Add(float64(points))
}

// RecordHoldReleased увеличивает счётчик возвращённых резервов.
func (m *StorefrontMetrics) RecordHoldReleased() {
	if m == nil {
		return
	}
	m.holdsReleased.Inc()
}

// RecordReturn фиксирует переход возврата в статус.
func (m *StorefrontMetrics) RecordReturn(status string) {
	if m == nil {
		return
	}
	m.returns.WithLabelValues(status).Inc()
}
