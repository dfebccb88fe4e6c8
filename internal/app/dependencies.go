package app

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/glowup/internal/health"
	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
	"github.com/vladislavdragonenkov/glowup/internal/service/admin"
	"github.com/vladislavdragonenkov/glowup/internal/service/api"
	"github.com/vladislavdragonenkov/glowup/internal/service/cart"
	"github.com/vladislavdragonenkov/glowup/internal/service/checkout"
	"github.com/vladislavdragonenkov/glowup/internal/service/expiry"
	"github.com/vladislavdragonenkov/glowup/internal/service/inventory"
	"github.com/vladislavdragonenkov/glowup/internal/service/loyalty"
	"github.com/vladislavdragonenkov/glowup/internal/service/notification"
	"github.com/vladislavdragonenkov/glowup/internal/service/orders"
	"github.com/vladislavdragonenkov/glowup/internal/service/payment"
	"github.com/vladislavdragonenkov/glowup/internal/service/returns"
	"github.com/vladislavdragonenkov/glowup/internal/service/webhook"
)

// runtimeDependencies содержит собранный граф сервисов и фоновых воркеров.
type runtimeDependencies struct {
	store    domain.KVStore
	producer *kafka.Producer
	metrics  *metrics.StorefrontMetrics

	carts    *cart.Service
	ledger   *loyalty.Ledger
	orders   *orders.Store
	returns  *returns.Service
	checkout *checkout.Service
	gateway  domain.PaymentGateway

	api           http.Handler
	holdSweeper   *loyalty.HoldSweeper
	cleanupWorker *expiry.CleanupWorker
	storeChecker  healthcheck.Checker

	closeFn func() error
}

// initRuntimeDependencies открывает хранилище и собирает сервисы.
// Клиенты создаются здесь и закрываются через closeFn, пакетных синглтонов нет.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	st, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	producer := initKafkaProducer(cfg.KafkaBrokers, logger)
	var publisher domain.EventPublisher
	if producer != nil {
		publisher = producer
	}
	events := kafka.NewEmitter(publisher, logger.WithField("component", "event-emitter"))
	m := metrics.NewStorefrontMetrics()

	deps := &runtimeDependencies{
		store:    st.kv,
		producer: producer,
		metrics:  m,
	}
	deps.closeFn = func() error {
		closeKafka(producer, logger)
		if st.closeFn != nil {
			return st.closeFn()
		}
		return nil
	}

	deps.gateway = newPaymentGateway(cfg, m, logger)
	deps.carts = cart.NewService(st.kv, logger.WithField("component", "cart"))
	deps.ledger = loyalty.NewLedger(st.kv, cfg.Loyalty, logger.WithField("component", "loyalty")).
		WithMetrics(m).
		WithEvents(events)
	deps.orders = orders.NewStore(st.kv, logger.WithField("component", "orders")).
		WithMetrics(m).
		WithEvents(events)
	deps.returns = returns.NewService(st.kv, deps.orders, logger.WithField("component", "returns")).
		WithMetrics(m).
		WithEvents(events)
	deps.checkout = checkout.NewService(deps.carts, deps.ledger, deps.orders, deps.gateway, cfg.Loyalty.PointValueKES, logger.WithField("component", "checkout")).
		WithMetrics(m)

	payments := webhook.NewPaymentHandler(webhook.PaymentDeps{
		Gateway:   deps.gateway,
		Orders:    deps.orders,
		Carts:     deps.carts,
		Loyalty:   deps.ledger,
		Inventory: inventory.NewLoggingService(logger.WithField("component", "inventory")),
		Notifier:  notification.NewLoggingNotifier(logger.WithField("component", "notifier")),
		Events:    events,
		Metrics:   m,
	}, logger.WithField("component", "payment-webhook"))
	refunds := webhook.NewRefundHandler(cfg.RefundWebhookSecret, deps.orders, deps.returns, m, logger.WithField("component", "refund-webhook"))
	if cfg.RefundWebhookSecret == "" {
		logger.Warn("REFUND_WEBHOOK_SECRET is empty: refund webhooks will be rejected")
	}

	admins := admin.NewAllowlist(cfg.AdminUserIDs)
	if admins.Len() == 0 {
		logger.Warn("ADMIN_USER_IDS is empty: admin endpoints are unavailable")
	}
	if cfg.JWTSecret == "" {
		logger.Warn("GLOWUP_JWT_SECRET is empty: all requests are anonymous")
	}

	server := api.NewServer(api.Services{
		Carts:    deps.carts,
		Checkout: deps.checkout,
		Orders:   deps.orders,
		Returns:  deps.returns,
		Loyalty:  deps.ledger,
		Admins:   admins,
		Payments: payments,
		Refunds:  refunds,
	}, api.Config{
		JWTSecret:      cfg.JWTSecret,
		RequestTimeout: cfg.RequestTimeout,
		SecureCookies:  cfg.SecureCookies,
	}, logger.WithField("component", "http-api"))
	deps.api = server.Routes()

	deps.holdSweeper = loyalty.NewHoldSweeper(deps.ledger, deps.orders,
		loyalty.WithSweepInterval(cfg.HoldSweepInterval),
		loyalty.WithSweeperLogger(logger.WithField("component", "loyalty-hold-sweeper")),
	)
	if st.expiring != nil {
		deps.cleanupWorker = expiry.NewCleanupWorker(st.expiring,
			expiry.WithInterval(cfg.ExpiryCleanupInterval),
			expiry.WithBatchSize(cfg.ExpiryCleanupBatchSize),
			expiry.WithLogger(logger.WithField("component", "expiry-cleanup")),
		)
	}
	deps.storeChecker = healthcheck.NewPingChecker("storage", st.kv)

	return deps, nil
}

// newPaymentGateway выбирает клиента платёжного провайдера.
// Без секретного ключа используется локальный mock с проверкой подписи по STRIPE_WEBHOOK_SECRET.
func newPaymentGateway(cfg Config, m *metrics.StorefrontMetrics, logger *log.Entry) domain.PaymentGateway {
	if cfg.StripeSecretKey == "" {
		logger.Warn("STRIPE_SECRET_KEY is empty: payment gateway runs in mock mode")
		return payment.NewMockGateway(cfg.StripeWebhookSecret)
	}
	return payment.NewStripeClient(payment.StripeConfig{
		APIBase:       cfg.StripeAPIBase,
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		Metrics:       m,
	}, logger.WithField("component", "stripe-client"))
}

func (d *runtimeDependencies) close() error {
	if d == nil || d.closeFn == nil {
		return nil
	}
	return d.closeFn()
}
