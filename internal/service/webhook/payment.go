package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
)

const sourcePayment = "stripe"

// Result описывает ответ провайдеру. OK=false с причиной означает, что событие принято,
// но заказ не создан; повторная доставка не поможет.
type Result struct {
	OK      bool   `json:"ok"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// OrderStore даёт доступ к черновикам, заказам и журналу обработанных событий.
type OrderStore interface {
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
	GetDraft(ctx context.Context, id string) (domain.OrderDraft, error)
	SaveOrder(ctx context.Context, order domain.Order) error
}

// CartClearer очищает корзину после оплаты.
type CartClearer interface {
	Clear(ctx context.Context, identity domain.Identity) error
}

// LoyaltyLedger закрывает резерв баллов и начисляет баллы за покупку.
type LoyaltyLedger interface {
	ConsumeHold(ctx context.Context, draftID string) error
	CreditPoints(ctx context.Context, userID string, points int64, txType domain.TransactionType, description string, metadata map[string]any) (domain.LoyaltyTransaction, error)
	CalculatePointsFromPurchase(amountKES int64) int64
}

// PaymentDeps собирает зависимости обработчика платёжных вебхуков.
type PaymentDeps struct {
	Gateway   domain.PaymentGateway
	Orders    OrderStore
	Carts     CartClearer
	Loyalty   LoyaltyLedger
	Inventory domain.InventoryService
	Notifier  domain.Notifier
	Events    *kafka.Emitter
	Metrics   *metrics.StorefrontMetrics
}

// PaymentHandler превращает подтверждённую оплату в заказ.
type PaymentHandler struct {
	deps   PaymentDeps
	logger *log.Entry
	now    func() time.Time
}

// NewPaymentHandler создаёт обработчик вебхуков платёжного провайдера.
func NewPaymentHandler(deps PaymentDeps, logger *log.Entry) *PaymentHandler {
	if logger == nil {
		logger = log.WithField("component", "payment-webhook")
	}
	return &PaymentHandler{deps: deps, logger: logger, now: time.Now}
}

// WithClock подменяет источник времени.
func (h *PaymentHandler) WithClock(now func() time.Time) *PaymentHandler {
	h.now = now
	return h
}

// Handle проверяет подпись и обрабатывает событие.
func (h *PaymentHandler) Handle(ctx context.Context, payload []byte, signatureHeader string) (Result, error) {
	if signatureHeader == "" {
		h.deps.Metrics.RecordWebhook(sourcePayment, metrics.OutcomeRejected)
		return Result{}, domain.Validation("Missing signature")
	}

	event, err := h.deps.Gateway.VerifySignature(payload, signatureHeader)
	if err != nil {
		h.deps.Metrics.RecordWebhook(sourcePayment, metrics.OutcomeRejected)
		h.logger.WithError(err).Warn("webhook signature rejected")
		return Result{}, err
	}
	return h.HandleEvent(ctx, event)
}

// HandleEvent обрабатывает проверенное событие ровно один раз.
func (h *PaymentHandler) HandleEvent(ctx context.Context, event domain.GatewayEvent) (Result, error) {
	logger := h.logger.WithFields(log.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	first, err := h.deps.Orders.MarkEventProcessed(ctx, event.ID)
	if err != nil {
		h.deps.Metrics.RecordWebhook(sourcePayment, metrics.OutcomeFailed)
		return Result{}, err
	}
	if !first {
		h.deps.Metrics.RecordWebhook(sourcePayment, metrics.OutcomeSkipped)
		logger.Info("webhook event already processed")
		return Result{OK: true, Skipped: true}, nil
	}

	switch event.Type {
	case domain.GatewayEventPaymentSucceeded:
		result, err := h.paymentSucceeded(ctx, logger, event)
		h.deps.Metrics.RecordWebhook(sourcePayment, webhookOutcome(result, err))
		return result, err
	case domain.GatewayEventPaymentFailed:
		logger.WithField("draft_id", event.Data.Object.Metadata["draftId"]).Info("payment failed")
	default:
		logger.Debug("webhook event ignored")
	}

	h.deps.Metrics.RecordWebhook(sourcePayment, metrics.OutcomeOK)
	return Result{OK: true}, nil
}

func (h *PaymentHandler) paymentSucceeded(ctx context.Context, logger *log.Entry, event domain.GatewayEvent) (Result, error) {
	intent := event.Data.Object
	draftID := intent.Metadata["draftId"]
	if draftID == "" {
		logger.Warn("payment intent without draft id")
		return Result{Reason: "No draftId"}, nil
	}
	logger = logger.WithField("draft_id", draftID)

	draft, err := h.deps.Orders.GetDraft(ctx, draftID)
	if errors.Is(err, domain.ErrDraftNotFound) {
		logger.Warn("draft not found for paid intent")
		return Result{Reason: "Draft not found"}, nil
	}
	if err != nil {
		return Result{}, h.release(ctx, logger, event.ID, err)
	}

	order := domain.NewOrderFromDraft(draft, intent.ID, event.ID, h.now())
	if err := h.deps.Orders.SaveOrder(ctx, order); err != nil {
		return Result{}, h.release(ctx, logger, event.ID, err)
	}

	h.afterPayment(ctx, logger, draft, order)
	return Result{OK: true}, nil
}

// release снимает маркер события, если заказ не сохранён, чтобы повторная
// доставка вебхука завершила обработку.
func (h *PaymentHandler) release(ctx context.Context, logger *log.Entry, eventID string, cause error) error {
	if err := h.deps.Orders.ReleaseEvent(ctx, eventID); err != nil {
		logger.WithError(err).Error("failed to release webhook event claim")
	}
	return cause
}

// afterPayment выполняет побочные эффекты после фиксации заказа.
// Ошибки логируются: заказ уже оплачен и сохранён.
func (h *PaymentHandler) afterPayment(ctx context.Context, logger *log.Entry, draft domain.OrderDraft, order domain.Order) {
	logger = logger.WithFields(log.Fields{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})

	if err := h.deps.Loyalty.ConsumeHold(ctx, draft.ID); err != nil {
		logger.WithError(err).Warn("failed to consume points hold")
	}
	if err := h.deps.Carts.Clear(ctx, domain.Identity{UserID: draft.UserID, SessionID: draft.SessionID}); err != nil {
		logger.WithError(err).Warn("failed to clear cart")
	}
	if err := h.deps.Inventory.Decrement(ctx, order.ID, order.Items); err != nil {
		logger.WithError(err).Warn("failed to decrement inventory")
	}
	h.accrue(ctx, logger, order)

	var email string
	if order.Address != nil {
		email = order.Address.Email
	}
	if err := h.deps.Notifier.SendOrderConfirmation(ctx, email, order.ID); err != nil {
		logger.WithError(err).Warn("failed to send order confirmation")
	}

	h.deps.Events.Emit(kafka.EventTypeOrderPaid, order.ID, order.UserID, map[string]any{
		"total":           order.Total,
		"currency":        order.Currency,
		"paymentIntentId": order.PaymentIntentID,
	})
	h.deps.Metrics.RecordOrderPaid()
	logger.WithField("total", order.Total).Info("order paid")
}

// accrue начисляет баллы за покупку от итоговой суммы после скидки. Гостям не начисляется.
func (h *PaymentHandler) accrue(ctx context.Context, logger *log.Entry, order domain.Order) {
	if order.UserID == "" {
		return
	}
	points := h.deps.Loyalty.CalculatePointsFromPurchase(order.Total)
	if points <= 0 {
		return
	}

	description := fmt.Sprintf("Earned %d points from purchase", points)
	metadata := map[string]any{
		"amountKES": order.Total,
		"orderId":   order.ID,
	}
	if _, err := h.deps.Loyalty.CreditPoints(ctx, order.UserID, points, domain.TransactionPurchase, description, metadata); err != nil {
		logger.WithError(err).Error("failed to accrue loyalty points")
	}
}

func webhookOutcome(result Result, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeFailed
	case !result.OK:
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeOK
	}
}
