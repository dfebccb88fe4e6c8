package webhook

import (
	"context"
	"crypto/subtle"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
)

const sourceRefund = "refund"

// RefundSecretHeader содержит общий секрет вебхука возвратов.
const RefundSecretHeader = "X-Webhook-Secret"

// RefundEvent описывает уведомление о выплате по возврату.
type RefundEvent struct {
	EventID  string `json:"eventId"`
	ReturnID string `json:"returnId"`
}

// EventClaimer занимает маркер обработки события.
type EventClaimer interface {
	MarkEventProcessed(ctx context.Context, eventID string) (bool, error)
	ReleaseEvent(ctx context.Context, eventID string) error
}

// Refunder переводит одобренный возврат в состояние refunded.
type Refunder interface {
	MarkReturnRefunded(ctx context.Context, id string) (domain.ReturnRequest, error)
}

// RefundHandler обрабатывает уведомления о выплатах.
type RefundHandler struct {
	secret  string
	events  EventClaimer
	returns Refunder
	metrics *metrics.StorefrontMetrics
	logger  *log.Entry
}

// NewRefundHandler создаёт обработчик. Без настроенного секрета все запросы отклоняются.
func NewRefundHandler(secret string, events EventClaimer, returns Refunder, m *metrics.StorefrontMetrics, logger *log.Entry) *RefundHandler {
	if logger == nil {
		logger = log.WithField("component", "refund-webhook")
	}
	return &RefundHandler{
		secret:  secret,
		events:  events,
		returns: returns,
		metrics: m,
		logger:  logger,
	}
}

// Authorize сверяет переданный секрет.
func (h *RefundHandler) Authorize(provided string) error {
	if h.secret == "" || subtle.ConstantTimeCompare([]byte(h.secret), []byte(provided)) != 1 {
		h.metrics.RecordWebhook(sourceRefund, metrics.OutcomeRejected)
		return domain.Unauthorized("Invalid webhook secret")
	}
	return nil
}

// Handle помечает возврат выплаченным ровно один раз на событие.
func (h *RefundHandler) Handle(ctx context.Context, event RefundEvent) (Result, error) {
	if event.EventID == "" || event.ReturnID == "" {
		h.metrics.RecordWebhook(sourceRefund, metrics.OutcomeRejected)
		return Result{}, domain.Validation("Missing eventId or returnId")
	}

	claimID := domain.RefundEventID(event.EventID)
	first, err := h.events.MarkEventProcessed(ctx, claimID)
	if err != nil {
		h.metrics.RecordWebhook(sourceRefund, metrics.OutcomeFailed)
		return Result{}, err
	}
	if !first {
		h.metrics.RecordWebhook(sourceRefund, metrics.OutcomeSkipped)
		return Result{OK: true, Skipped: true}, nil
	}

	logger := h.logger.WithFields(log.Fields{
		"event_id":  event.EventID,
		"return_id": event.ReturnID,
	})
	if _, err := h.returns.MarkReturnRefunded(ctx, event.ReturnID); err != nil {
		// Сбой хранилища не должен навсегда блокировать событие.
		if domain.KindOf(err) == domain.KindInternal {
			if releaseErr := h.events.ReleaseEvent(ctx, claimID); releaseErr != nil {
				logger.WithError(releaseErr).Error("failed to release refund event claim")
			}
		}
		h.metrics.RecordWebhook(sourceRefund, metrics.OutcomeFailed)
		logger.WithError(err).Warn("refund webhook failed")
		return Result{}, err
	}

	h.metrics.RecordWebhook(sourceRefund, metrics.OutcomeOK)
	logger.Info("refund recorded")
	return Result{OK: true}, nil
}
