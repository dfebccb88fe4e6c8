package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
)

// CartReader отдаёт корзину покупателя.
type CartReader interface {
	GetOrCreate(ctx context.Context, identity domain.Identity) (domain.Cart, error)
}

// PointsLedger описывает операции лояльности, нужные при оформлении.
type PointsLedger interface {
	ValidateRedemption(ctx context.Context, userID string, points int64) (domain.RedemptionCheck, error)
	DebitPoints(ctx context.Context, userID string, points int64, description string, metadata map[string]any) (domain.LoyaltyTransaction, error)
	CreditPoints(ctx context.Context, userID string, points int64, txType domain.TransactionType, description string, metadata map[string]any) (domain.LoyaltyTransaction, error)
	PlaceHold(ctx context.Context, draftID, userID string, points int64) (domain.PointsHold, error)
	ReleaseHold(ctx context.Context, draftID string) (bool, error)
}

// DraftStore сохраняет черновики заказов.
type DraftStore interface {
	SaveDraft(ctx context.Context, draft domain.OrderDraft) error
}

// Request описывает параметры оформления заказа.
type Request struct {
	Identity       domain.Identity
	ShippingMethod string
	Address        *domain.Address
	PointsToRedeem int64
}

// Intent возвращается клиенту для подтверждения оплаты на стороне браузера.
type Intent struct {
	DraftID        string `json:"draftId"`
	ClientSecret   string `json:"clientSecret"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	PointsDiscount *int64 `json:"pointsDiscount,omitempty"`
	PointsRedeemed *int64 `json:"pointsRedeemed,omitempty"`
}

// Service оформляет черновик заказа и создаёт платёжное намерение.
type Service struct {
	carts         CartReader
	points        PointsLedger
	drafts        DraftStore
	gateway       domain.PaymentGateway
	pointValueKES float64
	logger        *log.Entry
	metrics       *metrics.StorefrontMetrics
	now           func() time.Time
	newID         func() string
}

// NewService создаёт сервис оформления.
func NewService(carts CartReader, points PointsLedger, drafts DraftStore, gateway domain.PaymentGateway, pointValueKES float64, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	return &Service{
		carts:         carts,
		points:        points,
		drafts:        drafts,
		gateway:       gateway,
		pointValueKES: pointValueKES,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator подменяет генератор идентификаторов черновиков.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// WithMetrics подключает метрики оформления.
func (s *Service) WithMetrics(m *metrics.StorefrontMetrics) *Service {
	s.metrics = m
	return s
}

// CreateIntent проверяет корзину и баллы, списывает баллы под резерв, создаёт
// платёжное намерение и сохраняет черновик.
func (s *Service) CreateIntent(ctx context.Context, req Request) (Intent, error) {
	started := time.Now()
	intent, err := s.createIntent(ctx, req)
	s.metrics.RecordCheckout(checkoutResult(err), time.Since(started))
	return intent, err
}

func (s *Service) createIntent(ctx context.Context, req Request) (Intent, error) {
	identity := req.Identity.Effective()
	if err := identity.Validate(); err != nil {
		return Intent{}, err
	}

	shippingMethod, err := domain.ParseShippingMethod(req.ShippingMethod)
	if err != nil {
		return Intent{}, err
	}

	cart, err := s.carts.GetOrCreate(ctx, identity)
	if err != nil {
		return Intent{}, err
	}
	if len(cart.Items) == 0 {
		return Intent{}, domain.Validation("Cart empty")
	}

	redeem := req.PointsToRedeem > 0
	if redeem {
		if !identity.Authenticated() {
			return Intent{}, domain.Unauthorized("Must be logged in to redeem points")
		}
		check, err := s.points.ValidateRedemption(ctx, identity.UserID, req.PointsToRedeem)
		if err != nil {
			return Intent{}, err
		}
		if !check.Valid {
			return Intent{}, domain.Validation("%s", check.Error)
		}
	}

	totals := ComputeTotals(TotalsInput{
		Items:          cart.Items,
		ShippingMethod: shippingMethod,
		PointsToRedeem: req.PointsToRedeem,
	}, s.pointValueKES)
	draftID := s.newID()

	logger := s.logger.WithFields(log.Fields{
		"draft_id": draftID,
		"user_id":  identity.UserID,
	})

	if redeem {
		if err := s.holdPoints(ctx, identity.UserID, draftID, req.PointsToRedeem); err != nil {
			return Intent{}, err
		}
	}

	paymentIntent, err := s.gateway.CreatePaymentIntent(ctx, domain.PaymentIntentParams{
		Amount:   totals.Total,
		Currency: strings.ToLower(domain.CurrencyKES),
		Metadata: map[string]string{
			"draftId": draftID,
			"userId":  identity.UserID,
		},
		IdempotencyKey: "checkout:" + draftID,
	})
	if err != nil {
		logger.WithError(err).Error("failed to create payment intent")
		if redeem {
			s.releaseHold(ctx, logger, draftID)
		}
		return Intent{}, domain.Upstream(err, "Payment provider unavailable")
	}

	draft := domain.OrderDraft{
		ID:              draftID,
		UserID:          identity.UserID,
		SessionID:       identity.SessionID,
		Items:           domain.CloneItems(cart.Items),
		Currency:        domain.CurrencyKES,
		Totals:          totals,
		ShippingMethod:  shippingMethod,
		Address:         req.Address,
		Status:          domain.DraftStatusPendingPayment,
		CreatedAt:       s.now().UnixMilli(),
		PaymentProvider: domain.PaymentProviderStripe,
	}
	if err := s.drafts.SaveDraft(ctx, draft); err != nil {
		// Резерв баллов вернёт фоновый обработчик: черновика нет и заказа не будет.
		return Intent{}, err
	}

	logger.WithFields(log.Fields{
		"payment_intent_id": paymentIntent.ID,
		"amount":            totals.Total,
	}).Info("checkout draft created")

	return Intent{
		DraftID:        draft.ID,
		ClientSecret:   paymentIntent.ClientSecret,
		Amount:         draft.Total,
		Currency:       draft.Currency,
		PointsDiscount: totals.PointsDiscount,
		PointsRedeemed: totals.PointsRedeemed,
	}, nil
}

// holdPoints списывает баллы и фиксирует резерв под черновик. Если резерв
// записать не удалось, баллы сразу возвращаются на счёт.
func (s *Service) holdPoints(ctx context.Context, userID, draftID string, points int64) error {
	description := fmt.Sprintf("Redeemed %d points for order %s", points, draftID)
	if _, err := s.points.DebitPoints(ctx, userID, points, description, map[string]any{"orderId": draftID}); err != nil {
		return err
	}

	if _, err := s.points.PlaceHold(ctx, draftID, userID, points); err != nil {
		refund := fmt.Sprintf("Refunded %d points from expired checkout %s", points, draftID)
		if _, creditErr := s.points.CreditPoints(ctx, userID, points, domain.TransactionAdjustment, refund, map[string]any{"orderId": draftID}); creditErr != nil {
			s.logger.WithError(creditErr).WithFields(log.Fields{
				"draft_id": draftID,
				"user_id":  userID,
				"points":   points,
			}).Error("failed to return points after hold failure")
		}
		return err
	}
	return nil
}

func (s *Service) releaseHold(ctx context.Context, logger *log.Entry, draftID string) {
	if _, err := s.points.ReleaseHold(ctx, draftID); err != nil {
		logger.WithError(err).Error("failed to release points hold")
	}
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case domain.KindOf(err) == domain.KindUpstream || domain.KindOf(err) == domain.KindInternal:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}
