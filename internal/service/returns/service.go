package returns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
	"github.com/vladislavdragonenkov/glowup/internal/storage/kv"
)

func returnKey(id string) string {
	return "return:" + id
}

func orderReturnKey(orderID string) string {
	return "return:order:" + orderID
}

// OrderStore даёт доступ к заказам, статус которых отражает ход возврата.
type OrderStore interface {
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	SaveOrder(ctx context.Context, order domain.Order) error
}

// Service ведёт запросы на возврат: создание, решение администратора и выплату.
type Service struct {
	store   domain.KVStore
	orders  OrderStore
	logger  *log.Entry
	now     func() time.Time
	newID   func() string
	metrics *metrics.StorefrontMetrics
	events  *kafka.Emitter
}

// NewService создаёт сервис возвратов.
func NewService(store domain.KVStore, orders OrderStore, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "returns")
	}
	return &Service{
		store:  store,
		orders: orders,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock подменяет источник времени.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator подменяет генератор идентификаторов возвратов.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// WithMetrics подключает метрики возвратов.
func (s *Service) WithMetrics(m *metrics.StorefrontMetrics) *Service {
	s.metrics = m
	return s
}

// WithEvents подключает публикацию событий возвратов.
func (s *Service) WithEvents(events *kafka.Emitter) *Service {
	s.events = events
	return s
}

// CreateReturn оформляет возврат по заказу владельца. На заказ допускается один возврат.
func (s *Service) CreateReturn(ctx context.Context, identity domain.Identity, input domain.CreateReturnInput) (domain.ReturnRequest, error) {
	identity = identity.Effective()
	if err := identity.Validate(); err != nil {
		return domain.ReturnRequest{}, err
	}
	if err := input.Validate(); err != nil {
		return domain.ReturnRequest{}, err
	}

	order, err := s.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	if identity.Authenticated() && order.UserID != identity.UserID {
		return domain.ReturnRequest{}, domain.Forbidden("Order does not belong to user")
	}
	if !identity.Authenticated() && order.SessionID != identity.SessionID {
		return domain.ReturnRequest{}, domain.Forbidden("Order does not belong to session")
	}
	if !order.Status.Returnable() {
		return domain.ReturnRequest{}, domain.Conflict("Order not eligible for return")
	}

	items := make([]domain.ReturnItem, 0, len(input.Items))
	requested := make(map[string]int64, len(input.Items))
	var refund int64
	for _, item := range input.Items {
		orderItem, ok := order.FindItem(item.OrderItemID)
		if !ok {
			return domain.ReturnRequest{}, domain.Validation("Order item %s not found", item.OrderItemID)
		}
		requested[item.OrderItemID] += item.Quantity
		if requested[item.OrderItemID] > orderItem.Quantity {
			return domain.ReturnRequest{}, domain.Validation("Return quantity exceeds order quantity for %s", item.OrderItemID)
		}
		refund += orderItem.Price * item.Quantity
		items = append(items, item)
	}

	now := s.now()
	request := domain.ReturnRequest{
		ID:                s.newID(),
		OrderID:           order.ID,
		UserID:            identity.UserID,
		SessionID:         identity.SessionID,
		Items:             items,
		TotalRefundAmount: refund,
		Status:            domain.ReturnStatusPending,
		CustomerNote:      input.CustomerNote,
		CreatedAt:         now.UnixMilli(),
	}
	request.AppendEvent(domain.EventCreated, now, "", "")

	if err := s.claimOrder(ctx, order.ID, request.ID); err != nil {
		return domain.ReturnRequest{}, err
	}
	if err := s.save(ctx, request); err != nil {
		s.releaseOrder(ctx, order.ID)
		return domain.ReturnRequest{}, err
	}

	order.Status = domain.OrderStatusReturnRequested
	order.AppendEvent(domain.EventReturnRequested, now, map[string]any{"returnId": request.ID})
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return domain.ReturnRequest{}, err
	}

	s.record(request, kafka.EventTypeReturnRequested, map[string]any{
		"orderId": request.OrderID,
		"amount":  request.TotalRefundAmount,
	})
	return request, nil
}

// GetReturn возвращает запрос на возврат.
func (s *Service) GetReturn(ctx context.Context, id string) (domain.ReturnRequest, error) {
	var request domain.ReturnRequest
	found, err := kv.GetJSON(ctx, s.store, returnKey(id), &request)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	if !found {
		return domain.ReturnRequest{}, domain.ErrReturnNotFound
	}
	return request, nil
}

// GetReturnByOrderID ищет возврат по заказу через индекс return:order.
func (s *Service) GetReturnByOrderID(ctx context.Context, orderID string) (domain.ReturnRequest, error) {
	id, err := s.store.Get(ctx, orderReturnKey(orderID))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return domain.ReturnRequest{}, domain.ErrReturnNotFound
	}
	if err != nil {
		return domain.ReturnRequest{}, fmt.Errorf("get return index for order %s: %w", orderID, err)
	}
	return s.GetReturn(ctx, id)
}

// ApproveReturn одобряет ожидающий возврат.
func (s *Service) ApproveReturn(ctx context.Context, id, adminID string, input domain.ReturnDecisionInput) (domain.ReturnRequest, error) {
	return s.decide(ctx, id, adminID, input.AdminNote, true)
}

// DenyReturn отклоняет ожидающий возврат.
func (s *Service) DenyReturn(ctx context.Context, id, adminID string, input domain.ReturnDecisionInput) (domain.ReturnRequest, error) {
	return s.decide(ctx, id, adminID, input.AdminNote, false)
}

// Decide применяет решение администратора.
func (s *Service) Decide(ctx context.Context, id, adminID string, input domain.ReturnDecisionInput) (domain.ReturnRequest, error) {
	switch input.Decision {
	case domain.DecisionApprove:
		return s.ApproveReturn(ctx, id, adminID, input)
	case domain.DecisionDeny:
		return s.DenyReturn(ctx, id, adminID, input)
	default:
		return domain.ReturnRequest{}, domain.Validation("Invalid decision")
	}
}

// MarkReturnRefunded фиксирует выплату по одобренному возврату.
func (s *Service) MarkReturnRefunded(ctx context.Context, id string) (domain.ReturnRequest, error) {
	request, err := s.GetReturn(ctx, id)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	if request.Status != domain.ReturnStatusApproved {
		return domain.ReturnRequest{}, domain.Conflict("Return not approved")
	}

	now := s.now()
	amount := request.TotalRefundAmount
	// Заказ обновляется первым: при сбое сохранения возврат остаётся approved,
	// и повторная доставка вебхука завершит переход.
	err = s.mirror(ctx, request.OrderID, func(order *domain.Order) {
		if order.Status == domain.OrderStatusRefunded {
			return
		}
		order.Status = domain.OrderStatusRefunded
		order.RefundedAmount = &amount
		order.AppendEvent(domain.EventRefunded, now, map[string]any{
			"returnId": request.ID,
			"amount":   amount,
		})
	})
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	refundedAt := now.UnixMilli()
	request.Status = domain.ReturnStatusRefunded
	request.RefundedAt = &refundedAt
	request.AppendEvent(domain.EventRefunded, now, "", "")
	if err := s.save(ctx, request); err != nil {
		return domain.ReturnRequest{}, err
	}

	s.record(request, kafka.EventTypeReturnRefunded, map[string]any{
		"orderId": request.OrderID,
		"amount":  amount,
	})
	return request, nil
}

func (s *Service) decide(ctx context.Context, id, adminID, note string, approve bool) (domain.ReturnRequest, error) {
	request, err := s.GetReturn(ctx, id)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	if request.Status != domain.ReturnStatusPending {
		return domain.ReturnRequest{}, domain.Conflict("Return not pending")
	}

	var (
		returnEvent string
		orderEvent  string
		orderStatus domain.OrderStatus
		eventType   kafka.EventType
	)
	if approve {
		request.Status = domain.ReturnStatusApproved
		request.ApprovedBy = adminID
		returnEvent, orderEvent = domain.EventApproved, domain.EventReturnApproved
		orderStatus, eventType = domain.OrderStatusReturnApproved, kafka.EventTypeReturnApproved
	} else {
		request.Status = domain.ReturnStatusDenied
		request.DeniedBy = adminID
		returnEvent, orderEvent = domain.EventDenied, domain.EventReturnDenied
		orderStatus, eventType = domain.OrderStatusReturnDenied, kafka.EventTypeReturnDenied
	}

	now := s.now()
	request.AdminNote = note
	request.AppendEvent(returnEvent, now, adminID, note)
	if err := s.save(ctx, request); err != nil {
		return domain.ReturnRequest{}, err
	}

	err = s.mirror(ctx, request.OrderID, func(order *domain.Order) {
		order.Status = orderStatus
		order.AppendEvent(orderEvent, now, map[string]any{"returnId": request.ID})
	})
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	s.record(request, eventType, map[string]any{
		"orderId": request.OrderID,
		"by":      adminID,
	})
	return request, nil
}

// claimOrder атомарно закрепляет заказ за возвратом.
func (s *Service) claimOrder(ctx context.Context, orderID, returnID string) error {
	claimed, err := s.store.SetNX(ctx, orderReturnKey(orderID), returnID, domain.ReturnTTL)
	if err != nil {
		return fmt.Errorf("claim return for order %s: %w", orderID, err)
	}
	if !claimed {
		return domain.Conflict("Return already exists for this order")
	}
	return nil
}

func (s *Service) releaseOrder(ctx context.Context, orderID string) {
	if err := s.store.Del(ctx, orderReturnKey(orderID)); err != nil {
		s.logger.WithError(err).WithField("order_id", orderID).Error("failed to release return claim")
	}
}

func (s *Service) save(ctx context.Context, request domain.ReturnRequest) error {
	if err := kv.SetJSON(ctx, s.store, returnKey(request.ID), request, domain.ReturnTTL); err != nil {
		return err
	}
	if err := s.store.Set(ctx, orderReturnKey(request.OrderID), request.ID, domain.ReturnTTL); err != nil {
		return fmt.Errorf("index return %s: %w", request.ID, err)
	}
	return nil
}

// mirror переносит состояние возврата на заказ. Пропавший заказ не мешает переходу.
func (s *Service) mirror(ctx context.Context, orderID string, apply func(order *domain.Order)) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		s.logger.WithField("order_id", orderID).Warn("order missing while updating return state")
		return nil
	}
	if err != nil {
		return err
	}
	apply(&order)
	return s.orders.SaveOrder(ctx, order)
}

func (s *Service) record(request domain.ReturnRequest, eventType kafka.EventType, data map[string]any) {
	s.metrics.RecordReturn(string(request.Status))
	s.events.Emit(eventType, request.ID, request.UserID, data)
	s.logger.WithFields(log.Fields{
		"return_id": request.ID,
		"order_id":  request.OrderID,
		"status":    request.Status,
	}).Info("return state changed")
}
