package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
	"github.com/vladislavdragonenkov/glowup/internal/storage/kv"
)

// maxConcurrentLoads ограничивает параллельные чтения при загрузке списков.
const maxConcurrentLoads = 16

func draftKey(id string) string { return "order:draft:" + id }

func orderKey(id string) string { return "order:" + id }

func userIndexKey(userID string) string { return "orders:user:" + userID }

func statusIndexKey(status domain.OrderStatus) string { return "orders:status:" + string(status) }

// Store хранит черновики, заказы, их индексы и журнал обработанных событий.
type Store struct {
	store   domain.KVStore
	logger  *log.Entry
	now     func() time.Time
	metrics *metrics.StorefrontMetrics
	events  *kafka.Emitter
}

// NewStore создаёт хранилище заказов поверх KV.
func NewStore(store domain.KVStore, logger *log.Entry) *Store {
	if logger == nil {
		logger = log.WithField("component", "orders")
	}
	return &Store{store: store, logger: logger, now: time.Now}
}

// WithClock подменяет источник времени.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// WithMetrics подключает метрики смены статусов.
func (s *Store) WithMetrics(m *metrics.StorefrontMetrics) *Store {
	s.metrics = m
	return s
}

// WithEvents подключает публикацию событий заказов.
func (s *Store) WithEvents(events *kafka.Emitter) *Store {
	s.events = events
	return s
}

// SaveDraft записывает черновик на DraftTTL.
func (s *Store) SaveDraft(ctx context.Context, draft domain.OrderDraft) error {
	return kv.SetJSON(ctx, s.store, draftKey(draft.ID), draft, domain.DraftTTL)
}

// GetDraft возвращает черновик или domain.ErrDraftNotFound.
func (s *Store) GetDraft(ctx context.Context, id string) (domain.OrderDraft, error) {
	var draft domain.OrderDraft
	found, err := kv.GetJSON(ctx, s.store, draftKey(id), &draft)
	if err != nil {
		return domain.OrderDraft{}, err
	}
	if !found {
		return domain.OrderDraft{}, domain.ErrDraftNotFound
	}
	return draft, nil
}

// DraftExists сообщает, ожидает ли черновик оплаты.
func (s *Store) DraftExists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetDraft(ctx, id)
	return exists(err, domain.ErrDraftNotFound)
}

// SaveOrder записывает заказ без TTL и обновляет индексы: пользовательский
// пополняется идемпотентно, а статусный переносит id из индекса прежнего статуса.
func (s *Store) SaveOrder(ctx context.Context, order domain.Order) error {
	previous, err := s.GetOrder(ctx, order.ID)
	hadPrevious := err == nil
	if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
		return err
	}

	if err := kv.SetJSON(ctx, s.store, orderKey(order.ID), order, 0); err != nil {
		return err
	}

	if order.UserID != "" {
		if err := kv.PrependID(ctx, s.store, userIndexKey(order.UserID), order.ID, 0, 0); err != nil {
			return fmt.Errorf("index order %s for user: %w", order.ID, err)
		}
	}

	if hadPrevious && previous.Status != order.Status {
		if err := kv.RemoveID(ctx, s.store, statusIndexKey(previous.Status), order.ID, 0); err != nil {
			return fmt.Errorf("unindex order %s from %s: %w", order.ID, previous.Status, err)
		}
	}
	if err := kv.PrependID(ctx, s.store, statusIndexKey(order.Status), order.ID, 0, 0); err != nil {
		return fmt.Errorf("index order %s by status: %w", order.ID, err)
	}
	return nil
}

// GetOrder возвращает заказ или domain.ErrOrderNotFound.
func (s *Store) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var order domain.Order
	found, err := kv.GetJSON(ctx, s.store, orderKey(id), &order)
	if err != nil {
		return domain.Order{}, err
	}
	if !found {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// OrderExists сообщает, создан ли заказ с этим id.
func (s *Store) OrderExists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetOrder(ctx, id)
	return exists(err, domain.ErrOrderNotFound)
}

// GetUserOrders возвращает заказы пользователя, новые первыми.
func (s *Store) GetUserOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	return s.loadIndex(ctx, userIndexKey(userID))
}

// GetOrdersByStatus возвращает заказы в статусе, новые первыми.
func (s *Store) GetOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if !status.Valid() {
		return nil, domain.Validation("Invalid order status: %s", status)
	}
	return s.loadIndex(ctx, statusIndexKey(status))
}

// MarkEventProcessed атомарно занимает маркер события.
// true означает, что вызывающий обрабатывает событие первым.
func (s *Store) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	first, err := s.store.SetNX(ctx, domain.ProcessedEventKey(eventID), domain.ProcessedValue, 0)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return first, nil
}

// ReleaseEvent снимает маркер события, чтобы провайдер мог доставить его повторно.
// Вызывается, только если обработка не успела ничего зафиксировать.
func (s *Store) ReleaseEvent(ctx context.Context, eventID string) error {
	if err := s.store.Del(ctx, domain.ProcessedEventKey(eventID)); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}

// UpdateStatus меняет статус заказа от имени администратора by.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, trackingNumber, by string) (domain.Order, error) {
	if !status.Valid() {
		return domain.Order{}, domain.Validation("Invalid order status: %s", status)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = status
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	order.AppendEvent(domain.EventStatusUpdated, s.now(), map[string]any{
		"status": string(status),
		"by":     by,
	})

	if err := s.SaveOrder(ctx, order); err != nil {
		return domain.Order{}, err
	}

	s.metrics.RecordOrderStatus(string(status))
	s.events.Emit(kafka.EventTypeOrderStatusUpdated, order.ID, order.UserID, map[string]any{
		"status":         string(status),
		"trackingNumber": order.TrackingNumber,
		"by":             by,
	})
	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"status":   status,
		"by":       by,
	}).Info("order status updated")
	return order, nil
}

func (s *Store) loadIndex(ctx context.Context, indexKey string) ([]domain.Order, error) {
	ids, err := kv.ReadIDs(ctx, s.store, indexKey)
	if err != nil {
		return nil, err
	}

	loaded := make([]*domain.Order, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			order, err := s.GetOrder(gctx, id)
			if errors.Is(err, domain.ErrOrderNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			loaded[i] = &order
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]domain.Order, 0, len(loaded))
	for _, order := range loaded {
		if order != nil {
			result = append(result, *order)
		}
	}
	return result, nil
}

func exists(err, notFound error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, notFound) {
		return false, nil
	}
	return false, err
}
