package inventory

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// LoggingService фиксирует списание остатков в логе вместо складского сервиса.
// Используется, пока витрина не подключена к системе учёта остатков.
type LoggingService struct {
	logger *log.Entry
}

// NewLoggingService создаёт заглушку со структурированным логированием.
func NewLoggingService(logger *log.Entry) *LoggingService {
	if logger == nil {
		logger = log.WithField("component", "inventory")
	}
	return &LoggingService{logger: logger}
}

// Decrement записывает в лог позиции оплаченного заказа.
func (s *LoggingService) Decrement(_ context.Context, orderID string, items []domain.CartItem) error {
	var units int64
	for _, item := range items {
		units += item.Quantity
	}
	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"lines":    len(items),
		"units":    units,
	}).Info("inventory decrement recorded")
	return nil
}

// MockService — конфигурируемая заглушка InventoryService для тестов.
type MockService struct {
	mu sync.Mutex

	DecrementErr error

	DecrementCalls int
	// Orders — идентификаторы заказов в порядке вызовов.
	Orders []string
}

// NewMockService возвращает mock с успешным сценарием по умолчанию.
func NewMockService() *MockService {
	return &MockService{}
}

// Decrement возвращает заранее настроенную ошибку и считает вызовы.
func (m *MockService) Decrement(_ context.Context, orderID string, _ []domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecrementCalls++
	m.Orders = append(m.Orders, orderID)
	return m.DecrementErr
}

var (
	_ domain.InventoryService = (*LoggingService)(nil)
	_ domain.InventoryService = (*MockService)(nil)
)
