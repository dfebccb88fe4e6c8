package notification

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// LoggingNotifier пишет подтверждения заказов в лог вместо отправки писем.
type LoggingNotifier struct {
	logger *log.Entry
}

// NewLoggingNotifier создаёт уведомитель.
func NewLoggingNotifier(logger *log.Entry) *LoggingNotifier {
	if logger == nil {
		logger = log.WithField("component", "notification")
	}
	return &LoggingNotifier{logger: logger}
}

// SendOrderConfirmation фиксирует подтверждение. Без адреса письмо не отправляется.
func (n *LoggingNotifier) SendOrderConfirmation(_ context.Context, email, orderID string) error {
	if email == "" {
		n.logger.WithField("order_id", orderID).Debug("order confirmation skipped: no email")
		return nil
	}
	n.logger.WithFields(log.Fields{
		"order_id": orderID,
		"email":    email,
	}).Info("order confirmation sent")
	return nil
}

// Sent фиксирует отправленное подтверждение.
type Sent struct {
	Email   string
	OrderID string
}

// Recorder запоминает подтверждения; используется в тестах.
type Recorder struct {
	mu   sync.Mutex
	sent []Sent
	Err  error
}

// SendOrderConfirmation сохраняет вызов и возвращает настроенную ошибку.
func (r *Recorder) SendOrderConfirmation(_ context.Context, email, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Sent{Email: email, OrderID: orderID})
	return r.Err
}

// Sent возвращает копию записанных вызовов.
func (r *Recorder) Sent() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sent, len(r.sent))
	copy(out, r.sent)
	return out
}

var (
	_ domain.Notifier = (*LoggingNotifier)(nil)
	_ domain.Notifier = (*Recorder)(nil)
)
