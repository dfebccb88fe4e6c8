package domain

import "context"

// PaymentGateway описывает взаимодействие с внешним платёжным провайдером.
type PaymentGateway interface {
	// CreatePaymentIntent создаёт платёжное намерение; повтор с тем же IdempotencyKey
	// не приводит к повторному списанию.
	CreatePaymentIntent(ctx context.Context, params PaymentIntentParams) (PaymentIntent, error)
	// VerifySignature проверяет подпись вебхука и разбирает событие.
	// При неверной подписи возвращает ошибку и не отдаёт событие.
	VerifySignature(payload []byte, signatureHeader string) (GatewayEvent, error)
}

// InventoryService списывает складские остатки по оплаченному заказу.
type InventoryService interface {
	Decrement(ctx context.Context, orderID string, items []CartItem) error
}

// Notifier отправляет клиенту уведомления о заказе.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email, orderID string) error
}

// EventPublisher публикует доменные события во внешнюю шину.
type EventPublisher interface {
	PublishEvent(topic, key string, event any) error
}
