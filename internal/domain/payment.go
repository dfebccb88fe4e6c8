package domain

// Типы событий платёжного провайдера, которые обрабатывает витрина.
const (
	GatewayEventPaymentSucceeded = "payment_intent.succeeded"
	GatewayEventPaymentFailed    = "payment_intent.payment_failed"
)

// PaymentIntentParams описывает параметры создания платёжного намерения.
type PaymentIntentParams struct {
	// Amount — сумма в KES, целое число.
	Amount   int64
	Currency string
	Metadata map[string]string
	// IdempotencyKey защищает от двойного списания при повторе запроса.
	IdempotencyKey string
}

// PaymentIntent представляет платёжное намерение в терминах провайдера.
type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Status       string            `json:"status,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// GatewayEvent представляет проверенное событие вебхука провайдера: {id, type, data.object}.
type GatewayEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data GatewayEventData `json:"data"`
}

// GatewayEventData содержит объект события.
type GatewayEventData struct {
	Object PaymentIntent `json:"object"`
}
