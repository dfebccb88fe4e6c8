package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// MockGateway — конфигурируемая заглушка PaymentGateway для тестов и локального запуска.
// Подписи проверяются тем же алгоритмом, что и в StripeClient.
type MockGateway struct {
	mu sync.Mutex

	WebhookSecret string
	CreateErr     error

	CreateCalls int
	VerifyCalls int
	// LastParams — параметры последнего вызова CreatePaymentIntent.
	LastParams domain.PaymentIntentParams

	intents map[string]domain.PaymentIntent
	now     func() time.Time
}

// NewMockGateway возвращает mock с успешным сценарием по умолчанию.
func NewMockGateway(webhookSecret string) *MockGateway {
	return &MockGateway{
		WebhookSecret: webhookSecret,
		intents:       make(map[string]domain.PaymentIntent),
		now:           time.Now,
	}
}

// CreatePaymentIntent возвращает детерминированное намерение; повтор с тем же
// ключом идемпотентности отдаёт ранее созданное.
func (m *MockGateway) CreatePaymentIntent(_ context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls++
	m.LastParams = params
	if m.CreateErr != nil {
		return domain.PaymentIntent{}, m.CreateErr
	}

	if params.IdempotencyKey != "" {
		if intent, ok := m.intents[params.IdempotencyKey]; ok {
			return intent, nil
		}
	}

	id := fmt.Sprintf("pi_mock_%d", m.CreateCalls)
	intent := domain.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       "requires_payment_method",
		Metadata:     params.Metadata,
	}
	if params.IdempotencyKey != "" {
		m.intents[params.IdempotencyKey] = intent
	}
	return intent, nil
}

// VerifySignature проверяет подпись секретом WebhookSecret.
func (m *MockGateway) VerifySignature(payload []byte, signatureHeader string) (domain.GatewayEvent, error) {
	m.mu.Lock()
	m.VerifyCalls++
	now := m.now()
	m.mu.Unlock()

	return verifySignature(payload, signatureHeader, m.WebhookSecret, now, DefaultSignatureTolerance)
}

// Sign формирует валидный заголовок подписи для payload на текущий момент.
func (m *MockGateway) Sign(payload []byte) string {
	m.mu.Lock()
	now := m.now()
	m.mu.Unlock()
	return SignatureHeader(now.Unix(), payload, m.WebhookSecret)
}

var _ domain.PaymentGateway = (*MockGateway)(nil)
