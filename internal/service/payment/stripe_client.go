package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/metrics"
)

// DefaultAPIBase задаёт адрес API платёжного провайдера.
const DefaultAPIBase = "https://api.stripe.com"

const (
	operationCreateIntent = "create_payment_intent"
	maxErrorBodyBytes     = 4 << 10
)

// RetryConfig конфигурация повторов запросов к провайдеру.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig возвращает конфигурацию по умолчанию.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// StripeConfig описывает параметры клиента платёжного провайдера.
type StripeConfig struct {
	APIBase       string
	SecretKey     string
	WebhookSecret string
	// SignatureTolerance <= 0 заменяется на DefaultSignatureTolerance.
	SignatureTolerance time.Duration
	HTTPClient         *http.Client
	Retry              RetryConfig
	Metrics            *metrics.StorefrontMetrics
}

// StripeClient реализует domain.PaymentGateway поверх HTTP API провайдера.
// Запросы идут через circuit breaker, повторы используют тот же ключ идемпотентности.
type StripeClient struct {
	cfg     StripeConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[domain.PaymentIntent]
	logger  *log.Entry
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// NewStripeClient создаёт клиента провайдера.
func NewStripeClient(cfg StripeConfig, logger *log.Entry) *StripeClient {
	if logger == nil {
		logger = log.WithField("component", "stripe-client")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.SignatureTolerance <= 0 {
		cfg.SignatureTolerance = DefaultSignatureTolerance
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}

	client := &StripeClient{
		cfg:    cfg,
		http:   httpClient,
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
	client.breaker = gobreaker.NewCircuitBreaker[domain.PaymentIntent](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Отказ карты или ошибка валидации не говорят о недоступности провайдера.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Payment gateway circuit breaker state changed")
		},
	})
	return client
}

// WithClock подменяет источник времени для проверки подписи.
func (c *StripeClient) WithClock(now func() time.Time) *StripeClient {
	c.now = now
	return c
}

// APIError представляет ответ провайдера с кодом ошибки.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("stripe api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("stripe api error: status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// CreatePaymentIntent создаёт платёжное намерение с автоматическими способами оплаты.
func (c *StripeClient) CreatePaymentIntent(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	if params.Amount < 0 {
		return domain.PaymentIntent{}, domain.Validation("Invalid payment amount")
	}
	if c.cfg.SecretKey == "" {
		return domain.PaymentIntent{}, fmt.Errorf("stripe secret key is not configured")
	}

	started := time.Now()
	intent, err := c.breaker.Execute(func() (domain.PaymentIntent, error) {
		return c.createWithRetry(ctx, params)
	})
	c.cfg.Metrics.RecordGatewayCall(operationCreateIntent, err, time.Since(started))
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.PaymentIntent{}, fmt.Errorf("payment gateway unavailable: %w", err)
		}
		return domain.PaymentIntent{}, err
	}
	return intent, nil
}

// VerifySignature проверяет подпись вебхука секретом из конфигурации.
func (c *StripeClient) VerifySignature(payload []byte, signatureHeader string) (domain.GatewayEvent, error) {
	return verifySignature(payload, signatureHeader, c.cfg.WebhookSecret, c.now(), c.cfg.SignatureTolerance)
}

func (c *StripeClient) createWithRetry(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	var lastErr error
	delay := c.cfg.Retry.InitialDelay

	for attempt := 1; attempt <= c.cfg.Retry.MaxAttempts; attempt++ {
		intent, err := c.create(ctx, params)
		if err == nil {
			if attempt > 1 {
				c.logger.WithFields(log.Fields{
					"idempotency_key": params.IdempotencyKey,
					"attempt":         attempt,
				}).Info("Payment intent created after retry")
			}
			return intent, nil
		}
		lastErr = err

		if !shouldRetry(err) || attempt == c.cfg.Retry.MaxAttempts {
			break
		}

		c.logger.WithFields(log.Fields{
			"idempotency_key": params.IdempotencyKey,
			"attempt":         attempt,
			"delay":           delay,
			"error":           err,
		}).Warn("Payment intent request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			return domain.PaymentIntent{}, err
		}
		delay = time.Duration(float64(delay) * c.cfg.Retry.BackoffFactor)
		if delay > c.cfg.Retry.MaxDelay {
			delay = c.cfg.Retry.MaxDelay
		}
	}

	return domain.PaymentIntent{}, lastErr
}

func (c *StripeClient) create(ctx context.Context, params domain.PaymentIntentParams) (domain.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.Amount, 10))
	form.Set("currency", strings.ToLower(params.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for key, value := range params.Metadata {
		form.Set("metadata["+key+"]", value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBase+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("build payment intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if params.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("send payment intent request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return domain.PaymentIntent{}, decodeAPIError(resp)
	}

	var intent domain.PaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return domain.PaymentIntent{}, fmt.Errorf("decode payment intent: %w", err)
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return domain.PaymentIntent{}, fmt.Errorf("payment intent response is missing id or client secret")
	}
	return intent, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return apiErr
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		envelope.Error.StatusCode = resp.StatusCode
		return envelope.Error
	}
	return apiErr
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.retryable()
	}
	var domainErr *domain.Error
	return !errors.As(err, &domainErr)
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var _ domain.PaymentGateway = (*StripeClient)(nil)
