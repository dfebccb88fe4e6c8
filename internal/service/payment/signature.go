package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// DefaultSignatureTolerance ограничивает расхождение метки времени подписи.
const DefaultSignatureTolerance = 5 * time.Minute

const signatureScheme = "v1"

// ComputeSignature считает HMAC-SHA256 от "{timestamp}.{payload}" в hex.
func ComputeSignature(timestamp int64, payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeader формирует заголовок Stripe-Signature для payload.
func SignatureHeader(timestamp int64, payload []byte, secret string) string {
	return fmt.Sprintf("t=%d,%s=%s", timestamp, signatureScheme, ComputeSignature(timestamp, payload, secret))
}

type parsedHeader struct {
	timestamp  int64
	signatures []string
}

func parseSignatureHeader(header string) (parsedHeader, error) {
	var parsed parsedHeader
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return parsedHeader{}, fmt.Errorf("invalid signature timestamp: %w", err)
			}
			parsed.timestamp = ts
		case signatureScheme:
			parsed.signatures = append(parsed.signatures, value)
		}
	}

	if parsed.timestamp == 0 {
		return parsedHeader{}, fmt.Errorf("signature timestamp is missing")
	}
	if len(parsed.signatures) == 0 {
		return parsedHeader{}, fmt.Errorf("no %s signatures in header", signatureScheme)
	}
	return parsed, nil
}

// verifySignature проверяет заголовок подписи и разбирает событие.
// Подходит любая из подписей v1; метка времени не старше tolerance.
func verifySignature(payload []byte, header, secret string, now time.Time, tolerance time.Duration) (domain.GatewayEvent, error) {
	if header == "" {
		return domain.GatewayEvent{}, domain.ErrInvalidSignature
	}
	if secret == "" {
		return domain.GatewayEvent{}, domain.Internal(fmt.Errorf("webhook secret is not configured"), "Webhook secret not configured")
	}

	parsed, err := parseSignatureHeader(header)
	if err != nil {
		return domain.GatewayEvent{}, &domain.Error{Kind: domain.KindValidation, Message: domain.ErrInvalidSignature.Message, Err: err}
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(parsed.timestamp, 0))
		if age > tolerance || age < -tolerance {
			return domain.GatewayEvent{}, &domain.Error{
				Kind:    domain.KindValidation,
				Message: domain.ErrInvalidSignature.Message,
				Err:     fmt.Errorf("signature timestamp outside tolerance: %s", age),
			}
		}
	}

	expected := []byte(ComputeSignature(parsed.timestamp, payload, secret))
	matched := false
	for _, candidate := range parsed.signatures {
		if hmac.Equal(expected, []byte(candidate)) {
			matched = true
			break
		}
	}
	if !matched {
		return domain.GatewayEvent{}, domain.ErrInvalidSignature
	}

	var event domain.GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.GatewayEvent{}, domain.Validation("Invalid webhook payload")
	}
	if event.ID == "" || event.Type == "" {
		return domain.GatewayEvent{}, domain.Validation("Invalid webhook payload")
	}
	return event, nil
}
