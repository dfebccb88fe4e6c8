package payment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

const testSecret = "whsec_test"

func testPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","amount":3830,"currency":"kes","metadata":{"draftId":"d-1","userId":"u-1"}}}}`, eventID))
}

func TestVerifySignatureAcceptsValidHeader(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := testPayload("evt_1")
	header := SignatureHeader(now.Unix(), payload, testSecret)

	event, err := verifySignature(payload, header, testSecret, now, DefaultSignatureTolerance)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, domain.GatewayEventPaymentSucceeded, event.Type)
	assert.Equal(t, "d-1", event.Data.Object.Metadata["draftId"])
	assert.Equal(t, int64(3830), event.Data.Object.Amount)
}

func TestVerifySignatureAcceptsAnyMatchingV1(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := testPayload("evt_2")
	good := ComputeSignature(now.Unix(), payload, testSecret)
	header := fmt.Sprintf("t=%d,v1=deadbeef,v1=%s,v0=ignored", now.Unix(), good)

	_, err := verifySignature(payload, header, testSecret, now, DefaultSignatureTolerance)
	require.NoError(t, err)
}

func TestVerifySignatureRejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := testPayload("evt_3")

	cases := []struct {
		name   string
		header string
		body   []byte
	}{
		{name: "empty header", header: "", body: payload},
		{name: "wrong secret", header: SignatureHeader(now.Unix(), payload, "other"), body: payload},
		{name: "tampered payload", header: SignatureHeader(now.Unix(), payload, testSecret), body: testPayload("evt_other")},
		{name: "stale timestamp", header: SignatureHeader(now.Add(-6*time.Minute).Unix(), payload, testSecret), body: payload},
		{name: "future timestamp", header: SignatureHeader(now.Add(6*time.Minute).Unix(), payload, testSecret), body: payload},
		{name: "no timestamp", header: "v1=abc", body: payload},
		{name: "no v1", header: fmt.Sprintf("t=%d,v0=abc", now.Unix()), body: payload},
		{name: "bad timestamp", header: "t=abc,v1=abc", body: payload},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := verifySignature(tc.body, tc.header, testSecret, now, DefaultSignatureTolerance)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidSignature), "unexpected error: %v", err)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err))
		})
	}
}

func TestVerifySignatureWithinTolerance(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := testPayload("evt_4")
	header := SignatureHeader(now.Add(-4*time.Minute).Unix(), payload, testSecret)

	_, err := verifySignature(payload, header, testSecret, now, DefaultSignatureTolerance)
	require.NoError(t, err)
}

func TestVerifySignatureRejectsMalformedEvent(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := []byte(`{"type":"payment_intent.succeeded"}`)
	header := SignatureHeader(now.Unix(), payload, testSecret)

	_, err := verifySignature(payload, header, testSecret, now, DefaultSignatureTolerance)
	require.Error(t, err)
	assert.Equal(t, "Invalid webhook payload", domain.MessageOf(err))
}

func TestVerifySignatureRequiresSecret(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	payload := testPayload("evt_5")

	_, err := verifySignature(payload, SignatureHeader(now.Unix(), payload, ""), "", now, DefaultSignatureTolerance)
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}
