package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/service/cart"
	"github.com/vladislavdragonenkov/glowup/internal/service/loyalty"
	"github.com/vladislavdragonenkov/glowup/internal/service/orders"
	"github.com/vladislavdragonenkov/glowup/internal/service/payment"
	"github.com/vladislavdragonenkov/glowup/internal/storage/memory"
)

var testNow = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	service *Service
	carts   *cart.Service
	ledger  *loyalty.Ledger
	orders  *orders.Store
	gateway *payment.MockGateway
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	clock := func() time.Time { return testNow }
	store := memory.NewKVStore().WithClock(clock)
	carts := cart.NewService(store, nil).WithClock(clock)
	ledger := loyalty.NewLedger(store, domain.DefaultAccrualRules(), nil).WithClock(clock)
	orderStore := orders.NewStore(store, nil).WithClock(clock)
	gateway := payment.NewMockGateway("whsec_test")

	service := NewService(carts, ledger, orderStore, gateway, 1, nil).
		WithClock(clock).
		WithIDGenerator(func() string { return "draft-1" })

	return fixture{service: service, carts: carts, ledger: ledger, orders: orderStore, gateway: gateway}
}

func addSerum(t *testing.T, f fixture, identity domain.Identity) {
	t.Helper()

	qty := int64(2)
	_, err := f.carts.AddItem(context.Background(), identity, domain.AddCartItemInput{
		ProductID: "p1",
		Title:     "Serum",
		Price:     1500,
		Quantity:  &qty,
	})
	require.NoError(t, err)
}

func TestCreateIntentForGuest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	guest := domain.Identity{SessionID: "s1"}
	addSerum(t, f, guest)

	intent, err := f.service.CreateIntent(ctx, Request{Identity: guest})
	require.NoError(t, err)
	assert.Equal(t, "draft-1", intent.DraftID)
	assert.Equal(t, int64(3830), intent.Amount)
	assert.Equal(t, domain.CurrencyKES, intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)
	assert.Nil(t, intent.PointsDiscount)
	assert.Nil(t, intent.PointsRedeemed)

	params := f.gateway.LastParams
	assert.Equal(t, int64(3830), params.Amount)
	assert.Equal(t, "kes", params.Currency)
	assert.Equal(t, "checkout:draft-1", params.IdempotencyKey)
	assert.Equal(t, map[string]string{"draftId": "draft-1", "userId": ""}, params.Metadata)

	draft, err := f.orders.GetDraft(ctx, "draft-1")
	require.NoError(t, err)
	assert.Equal(t, "s1", draft.SessionID)
	assert.Empty(t, draft.UserID)
	assert.Equal(t, domain.DraftStatusPendingPayment, draft.Status)
	assert.Equal(t, domain.ShippingStandard, draft.ShippingMethod)
	assert.Equal(t, domain.PaymentProviderStripe, draft.PaymentProvider)
	assert.Equal(t, testNow.UnixMilli(), draft.CreatedAt)
	assert.Len(t, draft.Items, 1)
}

func TestCreateIntentUserDropsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	addSerum(t, f, domain.Identity{UserID: "u1"})

	intent, err := f.service.CreateIntent(ctx, Request{
		Identity:       domain.Identity{UserID: "u1", SessionID: "s1"},
		ShippingMethod: "express",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4330), intent.Amount)

	draft, err := f.orders.GetDraft(ctx, intent.DraftID)
	require.NoError(t, err)
	assert.Equal(t, "u1", draft.UserID)
	assert.Empty(t, draft.SessionID)
	assert.Equal(t, "u1", f.gateway.LastParams.Metadata["userId"])
}

func TestCreateIntentRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreateIntent(ctx, Request{Identity: domain.Identity{SessionID: "empty"}})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, "Cart empty", domain.MessageOf(err))

	guest := domain.Identity{SessionID: "s1"}
	addSerum(t, f, guest)

	_, err = f.service.CreateIntent(ctx, Request{Identity: guest, ShippingMethod: "pigeon"})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = f.service.CreateIntent(ctx, Request{Identity: guest, PointsToRedeem: 100})
	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))
	assert.Equal(t, "Must be logged in to redeem points", domain.MessageOf(err))

	assert.Equal(t, 0, f.gateway.CreateCalls)
}

func TestCreateIntentRedeemsPointsUnderHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := domain.Identity{UserID: "u1"}
	addSerum(t, f, user)

	_, err := f.ledger.CreditPoints(ctx, "u1", 500, domain.TransactionBonus, "Welcome bonus", nil)
	require.NoError(t, err)

	intent, err := f.service.CreateIntent(ctx, Request{Identity: user, PointsToRedeem: 200})
	require.NoError(t, err)
	require.NotNil(t, intent.PointsDiscount)
	require.NotNil(t, intent.PointsRedeemed)
	assert.Equal(t, int64(200), *intent.PointsDiscount)
	assert.Equal(t, int64(200), *intent.PointsRedeemed)
	assert.Equal(t, int64(3630), intent.Amount)

	account, err := f.ledger.GetOrCreateAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(300), account.Balance)
	assert.Equal(t, int64(200), account.TotalRedeemed)

	hold, found, err := f.ledger.GetHold(ctx, intent.DraftID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(200), hold.Points)

	txs, err := f.ledger.GetTransactions(ctx, "u1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, txs)
	assert.Equal(t, "Redeemed 200 points for order draft-1", txs[0].Description)
	assert.Equal(t, int64(-200), txs[0].Points)
}

func TestCreateIntentRejectsInsufficientPoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := domain.Identity{UserID: "u1"}
	addSerum(t, f, user)

	_, err := f.service.CreateIntent(ctx, Request{Identity: user, PointsToRedeem: 150})
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, "Insufficient balance. Available: 0 points", domain.MessageOf(err))
}

func TestCreateIntentGatewayFailureReleasesHold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := domain.Identity{UserID: "u1"}
	addSerum(t, f, user)

	_, err := f.ledger.CreditPoints(ctx, "u1", 500, domain.TransactionBonus, "Welcome bonus", nil)
	require.NoError(t, err)
	f.gateway.CreateErr = errors.New("stripe down")

	_, err = f.service.CreateIntent(ctx, Request{Identity: user, PointsToRedeem: 200})
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))

	account, err := f.ledger.GetOrCreateAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(500), account.Balance)

	_, found, err := f.ledger.GetHold(ctx, "draft-1")
	require.NoError(t, err)
	assert.False(t, found)

	exists, err := f.orders.DraftExists(ctx, "draft-1")
	require.NoError(t, err)
	assert.False(t, exists)
}
