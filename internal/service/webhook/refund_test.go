package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
	"github.com/vladislavdragonenkov/glowup/internal/service/orders"
	"github.com/vladislavdragonenkov/glowup/internal/service/returns"
	"github.com/vladislavdragonenkov/glowup/internal/storage/memory"
)

func newRefundFixture(t *testing.T) (*RefundHandler, *returns.Service, *orders.Store) {
	t.Helper()

	clock := func() time.Time { return testNow }
	store := memory.NewKVStore().WithClock(clock)
	orderStore := orders.NewStore(store, nil).WithClock(clock)
	returnService := returns.NewService(store, orderStore, nil).
		WithClock(clock).
		WithIDGenerator(func() string { return "ret-1" })

	return NewRefundHandler("refund-secret", orderStore, returnService, nil, nil), returnService, orderStore
}

func approvedReturn(t *testing.T, service *returns.Service, orderStore *orders.Store) domain.ReturnRequest {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, orderStore.SaveOrder(ctx, domain.Order{
		ID:     "o1",
		UserID: "u1",
		Items:  []domain.CartItem{{ID: "item1", ProductID: "p1", Title: "Serum", Price: 1500, Quantity: 2}},
		Status: domain.OrderStatusDelivered,
	}))
	request, err := service.CreateReturn(ctx, domain.Identity{UserID: "u1"}, domain.CreateReturnInput{
		OrderID: "o1",
		Items:   []domain.ReturnItem{{OrderItemID: "item1", Quantity: 1, Reason: domain.ReasonWrongItem}},
	})
	require.NoError(t, err)
	approved, err := service.ApproveReturn(ctx, request.ID, "admin1", domain.ReturnDecisionInput{Decision: domain.DecisionApprove})
	require.NoError(t, err)
	return approved
}

func TestRefundWebhook(t *testing.T) {
	handler, service, orderStore := newRefundFixture(t)
	ctx := context.Background()
	request := approvedReturn(t, service, orderStore)

	result, err := handler.Handle(ctx, RefundEvent{EventID: "re_1", ReturnID: request.ID})
	require.NoError(t, err)
	assert.Equal(t, Result{OK: true}, result)

	refunded, err := service.GetReturn(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReturnStatusRefunded, refunded.Status)

	replay, err := handler.Handle(ctx, RefundEvent{EventID: "re_1", ReturnID: request.ID})
	require.NoError(t, err)
	assert.Equal(t, Result{OK: true, Skipped: true}, replay)

	order, err := orderStore.GetOrder(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, order.RefundedAmount)
	assert.Equal(t, int64(1500), *order.RefundedAmount)
}

func TestRefundWebhookRejects(t *testing.T) {
	handler, _, _ := newRefundFixture(t)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RefundEvent{EventID: "re_2"})
	require.Error(t, err)
	assert.Equal(t, "Missing eventId or returnId", domain.MessageOf(err))

	_, err = handler.Handle(ctx, RefundEvent{EventID: "re_3", ReturnID: "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReturnNotFound)
}

func TestRefundWebhookAuthorize(t *testing.T) {
	handler, _, _ := newRefundFixture(t)

	assert.NoError(t, handler.Authorize("refund-secret"))

	err := handler.Authorize("guess")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnauthorized, domain.KindOf(err))

	open := NewRefundHandler("", nil, nil, nil, nil)
	assert.Error(t, open.Authorize(""), "unconfigured secret must fail closed")
}
