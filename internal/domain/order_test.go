package domain_test

import (
	"testing"
	"time"

	"github.com/vladislavdragonenkov/glowup/internal/domain"
)

// helper для создания черновика с одной позицией и списанием баллов.
func makeDraft() domain.OrderDraft {
	discount := int64(200)
	redeemed := int64(200)
	return domain.OrderDraft{
		ID:     "draft-1",
		UserID: "user-1",
		Items: []domain.CartItem{
			{ID: "line-1", ProductID: "serum", Title: "Serum", Price: 1500, Quantity: 2},
		},
		Currency: domain.CurrencyKES,
		Totals: domain.Totals{
			Subtotal:       3000,
			Tax:            480,
			TaxRate:        domain.TaxRate,
			Shipping:       350,
			PointsDiscount: &discount,
			PointsRedeemed: &redeemed,
			Total:          3630,
		},
		ShippingMethod:  domain.ShippingStandard,
		Status:          domain.DraftStatusPendingPayment,
		CreatedAt:       1700000000000,
		PaymentProvider: domain.PaymentProviderStripe,
	}
}

func TestNewOrderFromDraft_CopiesFinancials(t *testing.T) {
	draft := makeDraft()
	now := time.UnixMilli(1700000100000)

	order := domain.NewOrderFromDraft(draft, "pi_123", "evt_1", now)

	if order.ID != draft.ID {
		t.Fatalf("order id must equal draft id, got %s", order.ID)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("unexpected status: %s", order.Status)
	}
	if order.Total != 3630 || order.Tax != 480 || order.Shipping != 350 || *order.PointsDiscount != 200 {
		t.Fatalf("financial fields not copied: %+v", order.Totals)
	}
	if order.PaymentIntentID != "pi_123" {
		t.Fatalf("unexpected payment intent: %s", order.PaymentIntentID)
	}
	if len(order.Events) != 1 || order.Events[0].Type != domain.EventPaid {
		t.Fatalf("expected a single paid event, got %+v", order.Events)
	}
	if order.Events[0].Data["eventId"] != "evt_1" || order.Events[0].At != now.UnixMilli() {
		t.Fatalf("unexpected paid event: %+v", order.Events[0])
	}

	order.Items[0].Quantity = 99
	if draft.Items[0].Quantity != 2 {
		t.Fatal("order items must not alias draft items")
	}
}

func TestOrderStatus_Returnable(t *testing.T) {
	for _, status := range domain.OrderStatuses {
		want := status == domain.OrderStatusPaid ||
			status == domain.OrderStatusProcessing ||
			status == domain.OrderStatusShipped ||
			status == domain.OrderStatusDelivered
		if got := status.Returnable(); got != want {
			t.Errorf("%s.Returnable() = %v, want %v", status, got, want)
		}
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := domain.ParseOrderStatus("shipped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := domain.ParseOrderStatus("lost_in_space")
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseShippingMethod(t *testing.T) {
	m, err := domain.ParseShippingMethod("")
	if err != nil || m != domain.ShippingStandard {
		t.Fatalf("empty method must default to standard, got %q %v", m, err)
	}
	if _, err := domain.ParseShippingMethod("drone"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestTierFor(t *testing.T) {
	cases := map[int64]domain.Tier{
		0:     domain.TierBronze,
		1999:  domain.TierBronze,
		2000:  domain.TierSilver,
		4999:  domain.TierSilver,
		5000:  domain.TierGold,
		9999:  domain.TierGold,
		10000: domain.TierPlatinum,
	}
	for earned, want := range cases {
		if got := domain.TierFor(earned); got != want {
			t.Errorf("TierFor(%d) = %s, want %s", earned, got, want)
		}
	}
}

func TestIdentity_Owns(t *testing.T) {
	user := domain.Identity{UserID: "u1"}
	session := domain.Identity{SessionID: "s1"}

	if !user.Owns(domain.Identity{UserID: "u1", SessionID: "old"}) {
		t.Fatal("user must own its order")
	}
	if user.Owns(domain.Identity{UserID: "u2"}) {
		t.Fatal("user must not own foreign order")
	}
	if !session.Owns(domain.Identity{SessionID: "s1"}) {
		t.Fatal("session must own guest order")
	}
	if session.Owns(domain.Identity{UserID: "u1", SessionID: "s1"}) {
		t.Fatal("session must not own a user order")
	}
	if err := (domain.Identity{}).Validate(); err == nil {
		t.Fatal("empty identity must be invalid")
	}
}
