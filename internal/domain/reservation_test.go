package domain

import "testing"

func TestPointsHoldValidate(t *testing.T) {
	valid := PointsHold{DraftID: "d-1", UserID: "u-1", Points: 150}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid hold, got %v", err)
	}

	cases := []PointsHold{
		{UserID: "u-1", Points: 150},
		{DraftID: "d-1", Points: 150},
		{DraftID: "d-1", UserID: "u-1"},
	}
	for _, hold := range cases {
		if err := hold.Validate(); KindOf(err) != KindValidation {
			t.Errorf("expected validation error for %+v, got %v", hold, err)
		}
	}
}

func TestReturnInputValidate(t *testing.T) {
	input := CreateReturnInput{
		OrderID: "o-1",
		Items:   []ReturnItem{{OrderItemID: "line-1", Quantity: 1, Reason: ReasonDefective}},
	}
	if err := input.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	input.Items[0].Reason = "bored"
	if err := input.Validate(); err == nil {
		t.Fatal("expected error for unknown reason")
	}

	input.Items[0].Reason = ReasonOther
	input.Items[0].Quantity = 0
	if err := input.Validate(); err == nil {
		t.Fatal("expected error for zero quantity")
	}
}
