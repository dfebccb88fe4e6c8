package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "validation error",
			err:  Validation("Cart empty"),
			want: KindValidation,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("load order: %w", ErrOrderNotFound),
			want: KindNotFound,
		},
		{
			name: "upstream keeps cause",
			err:  Upstream(errors.New("timeout"), "Payment provider unavailable"),
			want: KindUpstream,
		},
		{
			name: "plain error is internal",
			err:  errors.New("boom"),
			want: KindInternal,
		},
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorIs_MatchesRecreatedValues(t *testing.T) {
	err := fmt.Errorf("approve: %w", NotFound("Return not found"))
	if !errors.Is(err, ErrReturnNotFound) {
		t.Fatal("expected recreated not found error to match sentinel")
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Fatal("different messages must not match")
	}
}

func TestMessageOf_HidesCause(t *testing.T) {
	err := Internal(errors.New("dial tcp: refused"), "Failed to load order")
	if got := MessageOf(err); got != "Failed to load order" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := MessageOf(errors.New("raw")); got != "Internal error" {
		t.Fatalf("unexpected message for plain error: %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Fatal("expected Unwrap to expose the cause")
	}
}

func TestValidationFormatting(t *testing.T) {
	err := Validation("Minimum redemption is %d points", 100)
	if err.Error() != "Minimum redemption is 100 points" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
