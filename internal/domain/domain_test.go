package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestComputeSlippage(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		actual   float64
		want     float64
	}{
		{"below expected", 100, 95, 0.05},
		{"above expected", 100, 102, 0.02},
		{"exact", 50, 50, 0},
		{"no hint", 0, 10, DefaultSlippage},
		{"negative hint", -1, 10, DefaultSlippage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSlippage(tt.expected, tt.actual)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComputeSlippage(%v, %v) = %v, want %v", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewError(ErrExecution, "send", cause))

	if !errors.Is(err, ErrExecution) {
		t.Error("expected error to match ErrExecution")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("did not expect error to match ErrValidation")
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to unwrap to cause")
	}
}

func TestStrategy_IsSandwichLeg(t *testing.T) {
	legs := map[Strategy]bool{
		StrategySandwichFront: true,
		StrategySandwichBack:  true,
		StrategySandwich:      false,
		StrategyArbitrage:     false,
		StrategySnipe:         false,
	}
	for s, want := range legs {
		if got := s.IsSandwichLeg(); got != want {
			t.Errorf("%s.IsSandwichLeg() = %v, want %v", s, got, want)
		}
		if !s.IsValid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Strategy("frontrun").IsValid() {
		t.Error("unknown strategy should be invalid")
	}
}
