package knob

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		v, lo, hi, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-0.2, 0, 1, 0},
		{1.7, 0, 1, 1},
		{math.NaN(), 0, 1, 0},
		{math.Inf(1), 0, 1, 1},
		{math.Inf(-1), 0, 1, 0},
	}

	for _, tt := range tests {
		if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestMoveToward(t *testing.T) {
	tests := []struct {
		name                  string
		current, target, step float64
		want                  float64
	}{
		{"steps down", 0.9, 0.5, 0.1, 0.8},
		{"steps up", 0.1, 0.5, 0.1, 0.2},
		{"snaps when close", 0.55, 0.5, 0.1, 0.5},
		{"already at target", 0.5, 0.5, 0.1, 0.5},
		{"snaps below", 0.45, 0.5, 0.1, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MoveToward(tt.current, tt.target, tt.step)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("MoveToward(%v, %v, %v) = %v, want %v", tt.current, tt.target, tt.step, got, tt.want)
			}
		})
	}
}

func TestMoveToward_NeverOvershoots(t *testing.T) {
	for start := 0.0; start <= 1.0; start += 0.013 {
		cur := start
		target := 0.37
		side := math.Signbit(cur - target)
		for i := 0; i < 20; i++ {
			cur = MoveToward(cur, target, 0.1)
			if cur != target && math.Signbit(cur-target) != side {
				t.Fatalf("start %v overshot target on tick %d: %v", start, i, cur)
			}
		}
		if cur != target {
			t.Errorf("start %v did not converge: %v", start, cur)
		}
	}
}

func TestVector_Clamped(t *testing.T) {
	v := Vector{Freq: 2, Resonance: -1, Delay: 0.5, Reverb: math.NaN(), Modulation: 1}
	got := v.Clamped()
	want := Vector{Freq: 1, Resonance: 0, Delay: 0.5, Reverb: 0, Modulation: 1}
	if got != want {
		t.Errorf("Clamped() = %+v, want %+v", got, want)
	}
	if !got.InRange() {
		t.Error("clamped vector should be in range")
	}
	if v.InRange() {
		t.Error("original vector should be out of range")
	}
}

func TestBaseline(t *testing.T) {
	b := Baseline()
	for i, f := range b.Fields() {
		if f != BaselineLevel {
			t.Errorf("field %d = %v, want %v", i, f, BaselineLevel)
		}
	}
}
