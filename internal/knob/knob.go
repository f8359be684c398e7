// Package knob maps gestures and motion onto five bounded sound-control knobs.
package knob

import "math"

// BaselineLevel is the value every knob starts at and returns to on reset.
const BaselineLevel = 0.9

// Vector holds the five knob values, each in [0,1].
type Vector struct {
	Freq       float64 `json:"freq"`
	Resonance  float64 `json:"resonance"`
	Delay      float64 `json:"delay"`
	Reverb     float64 `json:"reverb"`
	Modulation float64 `json:"modulation"`
}

// Baseline returns the session-start vector.
func Baseline() Vector {
	return Vector{
		Freq:       BaselineLevel,
		Resonance:  BaselineLevel,
		Delay:      BaselineLevel,
		Reverb:     BaselineLevel,
		Modulation: BaselineLevel,
	}
}

// Fields returns the knobs in display order: freq, resonance, delay, reverb, modulation.
func (v Vector) Fields() [5]float64 {
	return [5]float64{v.Freq, v.Resonance, v.Delay, v.Reverb, v.Modulation}
}

// fromFields is the inverse of Fields.
func fromFields(f [5]float64) Vector {
	return Vector{Freq: f[0], Resonance: f[1], Delay: f[2], Reverb: f[3], Modulation: f[4]}
}

// Clamped returns v with every field clamped to [0,1].
func (v Vector) Clamped() Vector {
	f := v.Fields()
	for i := range f {
		f[i] = Clamp(f[i], 0, 1)
	}
	return fromFields(f)
}

// InRange reports whether every field lies in [0,1].
func (v Vector) InRange() bool {
	for _, x := range v.Fields() {
		if !(x >= 0 && x <= 1) {
			return false
		}
	}
	return true
}

// Clamp returns min(max(v, lo), hi). NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// snapEpsilon absorbs float drift so repeated steps land on the target
// instead of stopping one ulp short of it.
const snapEpsilon = 1e-9

// MoveToward steps current toward target by step, landing on target once
// it is closer than step.
func MoveToward(current, target, step float64) float64 {
	if math.Abs(current-target) < step+snapEpsilon {
		return target
	}
	if current > target {
		return current - step
	}
	return current + step
}
