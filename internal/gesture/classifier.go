package gesture

import (
	"math"
	"math/rand/v2"
	"time"
)

// Band thresholds on the [0,100] motion scale.
const (
	// ActiveThreshold is the lower (exclusive) bound of the active band.
	ActiveThreshold = 40.0
	// IdleThreshold is the lower (exclusive) bound of the neutral band.
	IdleThreshold = 15.0
	// NeutralChance is the probability of neutral inside the neutral band.
	NeutralChance = 0.3
)

// activeBuckets maps equal-width slices of [0,1) to gestures in the active band.
// Each entry wins when the draw is strictly below its upper edge.
var activeBuckets = [...]struct {
	upper   float64
	gesture Gesture
}{
	{0.2, Reverb},
	{0.4, Pitch},
	{0.6, PeaceUp},
	{0.8, OpenHand},
	{1.0, ClosedFist},
}

// Source supplies uniform draws in [0,1).
type Source interface {
	Float64() float64
}

// NewSource returns a seeded PCG generator. A zero seed picks one from the clock.
func NewSource(seed uint64) Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Result is the outcome of classifying one tick.
type Result struct {
	Gesture Gesture
	// Intensity is the motion on the [0,1] scale used by knob mapping.
	Intensity float64
	// PitchValue is only meaningful when HasPitch is set.
	PitchValue float64
	HasPitch   bool
}

// Classifier picks a gesture from motion intensity using weighted random
// tie-breaking inside each band.
type Classifier struct {
	src Source
}

// NewClassifier creates a Classifier drawing from src. A nil src uses a
// clock-seeded generator.
func NewClassifier(src Source) *Classifier {
	if src == nil {
		src = NewSource(0)
	}
	return &Classifier{src: src}
}

// Classify draws one random value and classifies motion (on the [0,100] scale).
func (c *Classifier) Classify(motion float64) Result {
	return ClassifyWith(motion, c.src.Float64())
}

// ClassifyWith classifies motion using the supplied draw r in [0,1).
// Bands are evaluated high to low and bucket edges are half-open.
func ClassifyWith(motion, r float64) Result {
	motion = SanitizeMotion(motion)
	res := Result{Gesture: HandOut, Intensity: motion / 100}

	switch {
	case motion > ActiveThreshold:
		res.Gesture = activeGesture(sanitizeDraw(r))
		if res.Gesture == Pitch {
			res.PitchValue = math.Min(motion/100, 1)
			res.HasPitch = true
		}
	case motion > IdleThreshold:
		if sanitizeDraw(r) < NeutralChance {
			res.Gesture = Neutral
		}
	}

	return res
}

func activeGesture(r float64) Gesture {
	for _, b := range activeBuckets {
		if r < b.upper {
			return b.gesture
		}
	}
	return ClosedFist
}

// FromLabel builds a Result from an externally supplied label and intensity,
// bypassing classification. The intensity is sanitized to [0,1] and is also
// reported as the pitch value, whatever the label.
func FromLabel(label string, intensity float64) Result {
	g, _ := Parse(label)
	i := SanitizeIntensity(intensity)
	return Result{Gesture: g, Intensity: i, PitchValue: i, HasPitch: true}
}

// SanitizeMotion clamps motion to [0,100]. NaN and infinities become 0.
func SanitizeMotion(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return math.Min(v, 100)
}

// SanitizeIntensity clamps intensity to [0,1]. NaN and infinities become 0.
func SanitizeIntensity(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return math.Min(v, 1)
}

// sanitizeDraw keeps a random draw inside [0,1).
func sanitizeDraw(r float64) float64 {
	if math.IsNaN(r) || r < 0 {
		return 0
	}
	if r >= 1 {
		return math.Nextafter(1, 0)
	}
	return r
}
