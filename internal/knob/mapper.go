package knob

import (
	"github.com/ayusman/sonogest/internal/gesture"
)

// Fixed vectors for the absolute-set gestures.
var (
	OpenHandPreset   = Vector{Freq: 0.8, Resonance: 0.7, Delay: 0.6, Reverb: 0.8, Modulation: 0.7}
	ClosedFistPreset = Vector{Freq: 0.2, Resonance: 0.3, Delay: 0.1, Reverb: 0.2, Modulation: 0.1}
	// NeutralTarget is where the neutral gesture decays toward.
	NeutralTarget = Vector{Freq: 0.5, Resonance: 0.3, Delay: 0.2, Reverb: 0.6, Modulation: 0.4}
)

// NeutralStep is the per-tick decay distance for the neutral gesture.
const NeutralStep = 0.1

// Synth frequency range driven by the pitch gesture, in Hz.
const (
	PitchBaseHz  = 200.0
	PitchRangeHz = 500.0
)

// AmbientScale bounds the random factor used by ambient nudges.
const AmbientScale = 0.1

// ambientRule is the per-knob threshold (on the [0,100] motion scale) and
// upward rate. Below the threshold the knob drifts down at half the rate.
type ambientRule struct {
	threshold float64
	rate      float64
}

// ambientRules is indexed like Vector.Fields.
var ambientRules = [5]ambientRule{
	{50, 0.1},
	{30, 0.08},
	{20, 0.06},
	{40, 0.07},
	{15, 0.05},
}

// Effect carries side effects of a gesture update meant for the audio engine.
type Effect struct {
	// FrequencyHz is set when HasFrequency is true.
	FrequencyHz  float64
	HasFrequency bool
}

// ApplyGesture computes the next vector for gesture g with intensity in [0,1].
// Unknown gestures and hand_out leave prev unchanged.
func ApplyGesture(prev Vector, g gesture.Gesture, intensity float64) (Vector, Effect) {
	i := gesture.SanitizeIntensity(intensity)
	next := prev
	var eff Effect

	switch g {
	case gesture.Reverb:
		next.Reverb = Clamp(i*2, 0, 1)
		next.Delay = Clamp(i*1.5, 0, 1)
	case gesture.Pitch:
		next.Freq = Clamp(i, 0, 1)
		next.Resonance = Clamp(1-i, 0, 1)
		eff = Effect{FrequencyHz: PitchBaseHz + i*PitchRangeHz, HasFrequency: true}
	case gesture.PeaceUp:
		next.Modulation = Clamp(i*1.2, 0, 1)
		next.Delay = Clamp(i, 0, 1)
	case gesture.OpenHand:
		next = OpenHandPreset
	case gesture.ClosedFist:
		next = ClosedFistPreset
	case gesture.Neutral:
		cur, tgt := prev.Fields(), NeutralTarget.Fields()
		for k := range cur {
			cur[k] = Clamp(MoveToward(cur[k], tgt[k], NeutralStep), 0, 1)
		}
		next = fromFields(cur)
	default:
		return prev, Effect{}
	}

	return next, eff
}

// ApplyAmbient nudges every knob by factor, up when motion exceeds that
// knob's threshold and down at half rate otherwise. factor is expected in
// [0, AmbientScale).
func ApplyAmbient(prev Vector, motion, factor float64) Vector {
	motion = gesture.SanitizeMotion(motion)
	factor = Clamp(factor, 0, AmbientScale)

	f := prev.Fields()
	for k, rule := range ambientRules {
		delta := -rule.rate / 2
		if motion > rule.threshold {
			delta = rule.rate
		}
		f[k] = Clamp(f[k]+delta*factor, 0, 1)
	}
	return fromFields(f)
}
