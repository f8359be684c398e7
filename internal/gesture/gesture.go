// Package gesture classifies motion intensity into discrete gestures.
package gesture

import (
	"fmt"
	"strings"
)

// Gesture is a discrete control gesture. Externally supplied labels outside
// the known set are carried as-is so they can still be displayed.
type Gesture string

const (
	Reverb     Gesture = "reverb"
	Pitch      Gesture = "pitch"
	PeaceUp    Gesture = "peace_up"
	OpenHand   Gesture = "open_hand"
	ClosedFist Gesture = "closed_fist"
	Neutral    Gesture = "neutral"
	// HandOut is the idle state: no hand, or not enough motion.
	HandOut Gesture = "hand_out"
)

// All lists the known gestures in classification order.
var All = []Gesture{Reverb, Pitch, PeaceUp, OpenHand, ClosedFist, Neutral, HandOut}

// Known reports whether g is one of the seven gestures.
func (g Gesture) Known() bool {
	switch g {
	case Reverb, Pitch, PeaceUp, OpenHand, ClosedFist, Neutral, HandOut:
		return true
	}
	return false
}

// Parse maps a label to a Gesture. Empty input yields HandOut.
// Unknown labels are returned unchanged with ok=false.
func Parse(label string) (g Gesture, ok bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return HandOut, false
	}
	g = Gesture(label)
	return g, g.Known()
}

// Label returns the panel text for g. pitch is the current pitch value in [0,1].
func (g Gesture) Label(pitch float64) string {
	switch g {
	case Pitch:
		return fmt.Sprintf("PITCH (%.0f%%)", pitch*100)
	case Reverb:
		return "REVERB"
	case PeaceUp:
		return "PEACE SIGN"
	case OpenHand:
		return "OPEN HAND"
	case ClosedFist:
		return "CLOSED FIST"
	case Neutral:
		return "NEUTRAL"
	default:
		return "NO GESTURE"
	}
}
