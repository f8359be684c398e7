// Package feed receives gesture classifications from a remote service.
package feed

import (
	"encoding/json"
	"math"
	"strconv"
)

// DefaultURL is the data endpoint of the hand-tracking backend.
const DefaultURL = "ws://127.0.0.1:8000/ws/data"

// Message is one classification from the remote service.
type Message struct {
	Gesture    string  `json:"gesture"`
	PitchValue float64 `json:"pitch_value"`
}

// rawMessage accepts pitch_value as a number, a numeric string or null.
type rawMessage struct {
	Gesture    *string         `json:"gesture"`
	PitchValue json.RawMessage `json:"pitch_value"`
}

// Decode parses a feed payload. A missing gesture becomes "hand_out" and a
// missing or non-numeric pitch_value becomes 0. Only undecodable JSON is an error.
func Decode(data []byte) (Message, error) {
	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, err
	}

	msg := Message{Gesture: "hand_out"}
	if raw.Gesture != nil && *raw.Gesture != "" {
		msg.Gesture = *raw.Gesture
	}
	msg.PitchValue = parseNumber(raw.PitchValue)
	return msg, nil
}

func parseNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return finite(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return finite(f)
		}
	}
	return 0
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
