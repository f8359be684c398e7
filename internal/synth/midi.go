package synth

import (
	"errors"
	"fmt"
	"math"
	"sync"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/ayusman/sonogest/internal/knob"
	"github.com/ayusman/sonogest/internal/log"
)

// ErrPortNotFound is returned when no MIDI output port matches the requested name.
var ErrPortNotFound = errors.New("midi output port not found")

// Controller numbers for the five knobs, in knob.Vector field order.
const (
	CCFreq = 20 + iota
	CCResonance
	CCDelay
	CCReverb
	CCModulation
)

const (
	// MinFrequencyHz and MaxFrequencyHz bound the pitch bend range.
	MinFrequencyHz = 200.0
	MaxFrequencyHz = 700.0

	bendMin = -8192
	bendMax = 8191
)

// MIDIOutput sends knobs as control changes and frequency as pitch bend.
type MIDIOutput struct {
	mu      sync.Mutex
	send    func(gomidi.Message) error
	channel uint8
	port    string
	last    [5]int
	bend    int
}

// OpenMIDI opens the named output port. A registered driver is required.
func OpenMIDI(portName string, channel uint8) (*MIDIOutput, error) {
	for _, port := range gomidi.GetOutPorts() {
		if port.String() != portName {
			continue
		}
		send, err := gomidi.SendTo(port)
		if err != nil {
			return nil, fmt.Errorf("open midi port %q: %w", portName, err)
		}
		out := newMIDIOutput(send, channel)
		out.port = portName
		log.Info("midi output opened", "port", portName, "channel", channel)
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrPortNotFound, portName)
}

// OutPorts lists the available output port names.
func OutPorts() []string {
	var names []string
	for _, port := range gomidi.GetOutPorts() {
		names = append(names, port.String())
	}
	return names
}

func newMIDIOutput(send func(gomidi.Message) error, channel uint8) *MIDIOutput {
	out := &MIDIOutput{
		send:    send,
		channel: channel & 0x0f,
		bend:    math.MinInt,
	}
	for i := range out.last {
		out.last[i] = -1
	}
	return out
}

// SetKnobs sends a control change for every knob whose 7-bit value changed.
func (o *MIDIOutput) SetKnobs(v knob.Vector) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, f := range v.Clamped().Fields() {
		value := ccValue(f)
		if value == o.last[i] {
			continue
		}
		if err := o.send(gomidi.ControlChange(o.channel, uint8(CCFreq+i), uint8(value))); err != nil {
			log.Warn("midi send failed", "cc", CCFreq+i, "error", err)
			continue
		}
		o.last[i] = value
	}
}

// SetFrequency sends the frequency as a pitch bend across the pitch range.
func (o *MIDIOutput) SetFrequency(hz float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	bend := bendValue(hz)
	if bend == o.bend {
		return
	}
	if err := o.send(gomidi.Pitchbend(o.channel, int16(bend))); err != nil {
		log.Warn("midi send failed", "bend", bend, "error", err)
		return
	}
	o.bend = bend
}

// Close releases the MIDI driver.
func (o *MIDIOutput) Close() error {
	if o.port != "" {
		gomidi.CloseDriver()
	}
	return nil
}

func ccValue(f float64) int {
	return int(math.Round(knob.Clamp(f, 0, 1) * 127))
}

func bendValue(hz float64) int {
	t := knob.Clamp((hz-MinFrequencyHz)/(MaxFrequencyHz-MinFrequencyHz), 0, 1)
	return bendMin + int(math.Round(t*float64(bendMax-bendMin)))
}
