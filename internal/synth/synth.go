// Package synth forwards knob and frequency updates to an external synthesizer.
package synth

import (
	"sync"

	"github.com/ayusman/sonogest/internal/knob"
)

// Output receives control updates destined for the audio engine.
type Output interface {
	SetFrequency(hz float64)
	SetKnobs(v knob.Vector)
	Close() error
}

// Recorder is an Output that keeps every update in memory.
type Recorder struct {
	mu          sync.Mutex
	frequencies []float64
	knobs       []knob.Vector
	closed      bool
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) SetFrequency(hz float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frequencies = append(r.frequencies, hz)
}

func (r *Recorder) SetKnobs(v knob.Vector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knobs = append(r.knobs, v)
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frequencies returns a copy of the recorded frequencies.
func (r *Recorder) Frequencies() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.frequencies...)
}

// Knobs returns a copy of the recorded knob vectors.
func (r *Recorder) Knobs() []knob.Vector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]knob.Vector(nil), r.knobs...)
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}
