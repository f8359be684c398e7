// Package control owns the live knob, gesture and motion state and is the
// only place they are mutated.
package control

import (
	"sync"
	"time"

	"github.com/ayusman/sonogest/internal/feed"
	"github.com/ayusman/sonogest/internal/gesture"
	"github.com/ayusman/sonogest/internal/knob"
	"github.com/ayusman/sonogest/internal/log"
)

// Mode selects which mapping path motion ticks take.
type Mode int

const (
	// ModeAmbient nudges knobs directly from motion.
	ModeAmbient Mode = iota
	// ModeGesture classifies motion into gestures first.
	ModeGesture
)

// String returns "ambient" or "gesture".
func (m Mode) String() string {
	if m == ModeGesture {
		return "gesture"
	}
	return "ambient"
}

// ParseMode maps "gesture" and "ambient" to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "gesture":
		return ModeGesture, true
	case "ambient":
		return ModeAmbient, true
	}
	return ModeAmbient, false
}

// Source identifies what triggered an update.
type Source string

const (
	SourceMotion Source = "motion"
	SourceFeed   Source = "feed"
	SourceReset  Source = "reset"
	SourceMode   Source = "mode"
)

// Snapshot is a read-only copy of the state after a tick.
type Snapshot struct {
	Knobs      knob.Vector     `json:"knobs"`
	Gesture    gesture.Gesture `json:"gesture"`
	Label      string          `json:"label"`
	PitchValue float64         `json:"pitch_value"`
	Motion     float64         `json:"motion"`
	Mode       string          `json:"mode"`
	Source     Source          `json:"source"`
	Tick       uint64          `json:"tick"`
	At         time.Time       `json:"at"`
}

// FrequencySink receives synth frequency notifications from the pitch gesture.
type FrequencySink interface {
	SetFrequency(hz float64)
}

// Listener is called with the snapshot after every committed update.
type Listener func(Snapshot)

// Options configures a State.
type Options struct {
	Classifier *gesture.Classifier
	// Random draws the ambient nudge factor. Defaults to a clock-seeded source.
	Random gesture.Source
	Mode   Mode
	Synth  FrequencySink
}

// State holds the current knobs, gesture, pitch value, motion display and mode.
type State struct {
	mu         sync.Mutex
	knobs      knob.Vector
	gesture    gesture.Gesture
	pitchValue float64
	motion     float64
	mode       Mode
	tick       uint64

	classifier *gesture.Classifier
	random     gesture.Source
	synth      FrequencySink

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates a State at the baseline vector with the hand_out gesture.
func New(opts Options) *State {
	if opts.Random == nil {
		opts.Random = gesture.NewSource(0)
	}
	if opts.Classifier == nil {
		opts.Classifier = gesture.NewClassifier(opts.Random)
	}
	return &State{
		knobs:      knob.Baseline(),
		gesture:    gesture.HandOut,
		mode:       opts.Mode,
		classifier: opts.Classifier,
		random:     opts.Random,
		synth:      opts.Synth,
	}
}

// Subscribe registers fn to receive snapshots after each update.
func (s *State) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked("")
}

// Mode returns the current mapping mode.
func (s *State) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetMode switches between gesture and ambient mapping. A change commits a
// snapshot so listeners see the new mode.
func (s *State) SetMode(m Mode) {
	s.mu.Lock()
	if s.mode == m {
		s.mu.Unlock()
		return
	}
	s.mode = m
	snap := s.commitLocked(SourceMode)
	s.mu.Unlock()

	log.Info("mapping mode changed", "mode", m.String())
	s.publish(snap, knob.Effect{}, nil)
}

// ToggleMode flips the mapping mode and returns the new one.
func (s *State) ToggleMode() Mode {
	s.mu.Lock()
	next := ModeGesture
	if s.mode == ModeGesture {
		next = ModeAmbient
	}
	s.mode = next
	snap := s.commitLocked(SourceMode)
	s.mu.Unlock()

	log.Info("mapping mode changed", "mode", next.String())
	s.publish(snap, knob.Effect{}, nil)
	return next
}

// ProcessMotion runs one motion tick (motion on the [0,100] scale) through
// the path selected by the current mode. The mode check, the random draw and
// the knob update happen under one lock.
func (s *State) ProcessMotion(motion float64) Snapshot {
	s.mu.Lock()
	var (
		snap Snapshot
		eff  knob.Effect
	)
	if s.mode == ModeGesture {
		snap, eff = s.applyResultLocked(s.classifier.Classify(motion), SourceMotion)
	} else {
		snap = s.applyAmbientLocked(motion)
	}
	synth := s.synth
	s.mu.Unlock()

	s.publish(snap, eff, synth)
	return snap
}

// ApplyGestureTick sets the active gesture and maps it into the knobs.
// intensity is on the [0,1] scale.
func (s *State) ApplyGestureTick(g gesture.Gesture, intensity float64) Snapshot {
	i := gesture.SanitizeIntensity(intensity)
	res := gesture.Result{Gesture: g, Intensity: i}
	if g == gesture.Pitch {
		res.PitchValue = i
		res.HasPitch = true
	}
	return s.applyResult(res, SourceMotion)
}

// ApplyMotionTick runs the ambient mapping path for motion on the [0,100] scale.
func (s *State) ApplyMotionTick(motion float64) Snapshot {
	s.mu.Lock()
	snap := s.applyAmbientLocked(motion)
	s.mu.Unlock()

	s.publish(snap, knob.Effect{}, nil)
	return snap
}

// ApplyFeed applies a message from the external classification feed. Only
// reverb and pitch labels drive the knobs; any other label is shown as the
// current gesture and nothing else changes.
func (s *State) ApplyFeed(msg feed.Message) Snapshot {
	res := gesture.FromLabel(msg.Gesture, msg.PitchValue)

	switch res.Gesture {
	case gesture.Reverb, gesture.Pitch:
		return s.applyResult(res, SourceFeed)
	}

	if !res.Gesture.Known() {
		log.Debug("unmapped feed gesture", "gesture", string(res.Gesture))
	}

	s.mu.Lock()
	s.gesture = res.Gesture
	s.pitchValue = res.PitchValue
	snap := s.commitLocked(SourceFeed)
	s.mu.Unlock()

	s.publish(snap, knob.Effect{}, nil)
	return snap
}

// Reset restores the baseline knob vector.
func (s *State) Reset() Snapshot {
	s.mu.Lock()
	s.knobs = knob.Baseline()
	snap := s.commitLocked(SourceReset)
	s.mu.Unlock()

	s.publish(snap, knob.Effect{}, nil)
	return snap
}

func (s *State) applyResult(res gesture.Result, src Source) Snapshot {
	s.mu.Lock()
	snap, eff := s.applyResultLocked(res, src)
	synth := s.synth
	s.mu.Unlock()

	s.publish(snap, eff, synth)
	return snap
}

func (s *State) applyResultLocked(res gesture.Result, src Source) (Snapshot, knob.Effect) {
	next, eff := knob.ApplyGesture(s.knobs, res.Gesture, res.Intensity)
	s.knobs = next
	s.gesture = res.Gesture
	s.motion = res.Intensity * 100
	if res.HasPitch {
		s.pitchValue = res.PitchValue
	}
	return s.commitLocked(src), eff
}

func (s *State) applyAmbientLocked(motion float64) Snapshot {
	motion = gesture.SanitizeMotion(motion)
	factor := s.random.Float64() * knob.AmbientScale
	s.knobs = knob.ApplyAmbient(s.knobs, motion, factor)
	s.motion = motion
	return s.commitLocked(SourceMotion)
}

// publish delivers side effects and listener callbacks outside the lock.
func (s *State) publish(snap Snapshot, eff knob.Effect, synth FrequencySink) {
	if eff.HasFrequency && synth != nil {
		synth.SetFrequency(eff.FrequencyHz)
	}
	s.notify(snap)
}

func (s *State) commitLocked(src Source) Snapshot {
	s.tick++
	return s.snapshotLocked(src)
}

func (s *State) snapshotLocked(src Source) Snapshot {
	return Snapshot{
		Knobs:      s.knobs,
		Gesture:    s.gesture,
		Label:      s.gesture.Label(s.pitchValue),
		PitchValue: s.pitchValue,
		Motion:     s.motion,
		Mode:       s.mode.String(),
		Source:     src,
		Tick:       s.tick,
		At:         time.Now(),
	}
}

func (s *State) notify(snap Snapshot) {
	s.listenersMu.RLock()
	listeners := s.listeners
	s.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
