package control

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/ayusman/sonogest/internal/feed"
	"github.com/ayusman/sonogest/internal/gesture"
	"github.com/ayusman/sonogest/internal/knob"
)

// fixedSource returns the same draw every time.
type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

// recordingSynth keeps every frequency it receives.
type recordingSynth struct {
	mu  sync.Mutex
	hzs []float64
}

func (r *recordingSynth) SetFrequency(hz float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hzs = append(r.hzs, hz)
}

func newTestState(r float64, mode Mode) (*State, *recordingSynth) {
	synth := &recordingSynth{}
	src := fixedSource(r)
	s := New(Options{
		Classifier: gesture.NewClassifier(src),
		Random:     src,
		Mode:       mode,
		Synth:      synth,
	})
	return s, synth
}

func TestNew_Initial(t *testing.T) {
	s, _ := newTestState(0.5, ModeAmbient)
	snap := s.Snapshot()

	if snap.Gesture != gesture.HandOut {
		t.Errorf("initial gesture = %q, want hand_out", snap.Gesture)
	}
	if snap.Knobs != knob.Baseline() {
		t.Errorf("initial knobs = %+v, want baseline", snap.Knobs)
	}
	if snap.Mode != "ambient" {
		t.Errorf("initial mode = %q, want ambient", snap.Mode)
	}
	if snap.Tick != 0 {
		t.Errorf("initial tick = %d, want 0", snap.Tick)
	}
}

func TestProcessMotion_IdleFallback(t *testing.T) {
	s, _ := newTestState(0.1, ModeGesture)
	before := s.Snapshot().Knobs

	snap := s.ProcessMotion(0)

	if snap.Gesture != gesture.HandOut {
		t.Errorf("gesture = %q, want hand_out", snap.Gesture)
	}
	if snap.Knobs != before {
		t.Errorf("knobs changed on idle: %+v", snap.Knobs)
	}
}

func TestProcessMotion_GesturePitch(t *testing.T) {
	// r=0.3 lands in the pitch bucket of the active band.
	s, synth := newTestState(0.3, ModeGesture)

	snap := s.ProcessMotion(70)

	if snap.Gesture != gesture.Pitch {
		t.Fatalf("gesture = %q, want pitch", snap.Gesture)
	}
	if math.Abs(snap.PitchValue-0.70) > 1e-9 {
		t.Errorf("pitch value = %v, want 0.70", snap.PitchValue)
	}
	if math.Abs(snap.Knobs.Freq-0.70) > 1e-9 {
		t.Errorf("freq = %v, want 0.70", snap.Knobs.Freq)
	}
	if math.Abs(snap.Motion-70) > 1e-9 {
		t.Errorf("motion = %v, want 70", snap.Motion)
	}
	if snap.Label != "PITCH (70%)" {
		t.Errorf("label = %q", snap.Label)
	}
	if len(synth.hzs) != 1 || math.Abs(synth.hzs[0]-550) > 1e-9 {
		t.Errorf("synth frequencies = %v, want [550]", synth.hzs)
	}
}

func TestProcessMotion_AmbientMode(t *testing.T) {
	s, _ := newTestState(0.5, ModeAmbient)
	before := s.Snapshot()

	snap := s.ProcessMotion(100)

	if snap.Gesture != before.Gesture {
		t.Errorf("ambient tick changed gesture to %q", snap.Gesture)
	}
	if snap.Motion != 100 {
		t.Errorf("motion = %v, want 100", snap.Motion)
	}
	// factor = 0.5 * 0.1 = 0.05; freq rises by 0.1 * 0.05.
	if math.Abs(snap.Knobs.Freq-(knob.BaselineLevel+0.005)) > 1e-9 {
		t.Errorf("freq = %v, want %v", snap.Knobs.Freq, knob.BaselineLevel+0.005)
	}
}

func TestApplyGestureTick_ReverbScenario(t *testing.T) {
	s, synth := newTestState(0.5, ModeGesture)

	snap := s.ApplyGestureTick(gesture.Reverb, 0.5)

	if snap.Knobs.Reverb != 1 {
		t.Errorf("reverb = %v, want 1", snap.Knobs.Reverb)
	}
	if math.Abs(snap.Knobs.Delay-0.75) > 1e-9 {
		t.Errorf("delay = %v, want 0.75", snap.Knobs.Delay)
	}
	if snap.Knobs.Freq != 0.9 || snap.Knobs.Resonance != 0.9 || snap.Knobs.Modulation != 0.9 {
		t.Errorf("untouched knobs changed: %+v", snap.Knobs)
	}
	if len(synth.hzs) != 0 {
		t.Errorf("reverb should not notify the synth: %v", synth.hzs)
	}
}

func TestApplyGestureTick_OpenHandIdempotent(t *testing.T) {
	s, _ := newTestState(0.5, ModeGesture)

	once := s.ApplyGestureTick(gesture.OpenHand, 0.6).Knobs
	twice := s.ApplyGestureTick(gesture.OpenHand, 0.6).Knobs

	if once != twice {
		t.Errorf("open_hand not idempotent: %+v vs %+v", once, twice)
	}
}

func TestApplyGestureTick_DoesNotResetPitchValue(t *testing.T) {
	s, _ := newTestState(0.5, ModeGesture)
	s.ApplyGestureTick(gesture.Pitch, 0.4)

	snap := s.ApplyGestureTick(gesture.ClosedFist, 0.9)
	if snap.PitchValue != 0.4 {
		t.Errorf("pitch value = %v, want it held at 0.4", snap.PitchValue)
	}
}

func TestApplyFeed(t *testing.T) {
	t.Run("reverb drives knobs", func(t *testing.T) {
		s, _ := newTestState(0.5, ModeAmbient)
		snap := s.ApplyFeed(feed.Message{Gesture: "reverb", PitchValue: 0.2})

		if snap.Gesture != gesture.Reverb {
			t.Errorf("gesture = %q, want reverb", snap.Gesture)
		}
		if math.Abs(snap.Knobs.Reverb-0.4) > 1e-9 {
			t.Errorf("reverb = %v, want 0.4", snap.Knobs.Reverb)
		}
		if snap.PitchValue != 0.2 {
			t.Errorf("pitch value = %v, want 0.2", snap.PitchValue)
		}
		if snap.Source != SourceFeed {
			t.Errorf("source = %q, want feed", snap.Source)
		}
	})

	t.Run("pitch drives knobs and synth", func(t *testing.T) {
		s, synth := newTestState(0.5, ModeAmbient)
		snap := s.ApplyFeed(feed.Message{Gesture: "pitch", PitchValue: 0.6})

		if math.Abs(snap.Knobs.Freq-0.6) > 1e-9 {
			t.Errorf("freq = %v, want 0.6", snap.Knobs.Freq)
		}
		if len(synth.hzs) != 1 || math.Abs(synth.hzs[0]-500) > 1e-9 {
			t.Errorf("synth frequencies = %v, want [500]", synth.hzs)
		}
	})

	t.Run("other labels only change the display", func(t *testing.T) {
		s, _ := newTestState(0.5, ModeGesture)
		before := s.Snapshot()

		for _, label := range []string{"open_hand", "closed_fist", "neutral", "thumbs_up"} {
			snap := s.ApplyFeed(feed.Message{Gesture: label, PitchValue: 0.7})
			if string(snap.Gesture) != label {
				t.Errorf("gesture = %q, want %q", snap.Gesture, label)
			}
			if snap.Knobs != before.Knobs {
				t.Errorf("%s changed knobs: %+v", label, snap.Knobs)
			}
			if snap.PitchValue != 0.7 {
				t.Errorf("%s pitch value = %v, want 0.7", label, snap.PitchValue)
			}
		}
	})

	t.Run("bad pitch value is zeroed", func(t *testing.T) {
		s, _ := newTestState(0.5, ModeAmbient)
		snap := s.ApplyFeed(feed.Message{Gesture: "pitch", PitchValue: math.NaN()})
		if snap.Knobs.Freq != 0 || snap.Knobs.Resonance != 1 {
			t.Errorf("knobs = %+v, want freq 0 resonance 1", snap.Knobs)
		}
	})
}

func TestReset(t *testing.T) {
	s, _ := newTestState(0.5, ModeGesture)
	s.ApplyGestureTick(gesture.ClosedFist, 1)
	s.ApplyGestureTick(gesture.Pitch, 0.2)

	snap := s.Reset()

	if snap.Knobs != knob.Baseline() {
		t.Errorf("knobs after reset = %+v, want baseline", snap.Knobs)
	}
	if snap.Gesture != gesture.Pitch {
		t.Errorf("reset should not change the gesture, got %q", snap.Gesture)
	}
	if snap.Source != SourceReset {
		t.Errorf("source = %q, want reset", snap.Source)
	}
}

func TestMode(t *testing.T) {
	s, _ := newTestState(0.5, ModeAmbient)

	if got := s.ToggleMode(); got != ModeGesture {
		t.Errorf("ToggleMode() = %v, want gesture", got)
	}
	if got := s.ToggleMode(); got != ModeAmbient {
		t.Errorf("ToggleMode() = %v, want ambient", got)
	}

	s.SetMode(ModeGesture)
	if s.Mode() != ModeGesture {
		t.Errorf("Mode() = %v, want gesture", s.Mode())
	}
}

func TestModeChange_NotifiesListeners(t *testing.T) {
	s, _ := newTestState(0.5, ModeAmbient)

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	s.SetMode(ModeGesture)
	s.SetMode(ModeGesture)
	s.ToggleMode()

	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots, want 2 (repeated SetMode is silent)", len(snaps))
	}
	if snaps[0].Mode != "gesture" || snaps[0].Source != SourceMode {
		t.Errorf("first snapshot = mode %q source %q, want gesture from mode", snaps[0].Mode, snaps[0].Source)
	}
	if snaps[1].Mode != "ambient" || snaps[1].Tick != 2 {
		t.Errorf("second snapshot = mode %q tick %d, want ambient at tick 2", snaps[1].Mode, snaps[1].Tick)
	}
	if snaps[1].Knobs != knob.Baseline() || snaps[1].Gesture != gesture.HandOut {
		t.Errorf("mode change altered knobs or gesture: %+v", snaps[1])
	}
}

func TestParseMode(t *testing.T) {
	if m, ok := ParseMode("gesture"); !ok || m != ModeGesture {
		t.Errorf("ParseMode(gesture) = %v, %v", m, ok)
	}
	if m, ok := ParseMode("ambient"); !ok || m != ModeAmbient {
		t.Errorf("ParseMode(ambient) = %v, %v", m, ok)
	}
	if _, ok := ParseMode("party"); ok {
		t.Error("ParseMode(party) should fail")
	}
}

func TestSubscribe(t *testing.T) {
	s, _ := newTestState(0.5, ModeAmbient)

	var ticks []uint64
	s.Subscribe(func(snap Snapshot) { ticks = append(ticks, snap.Tick) })
	s.Subscribe(nil)

	s.ProcessMotion(10)
	s.ApplyFeed(feed.Message{Gesture: "reverb", PitchValue: 0.1})
	s.Reset()

	if len(ticks) != 3 || ticks[0] != 1 || ticks[2] != 3 {
		t.Errorf("ticks = %v, want [1 2 3]", ticks)
	}
}

func TestClampInvariant_RandomTicks(t *testing.T) {
	s := New(Options{Random: gesture.NewSource(99), Mode: ModeGesture})
	rng := rand.New(rand.NewPCG(5, 6))
	labels := []string{"reverb", "pitch", "wave", "", "open_hand"}

	for i := 0; i < 3000; i++ {
		var snap Snapshot
		switch rng.IntN(5) {
		case 0:
			snap = s.ProcessMotion(rng.Float64()*160 - 30)
		case 1:
			snap = s.ApplyMotionTick(rng.Float64() * 100)
		case 2:
			g := gesture.All[rng.IntN(len(gesture.All))]
			snap = s.ApplyGestureTick(g, rng.Float64()*3-1)
		case 3:
			snap = s.ApplyFeed(feed.Message{Gesture: labels[rng.IntN(len(labels))], PitchValue: rng.Float64()*4 - 2})
		case 4:
			s.ToggleMode()
			continue
		}
		if !snap.Knobs.InRange() {
			t.Fatalf("tick %d left range: %+v", i, snap.Knobs)
		}
	}
}

func TestConcurrentTicks(t *testing.T) {
	s := New(Options{Random: gesture.NewSource(1), Mode: ModeGesture})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if w%2 == 0 {
					s.ProcessMotion(float64(i % 100))
				} else {
					s.ApplyFeed(feed.Message{Gesture: "pitch", PitchValue: float64(i%10) / 10})
				}
			}
		}(w)
	}
	wg.Wait()

	if got := s.Snapshot().Tick; got != 1600 {
		t.Errorf("tick = %d, want 1600", got)
	}
	if !s.Snapshot().Knobs.InRange() {
		t.Error("knobs out of range after concurrent ticks")
	}
}
