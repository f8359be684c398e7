package app

import (
	"sync"

	"github.com/ayusman/sonogest/internal/control"
	"github.com/ayusman/sonogest/internal/gesture"
	"github.com/ayusman/sonogest/internal/log"
	"github.com/ayusman/sonogest/internal/store"
)

const recorderBuffer = 256

type eventWriter interface {
	Create(e *store.Event) error
}

// recorder persists gesture changes without blocking the tick.
type recorder struct {
	events    eventWriter
	sessionID string
	queue     chan store.Event

	mu      sync.Mutex
	last    gesture.Gesture
	dropped int
}

func newRecorder(events eventWriter, sessionID string, size int) *recorder {
	return &recorder{
		events:    events,
		sessionID: sessionID,
		queue:     make(chan store.Event, size),
		last:      gesture.HandOut,
	}
}

// observe is a control.Listener. It queues an event when the gesture changes.
func (r *recorder) observe(snap control.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.Gesture == r.last {
		return
	}
	r.last = snap.Gesture

	e := store.Event{
		SessionID:  r.sessionID,
		Tick:       snap.Tick,
		Gesture:    string(snap.Gesture),
		Source:     string(snap.Source),
		Intensity:  snap.Motion / 100,
		PitchValue: snap.PitchValue,
		Knobs:      snap.Knobs,
		CreatedAt:  snap.At.UTC(),
	}

	select {
	case r.queue <- e:
	default:
		r.dropped++
		log.Warn("gesture event dropped", "gesture", e.Gesture, "tick", e.Tick, "dropped", r.dropped)
	}
}

// run writes queued events until stop is closed, then flushes what is left.
func (r *recorder) run(stop <-chan struct{}) {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		case <-stop:
			r.flush()
			return
		}
	}
}

func (r *recorder) flush() {
	for {
		select {
		case e := <-r.queue:
			r.write(e)
		default:
			return
		}
	}
}

func (r *recorder) write(e store.Event) {
	if err := r.events.Create(&e); err != nil {
		log.Warn("failed to record gesture event", "gesture", e.Gesture, "error", err)
	}
}
