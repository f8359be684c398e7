// Package app runs a control session: it ticks the motion source, applies
// feed messages and commands, and fans state out to its outputs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/sonogest/internal/capture"
	"github.com/ayusman/sonogest/internal/control"
	"github.com/ayusman/sonogest/internal/feed"
	"github.com/ayusman/sonogest/internal/gesture"
	"github.com/ayusman/sonogest/internal/log"
	"github.com/ayusman/sonogest/internal/store"
	"github.com/ayusman/sonogest/internal/synth"
)

// DefaultTickInterval is the motion tick period at 60 Hz.
const DefaultTickInterval = time.Second / 60

var (
	// ErrAlreadyRunning is returned by Start on a running session.
	ErrAlreadyRunning = errors.New("session already running")
	// ErrSessionEnded is returned by Start on a session that has been stopped.
	ErrSessionEnded = errors.New("session ended")
)

// Config holds configuration options for a Session.
type Config struct {
	// Source provides motion samples. Nil disables motion ticks.
	Source capture.MotionSource
	// Feed delivers external classifications. Nil disables the feed.
	Feed *feed.Client
	// Output receives knob and frequency updates. Nil disables synth output.
	Output synth.Output
	// Store records the session and its gesture changes. Nil disables history.
	Store *store.Store
	// Frequency lists extra receivers of pitch frequency changes.
	Frequency []control.FrequencySink

	TickInterval time.Duration
	Mode         control.Mode
	// Seed drives the classifier and ambient draws. Zero picks one from the clock.
	Seed uint64
	// Random overrides the seeded source.
	Random gesture.Source
}

type frequencySinks []control.FrequencySink

func (fs frequencySinks) SetFrequency(hz float64) {
	for _, sink := range fs {
		sink.SetFrequency(hz)
	}
}

type command struct {
	fn   func()
	done chan struct{}
}

// Session owns one control.State and the goroutines that drive it.
type Session struct {
	id     string
	config Config
	state  *control.State

	feedCh chan feed.Message
	cmdCh  chan command

	recorder *recorder

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
	started bool
	wg      sync.WaitGroup
}

// New creates a Session. It does not start any goroutines.
func New(config Config) *Session {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Seed == 0 {
		config.Seed = uint64(time.Now().UnixNano())
	}
	if config.Random == nil {
		config.Random = gesture.NewSource(config.Seed)
	}

	var sinks frequencySinks
	if config.Output != nil {
		sinks = append(sinks, config.Output)
	}
	sinks = append(sinks, config.Frequency...)

	opts := control.Options{
		Random: config.Random,
		Mode:   config.Mode,
	}
	if len(sinks) > 0 {
		opts.Synth = sinks
	}

	s := &Session{
		id:     uuid.NewString(),
		config: config,
		state:  control.New(opts),
		feedCh: make(chan feed.Message, 16),
		cmdCh:  make(chan command),
	}

	if config.Output != nil {
		out := config.Output
		s.state.Subscribe(func(snap control.Snapshot) {
			out.SetKnobs(snap.Knobs)
		})
	}
	if config.Store != nil {
		s.recorder = newRecorder(config.Store.Events(), s.id, recorderBuffer)
		s.state.Subscribe(s.recorder.observe)
	}

	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string {
	return s.id
}

// Seed returns the seed the session's random source was built from.
func (s *Session) Seed() uint64 {
	return s.config.Seed
}

// State returns the session's control state.
func (s *Session) State() *control.State {
	return s.state
}

// Snapshot returns the current control state.
func (s *Session) Snapshot() control.Snapshot {
	return s.state.Snapshot()
}

// Running reports whether the run loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Done is closed when the run loop exits. It is nil before Start.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Start opens the motion source, records the session and starts the run
// loop. Cancelling ctx or calling Stop ends it. A Session runs at most once.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if s.started {
		return ErrSessionEnded
	}

	if s.config.Source != nil {
		if err := s.config.Source.Open(); err != nil {
			return fmt.Errorf("open motion source: %w", err)
		}
	}

	if s.config.Store != nil {
		err := s.config.Store.Sessions().Create(&store.Session{
			ID:   s.id,
			Mode: s.state.Mode().String(),
			Seed: s.config.Seed,
		})
		if err != nil {
			s.closeSource()
			return fmt.Errorf("record session: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.started = true

	if s.recorder != nil {
		done := s.done
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.recorder.run(done)
		}()
	}

	if s.config.Feed != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.runFeed(ctx)
		}()
	}

	s.wg.Add(1)
	go s.run(ctx, s.done)

	log.Info("session started",
		"id", s.id,
		"mode", s.state.Mode().String(),
		"tick", s.config.TickInterval,
		"seed", s.config.Seed)
	return nil
}

// Stop ends the run loop and waits for every session goroutine.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// SubmitFeed queues a feed message for the run loop. When the session is not
// running the message is applied directly.
func (s *Session) SubmitFeed(msg feed.Message) {
	s.mu.Lock()
	running, done := s.running, s.done
	s.mu.Unlock()

	if !running {
		s.state.ApplyFeed(msg)
		return
	}

	select {
	case s.feedCh <- msg:
	case <-done:
		s.state.ApplyFeed(msg)
	}
}

// SetMode switches the mapping mode.
func (s *Session) SetMode(m control.Mode) {
	s.do(func() { s.state.SetMode(m) })
}

// ToggleMode flips the mapping mode and returns the new one.
func (s *Session) ToggleMode() control.Mode {
	var m control.Mode
	s.do(func() { m = s.state.ToggleMode() })
	return m
}

// Reset restores the baseline knobs.
func (s *Session) Reset() control.Snapshot {
	var snap control.Snapshot
	s.do(func() { snap = s.state.Reset() })
	return snap
}

// do runs fn on the run loop, or inline when the session is not running.
func (s *Session) do(fn func()) {
	s.mu.Lock()
	running, done := s.running, s.done
	s.mu.Unlock()

	if !running {
		fn()
		return
	}

	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.cmdCh <- cmd:
		<-cmd.done
	case <-done:
		fn()
	}
}

func (s *Session) run(ctx context.Context, done chan struct{}) {
	defer s.wg.Done()
	defer s.finish(done)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	var readErrors int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(&readErrors)
		case msg := <-s.feedCh:
			s.state.ApplyFeed(msg)
		case cmd := <-s.cmdCh:
			cmd.fn()
			close(cmd.done)
		}
	}
}

func (s *Session) tick(readErrors *int) {
	if s.config.Source == nil {
		return
	}

	motion, ok, err := s.config.Source.NextMotion()
	if err != nil {
		// Log the first failure and then every few seconds' worth.
		if *readErrors%300 == 0 {
			log.Warn("motion sample failed", "error", err, "count", *readErrors+1)
		}
		*readErrors++
		return
	}
	*readErrors = 0
	if !ok {
		return
	}
	s.state.ProcessMotion(motion)
}

func (s *Session) runFeed(ctx context.Context) {
	err := s.config.Feed.Run(ctx, func(msg feed.Message) {
		select {
		case s.feedCh <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		log.Warn("feed stopped", "error", err)
	}
}

// finish releases the motion source and stamps the session end.
func (s *Session) finish(done chan struct{}) {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.closeSource()

	if s.config.Store != nil {
		if err := s.config.Store.Sessions().End(s.id, time.Now()); err != nil {
			log.Warn("failed to end session", "id", s.id, "error", err)
		}
	}

	close(done)
	log.Info("session stopped", "id", s.id)
}

func (s *Session) closeSource() {
	if s.config.Source == nil {
		return
	}
	if err := s.config.Source.Close(); err != nil {
		log.Warn("failed to close motion source", "error", err)
	}
}
