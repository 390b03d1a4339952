package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"maskwatch/internal/capture"
	"maskwatch/internal/metrics"
	"maskwatch/internal/model"
	"maskwatch/internal/pipeline"
	"maskwatch/internal/storage"
)

// State of the scheduler. Two states only; transitions in Start and Stop.
type State string

const (
	StateStopped State = "stopped"
	StateActive  State = "active"
)

const (
	tickPeriod  = time.Second
	settleDelay = 2 * time.Second
	gateOwner   = "monitor"
)

// ErrAlreadyActive is returned by Start while monitoring is running.
var ErrAlreadyActive = errors.New("monitoring already active")

// Event is one message pushed to monitor subscribers.
type Event struct {
	Type      string            `json:"type"` // state | countdown | capture | error
	State     State             `json:"state,omitempty"`
	Remaining int               `json:"remaining,omitempty"`
	Capture   *pipeline.Outcome `json:"capture,omitempty"`
	Synthetic bool              `json:"synthetic,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Broadcaster delivers events to the presentation layer.
type Broadcaster interface {
	Broadcast(event interface{})
}

// Status is a point-in-time snapshot of the scheduler.
type Status struct {
	State           State      `json:"state"`
	IntervalSeconds int        `json:"interval_seconds"`
	Countdown       int        `json:"countdown_remaining"`
	Captures        int        `json:"capture_count"`
	LastCapture     *time.Time `json:"last_capture,omitempty"`
}

// Scheduler drives scheduled snapshots: while active, a one-second tick
// counts down to a capture/detect/accumulate cycle, then a fixed settle
// delay, then the countdown restarts. The settle delay is not adaptive; a
// backend slower than the interval can back captures up.
type Scheduler struct {
	source  capture.Source
	pipe    *pipeline.Pipeline
	gate    *capture.Gate
	hub     Broadcaster
	clock   Clock
	metrics *metrics.Metrics
	archive storage.Archive // optional

	mu          sync.Mutex
	state       State
	interval    int
	countdown   int
	captures    int
	lastCapture *time.Time
	cancel      context.CancelFunc
	done        chan struct{}
}

func NewScheduler(source capture.Source, pipe *pipeline.Pipeline, gate *capture.Gate, hub Broadcaster, clock Clock, m *metrics.Metrics, archive storage.Archive) *Scheduler {
	return &Scheduler{
		source:  source,
		pipe:    pipe,
		gate:    gate,
		hub:     hub,
		clock:   clock,
		metrics: m,
		archive: archive,
		state:   StateStopped,
	}
}

// Start moves Stopped -> Active. The camera is probed once first; a probe
// failure leaves the scheduler Stopped and is returned to the caller. Any
// positive interval is accepted.
func (s *Scheduler) Start(intervalSeconds int) error {
	if intervalSeconds <= 0 {
		return fmt.Errorf("interval must be positive, got %d", intervalSeconds)
	}

	s.mu.Lock()
	if s.state == StateActive {
		s.mu.Unlock()
		return ErrAlreadyActive
	}
	s.mu.Unlock()

	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 15*time.Second)
	_, err := s.source.Snapshot(probeCtx)
	cancelProbe()
	if err != nil {
		return fmt.Errorf("failed to acquire camera: %w", err)
	}

	s.gate.Acquire(gateOwner, func() { s.Stop() })

	ctx, cancel := context.WithCancel(context.Background())

	// Re-check under the lock: a concurrent Start may have won the race
	// while this call was probing the camera. Committing twice would
	// overwrite cancel/done and leak the first run loop.
	s.mu.Lock()
	if s.state == StateActive {
		s.mu.Unlock()
		cancel()
		return ErrAlreadyActive
	}
	s.state = StateActive
	s.interval = intervalSeconds
	s.countdown = intervalSeconds
	s.captures = 0
	s.lastCapture = nil
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.MonitorActive.Set(1)
	}
	s.broadcast(Event{Type: "state", State: StateActive, Remaining: intervalSeconds})
	log.WithField("interval", intervalSeconds).Info("monitoring started")

	go s.run(ctx, done)
	return nil
}

// Stop moves Active -> Stopped. Idempotent; stopping a stopped scheduler is
// a no-op. Pending scheduled captures are cancelled, but an in-flight detect
// call is not: its result still lands in the session stats when it returns.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state != StateActive {
		s.mu.Unlock()
		return
	}
	s.state = StateStopped
	cancel := s.cancel
	s.cancel = nil
	s.countdown = 0
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.gate.Release(gateOwner)

	if s.metrics != nil {
		s.metrics.MonitorActive.Set(0)
	}
	s.broadcast(Event{Type: "state", State: StateStopped})
	log.Info("monitoring stopped")
}

// Status reports the current scheduler snapshot.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:           s.state,
		IntervalSeconds: s.interval,
		Countdown:       s.countdown,
		Captures:        s.captures,
		LastCapture:     s.lastCapture,
	}
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := s.clock.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			remaining := s.decrement()
			s.broadcast(Event{Type: "countdown", State: StateActive, Remaining: remaining})
			if remaining > 0 {
				continue
			}

			s.capture(ctx)

			// Settling delay before the countdown restarts, so the
			// capture round trip has room to finish.
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(settleDelay):
			}
			s.reset()
		}
	}
}

func (s *Scheduler) decrement() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countdown > 0 {
		s.countdown--
	}
	return s.countdown
}

func (s *Scheduler) reset() {
	s.mu.Lock()
	s.countdown = s.interval
	s.mu.Unlock()
}

// capture runs one scheduled cycle. The snapshot honors the loop context,
// but once the frame is in hand the pipeline runs on a background context:
// a stop mid-capture does not cancel the in-flight detection, and its
// result is still applied.
func (s *Scheduler) capture(ctx context.Context) {
	frame, err := s.source.Snapshot(ctx)
	if err != nil {
		log.WithError(err).Error("scheduled snapshot failed")
		s.broadcast(Event{Type: "error", State: StateActive, Error: err.Error()})
		return
	}

	if s.archive != nil {
		if _, err := s.archive.SaveFrame(frame); err != nil {
			log.WithError(err).Warn("failed to archive frame")
		}
	}

	snap := capture.Capture{ID: uuid.New().String(), Bytes: frame}
	outcome := s.pipe.Process(context.Background(), snap, "monitor")

	now := outcome.Timestamp
	s.mu.Lock()
	s.captures++
	s.lastCapture = &now
	s.mu.Unlock()

	s.broadcast(Event{
		Type:      "capture",
		State:     StateActive,
		Capture:   outcome,
		Synthetic: outcome.Provenance == model.ProvenanceSynthetic,
	})
}

func (s *Scheduler) broadcast(e Event) {
	if s.hub != nil {
		s.hub.Broadcast(e)
	}
}
