// Package engine implements the announcement playback queue: ordering,
// preemption by live announcements, and recurrence.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
	"github.com/hammamikhairi/announcer/internal/render"
)

// State is the queue-level playback state.
type State int

const (
	StateIdle State = iota
	StatePlaying
)

// String returns a human-readable state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Option configures the engine.
type Option func(*Engine)

// WithClock sets the time source used for due checks and rescheduling.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithCatchUp sets how overdue recurring announcements are rescheduled.
func WithCatchUp(policy domain.CatchUp) Option {
	return func(e *Engine) {
		e.catchUp = policy
	}
}

// WithEvents sets the receiver of status notifications.
func WithEvents(pub domain.EventPublisher) Option {
	return func(e *Engine) {
		e.events = pub
	}
}

// WithMaxWake caps how long the engine sleeps before re-checking held
// announcements. It bounds the damage of wall-clock jumps.
func WithMaxWake(d time.Duration) Option {
	return func(e *Engine) {
		e.maxWake = d
	}
}

// Engine is the playback queue. It owns the pending list and the single
// in-flight playback; all of that state is guarded by mu. The speech sink
// is only ever called outside mu, from one playback goroutine at a time.
type Engine struct {
	sink    domain.SpeechSink
	log     *logger.Logger
	events  domain.EventPublisher
	now     func() time.Time
	catchUp domain.CatchUp
	maxWake time.Duration

	mu       sync.Mutex
	front    []domain.Announcement // interrupts, newest first
	pending  []domain.Announcement // sorted by (-priority, playTime), stable
	current  *playback
	started  bool
	closed   bool
	wake     *time.Timer
	outbox   []domain.Event
	flushing bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// playback is one in-flight Speak call.
type playback struct {
	a           domain.Announcement
	text        string
	cancel      context.CancelFunc
	interrupted bool
}

// Snapshot is a consistent view of the queue taken under one lock.
type Snapshot struct {
	State   State
	Current *domain.Announcement
	Pending []domain.Announcement // play order; held entries included
}

// New creates a playback engine. Nothing plays until Start is called;
// announcements enqueued before that are ordered as a batch.
func New(sink domain.SpeechSink, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		sink:    sink,
		log:     log,
		events:  discard{},
		now:     time.Now,
		maxWake: time.Minute,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins dispatching. Cancelling ctx closes the engine.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.closed {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.startNextLocked()
	e.mu.Unlock()
	e.flush()

	go func() {
		select {
		case <-ctx.Done():
			e.Close()
		case <-e.done:
		}
	}()
	e.log.Info("engine started (catch-up=%s)", e.catchUp)
}

// Enqueue inserts a into the pending list in (-priority, playTime) order,
// after any entries with an equal key, then starts playback if idle.
// An empty ID is replaced with a fresh one.
//
// Once the engine is started, an entry whose play time is still in the
// future is held until that time: a due entry further down the list
// plays first, even if the held one has a higher priority.
func (e *Engine) Enqueue(a domain.Announcement) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	e.pending = insertSorted(e.pending, a)
	text := render.Announcement(a)
	e.emitLocked(domain.Event{Kind: domain.EventQueued, Announcement: a, Text: text})
	e.log.Debug("engine: queued %s (priority=%d, at=%s, pending=%d)",
		a.ID, a.Priority, a.PlayTime.Format(domain.TimeLayout), len(e.front)+len(e.pending))
	e.startNextLocked()
	e.mu.Unlock()

	e.flush()
	return nil
}

// Interrupt stops the current playback, if any, and puts a at the very
// front of the queue regardless of its priority. The caller does not wait
// for the old playback to end.
func (e *Engine) Interrupt(a domain.Announcement) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrClosed
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	e.emitLocked(domain.Event{Kind: domain.EventInterrupt, Announcement: a, Text: render.Announcement(a)})
	if p := e.current; p != nil {
		e.log.Info("engine: interrupting %s for %s", p.a.ID, a.ID)
		p.interrupted = true
		p.cancel()
	}
	e.front = append([]domain.Announcement{a}, e.front...)
	e.startNextLocked()
	e.mu.Unlock()

	e.flush()
	return nil
}

// Skip stops the current playback without queueing anything.
// It reports whether something was playing.
func (e *Engine) Skip() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := e.current
	if p == nil {
		return false
	}
	e.log.Info("engine: skipping %s", p.a.ID)
	p.interrupted = true
	p.cancel()
	return true
}

// Remove drops a queued (not playing) announcement by ID.
func (e *Engine) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, a := range e.front {
		if a.ID == id {
			e.front = append(e.front[:i], e.front[i+1:]...)
			return nil
		}
	}
	for i, a := range e.pending {
		if a.ID == id {
			e.pending = append(e.pending[:i], e.pending[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Pending returns the queued announcements in play order.
func (e *Engine) Pending() []domain.Announcement {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.queuedLocked()
}

// Current returns the announcement being played, if any.
func (e *Engine) Current() (domain.Announcement, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return domain.Announcement{}, false
	}
	return e.current.a, true
}

// State reports whether a playback is in flight.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Snapshot returns the current and pending announcements atomically.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{State: e.stateLocked(), Pending: e.queuedLocked()}
	if e.current != nil {
		cur := e.current.a
		s.Current = &cur
	}
	return s
}

// WaitIdle blocks until nothing is playing, nothing queued is due, and
// every emitted event has been delivered. Held future announcements do not
// count. It must not be called from an event subscriber.
func (e *Engine) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		e.mu.Lock()
		drained := len(e.outbox) == 0 && !e.flushing
		queued := len(e.front) > 0 || e.hasDueLocked(e.now())
		idle := e.current == nil && drained && (!queued || e.closed)
		e.mu.Unlock()
		if idle {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops the current playback, drops everything pending, and waits
// for the playback goroutine to return. Later calls are no-ops.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		e.wg.Wait()
		return nil
	}
	e.closed = true
	close(e.done)
	if p := e.current; p != nil {
		p.interrupted = true
		p.cancel()
	}
	if e.wake != nil {
		e.wake.Stop()
		e.wake = nil
	}
	dropped := len(e.front) + len(e.pending)
	e.front, e.pending = nil, nil
	e.mu.Unlock()

	e.wg.Wait()
	e.flush()
	e.log.Info("engine closed (%d pending dropped)", dropped)
	return nil
}

func (e *Engine) stateLocked() State {
	if e.current != nil {
		return StatePlaying
	}
	return StateIdle
}

func (e *Engine) queuedLocked() []domain.Announcement {
	out := make([]domain.Announcement, 0, len(e.front)+len(e.pending))
	out = append(out, e.front...)
	return append(out, e.pending...)
}

func (e *Engine) hasDueLocked(now time.Time) bool {
	for _, a := range e.pending {
		if a.IsDue(now) {
			return true
		}
	}
	return false
}

type discard struct{}

func (discard) Publish(domain.Event) {}
