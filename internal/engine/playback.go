package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/render"
)

// startNextLocked moves the next eligible announcement into the current
// slot and starts its playback goroutine. Interrupts come first, then the
// first due entry in queue order. When nothing is due, a wake timer is
// armed for the earliest held entry. Must be called with e.mu held.
func (e *Engine) startNextLocked() {
	if !e.started || e.closed || e.current != nil {
		return
	}

	var (
		a  domain.Announcement
		ok bool
	)
	if len(e.front) > 0 {
		a, e.front, ok = e.front[0], e.front[1:], true
	} else {
		e.pending, a, ok = popDue(e.pending, e.now())
	}
	if !ok {
		e.armWakeLocked()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &playback{a: a, text: render.Announcement(a), cancel: cancel}
	e.current = p
	e.emitLocked(domain.Event{Kind: domain.EventPlaying, Announcement: a, Text: p.text})
	e.log.Debug("engine: playing %s (voice=%d): %s", a.ID, a.VoiceID, truncate(p.text, 60))

	e.wg.Add(1)
	go e.play(ctx, p)
}

// play runs on its own goroutine, outside the lock.
func (e *Engine) play(ctx context.Context, p *playback) {
	defer e.wg.Done()

	err := e.speak(ctx, p)
	e.complete(p, err)
}

// speak calls the sink, turning a panic into a playback error so a broken
// sink cannot take the queue down.
func (e *Engine) speak(ctx context.Context, p *playback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("speech sink panic: %v", r)
		}
	}()
	return e.sink.Speak(ctx, p.text, p.a.VoiceID)
}

// complete is the single completion path for a playback. It emits exactly
// one outcome event, reschedules recurring announcements, clears the
// current slot and advances the queue.
func (e *Engine) complete(p *playback, err error) {
	e.mu.Lock()
	if e.current != p {
		e.mu.Unlock()
		return
	}
	p.cancel()

	ev := domain.Event{Announcement: p.a, Text: p.text}
	switch {
	case p.interrupted:
		ev.Kind = domain.EventInterrupted
		e.log.Debug("engine: %s interrupted", p.a.ID)
	case err != nil:
		ev.Kind = domain.EventFailed
		ev.Err = err
		e.log.Error("engine: playing %s failed: %v", p.a.ID, err)
	default:
		ev.Kind = domain.EventFinished
		e.log.Debug("engine: %s finished", p.a.ID)
	}
	e.emitLocked(ev)

	if !e.closed && p.a.Repeat != domain.RepeatNone {
		if next, ok := p.a.Next(e.now(), e.catchUp); ok {
			e.pending = insertSorted(e.pending, next)
			e.emitLocked(domain.Event{Kind: domain.EventRescheduled, Announcement: next, Text: p.text})
			e.log.Info("engine: %s rescheduled for %s", next.ID, next.PlayTime.Format(domain.TimeLayout))
		} else {
			e.emitLocked(domain.Event{Kind: domain.EventRetired, Announcement: p.a, Text: p.text})
			e.log.Info("engine: %s reached its repeat end", p.a.ID)
		}
	}

	e.current = nil
	e.startNextLocked()
	e.mu.Unlock()

	e.flush()
}

// armWakeLocked schedules a retry at the earliest held play time, capped
// at maxWake. Must be called with e.mu held.
func (e *Engine) armWakeLocked() {
	if e.wake != nil {
		e.wake.Stop()
		e.wake = nil
	}
	at, ok := earliest(e.pending)
	if !ok {
		return
	}

	d := at.Sub(e.now())
	if d < 0 {
		d = 0
	}
	if e.maxWake > 0 && d > e.maxWake {
		d = e.maxWake
	}
	e.wake = time.AfterFunc(d, e.onWake)
}

func (e *Engine) onWake() {
	e.mu.Lock()
	e.startNextLocked()
	e.mu.Unlock()
	e.flush()
}

// emitLocked stamps ev and appends it to the outbox. Must be called with
// e.mu held; delivery happens in flush.
func (e *Engine) emitLocked(ev domain.Event) {
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.outbox = append(e.outbox, ev)
}

// flush delivers queued events outside the lock. Only one goroutine
// delivers at a time, so subscribers see events in the order they were
// emitted, and a subscriber may call back into the engine.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.flushing {
		e.mu.Unlock()
		return
	}
	e.flushing = true
	for len(e.outbox) > 0 {
		batch := e.outbox
		e.outbox = nil
		e.mu.Unlock()

		for _, ev := range batch {
			e.events.Publish(ev)
		}

		e.mu.Lock()
	}
	e.flushing = false
	e.mu.Unlock()
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
