// Package schedule drives the playback engine from a watch list of
// scheduled announcements: the periodic due check, the YAML schedule file
// and its hot reload.
package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
	"github.com/hammamikhairi/announcer/internal/render"
)

// Enqueuer accepts announcements for playback.
type Enqueuer interface {
	Enqueue(a domain.Announcement) error
}

// Remover is an optional interface an Enqueuer can satisfy to let Sync
// withdraw a queued occurrence whose schedule entry changed.
type Remover interface {
	Remove(id string) error
}

// Prefetcher warms the speech cache for text that will be spoken soon.
type Prefetcher interface {
	Prefetch(ctx context.Context, voiceID int, texts ...string)
}

// CheckerOption configures the Checker.
type CheckerOption func(*Checker)

// WithTickInterval sets how often the watch list is scanned.
func WithTickInterval(d time.Duration) CheckerOption {
	return func(c *Checker) {
		c.interval = d
	}
}

// WithClock sets the time source used for due checks.
func WithClock(now func() time.Time) CheckerOption {
	return func(c *Checker) {
		c.now = now
	}
}

// WithPrefetch pre-synthesizes entries that become due within the next tick.
func WithPrefetch(p Prefetcher) CheckerOption {
	return func(c *Checker) {
		c.prefetch = p
	}
}

// Checker periodically hands due watch-list entries to the engine.
//
// Once handed over, an entry is in engine custody and is not handed again.
// One-shot entries leave the watch list at hand-over. Recurring entries
// stay listed: HandleEvent mirrors the engine's rescheduled play time and
// drops them when their recurrence ends.
type Checker struct {
	store    domain.ScheduleStore
	queue    Enqueuer
	log      *logger.Logger
	interval time.Duration
	now      func() time.Time
	prefetch Prefetcher

	mu         sync.Mutex
	custody    map[string]bool
	deferred   map[string]edit      // file edits waiting for a playback to end
	synced     map[string]string    // id -> fingerprint of the last synced file entry
	prefetched map[string]time.Time // id -> play time already prefetched
}

// edit is a schedule file change to an entry.
type edit struct {
	a       domain.Announcement
	removed bool
}

// NewChecker creates a due-checker over store feeding queue.
func NewChecker(store domain.ScheduleStore, queue Enqueuer, log *logger.Logger, opts ...CheckerOption) *Checker {
	c := &Checker{
		store:      store,
		queue:      queue,
		log:        log,
		interval:   time.Minute,
		now:        time.Now,
		custody:    make(map[string]bool),
		deferred:   make(map[string]edit),
		synced:     make(map[string]string),
		prefetched: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run checks once immediately, then on every tick. Blocks until ctx is
// cancelled. Intended to be called as a goroutine.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.log.Info("due-checker started (interval=%s)", c.interval)
	c.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			c.log.Info("due-checker stopped")
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

// Check runs one scan of the watch list and returns how many entries were
// handed to the engine.
func (c *Checker) Check(ctx context.Context) int {
	list, err := c.store.List(ctx)
	if err != nil {
		c.log.Error("due-checker: listing watch list: %v", err)
		return 0
	}

	now := c.now()
	handed := 0
	for _, a := range list {
		if c.inCustody(a.ID) {
			continue
		}
		if !a.IsDue(now) {
			c.maybePrefetch(ctx, a, now)
			continue
		}

		// Claim custody before Enqueue: the engine may publish a
		// completion event before Enqueue returns.
		c.setCustody(a.ID, true)
		if err := c.queue.Enqueue(a); err != nil {
			c.setCustody(a.ID, false)
			if errors.Is(err, domain.ErrClosed) {
				c.log.Warn("due-checker: engine closed, stopping scan")
				return handed
			}
			c.log.Error("due-checker: enqueue %s: %v", a.ID, err)
			continue
		}
		handed++

		if a.Repeat == domain.RepeatNone {
			if err := c.store.Delete(ctx, a.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				c.log.Error("due-checker: removing %s from watch list: %v", a.ID, err)
			}
			c.setCustody(a.ID, false)
		}
		c.log.Debug("due-checker: handed %s to the engine (repeat=%s)", a.ID, a.Repeat)
	}

	if handed > 0 {
		c.log.Info("due-checker: %d announcement(s) due", handed)
	}
	return handed
}

// HandleEvent keeps the watch list in step with the engine for recurring
// entries in custody. Subscribe it to the engine's event bus.
//
// The store is updated before custody is released, so a concurrent Check
// never sees a stale entry out of custody.
func (c *Checker) HandleEvent(ev domain.Event) {
	id := ev.Announcement.ID
	if !c.inCustody(id) {
		return
	}

	ctx := context.Background()
	switch ev.Kind {
	case domain.EventRescheduled:
		if c.applyDeferred(ctx, id, true) {
			return
		}
		if err := c.store.Save(ctx, ev.Announcement); err != nil {
			c.log.Error("due-checker: mirroring %s: %v", id, err)
		}
	case domain.EventRetired:
		if c.applyDeferred(ctx, id, false) {
			return
		}
		if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			c.log.Error("due-checker: retiring %s: %v", id, err)
		}
		c.forget(id)
		c.setCustody(id, false)
	}
}

// applyDeferred applies a file edit that arrived while id was playing.
// queued is true when the engine holds a next occurrence that must be
// withdrawn first. It reports whether an edit was applied.
func (c *Checker) applyDeferred(ctx context.Context, id string, queued bool) bool {
	c.mu.Lock()
	e, ok := c.deferred[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	if queued && !c.withdraw(id) {
		return false
	}

	// The occurrence that just played is not replayed with the new text.
	if _, err := c.settle(ctx, id, e, c.now()); err != nil {
		c.log.Error("due-checker: applying edit of %s: %v", id, err)
	}
	c.setCustody(id, false)
	c.log.Info("due-checker: applied deferred edit of %s", id)
	return true
}

// settle writes a file edit to the watch list: a removal deletes the
// entry, a change saves it (rebased past missed occurrences, and past
// played when that is set). It reports whether the entry is listed
// afterwards. It does not touch custody.
func (c *Checker) settle(ctx context.Context, id string, e edit, played time.Time) (bool, error) {
	c.mu.Lock()
	delete(c.deferred, id)
	c.mu.Unlock()

	if e.removed {
		c.forget(id)
		if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		return false, nil
	}

	entry, kept := c.rebase(e.a, c.now())
	if kept && !played.IsZero() && !entry.PlayTime.After(played) {
		entry, kept = entry.Next(played, domain.CatchUpSkip)
	}
	if !kept {
		c.log.Debug("due-checker: %s was due at %s, not replaying", id, e.a.PlayTime.Format(domain.TimeLayout))
		if err := c.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
	} else if err := c.store.Save(ctx, entry); err != nil {
		return false, err
	}

	c.mu.Lock()
	c.synced[id] = fingerprint(e.a)
	delete(c.prefetched, id)
	c.mu.Unlock()
	return kept, nil
}

// Sync replaces the file-sourced part of the watch list with list.
// Unchanged entries are left alone, so recurring entries in engine custody
// keep their rescheduled play time. A changed or removed entry in custody
// is withdrawn from the engine when possible; if it is playing, the edit
// is applied when that playback completes.
func (c *Checker) Sync(ctx context.Context, list []domain.Announcement) error {
	want := make(map[string]domain.Announcement, len(list))
	for _, a := range list {
		want[a.ID] = a
	}

	c.mu.Lock()
	prev := make(map[string]string, len(c.synced))
	for id, fp := range c.synced {
		prev[id] = fp
	}
	c.mu.Unlock()

	var added, changed, removed, stale, deferred int

	// update applies e now, or defers it while the entry is playing.
	update := func(id string, e edit) (applied, kept bool, err error) {
		if !c.withdraw(id) {
			c.mu.Lock()
			c.deferred[id] = e
			c.mu.Unlock()
			deferred++
			return false, false, nil
		}
		kept, err = c.settle(ctx, id, e, time.Time{})
		if err != nil {
			return false, false, err
		}
		c.setCustody(id, false)
		return true, kept, nil
	}

	for id := range prev {
		if _, ok := want[id]; ok {
			continue
		}
		applied, _, err := update(id, edit{removed: true})
		if err != nil {
			return err
		}
		if applied {
			removed++
		}
	}

	for _, a := range list {
		fp := fingerprint(a)
		old, known := prev[a.ID]
		if known && old == fp {
			// An edit reverted before it could be applied.
			c.mu.Lock()
			delete(c.deferred, a.ID)
			c.mu.Unlock()
			continue
		}

		applied, kept, err := update(a.ID, edit{a: a})
		switch {
		case err != nil:
			return err
		case !applied:
		case !kept:
			stale++
		case known:
			changed++
		default:
			added++
		}
	}

	c.log.Info("schedule synced: %d added, %d changed, %d removed, %d past, %d deferred",
		added, changed, removed, stale, deferred)
	return nil
}

// rebase moves an entry that was missed by more than one tick, typically
// while the process was not running. One-shots are dropped; recurring
// entries jump to their next future occurrence.
func (c *Checker) rebase(a domain.Announcement, now time.Time) (domain.Announcement, bool) {
	if !a.PlayTime.Before(now.Add(-c.interval)) {
		return a, true
	}
	return a.Next(now, domain.CatchUpSkip)
}

// InCustody reports whether the engine currently owns the entry.
func (c *Checker) InCustody(id string) bool {
	return c.inCustody(id)
}

// withdraw pulls id's queued occurrence back from the engine. Custody is
// left as is; callers release it after updating the store. It reports
// false when the engine cannot give the entry back, usually because it
// is playing.
func (c *Checker) withdraw(id string) bool {
	if !c.inCustody(id) {
		return true
	}
	r, ok := c.queue.(Remover)
	if !ok {
		return false
	}
	if err := r.Remove(id); err != nil {
		c.log.Debug("due-checker: %s still with the engine: %v", id, err)
		return false
	}
	return true
}

func (c *Checker) forget(id string) {
	c.mu.Lock()
	delete(c.synced, id)
	delete(c.prefetched, id)
	c.mu.Unlock()
}

func (c *Checker) maybePrefetch(ctx context.Context, a domain.Announcement, now time.Time) {
	if c.prefetch == nil || a.PlayTime.Sub(now) > c.interval {
		return
	}
	c.mu.Lock()
	done := c.prefetched[a.ID].Equal(a.PlayTime)
	c.prefetched[a.ID] = a.PlayTime
	c.mu.Unlock()
	if done {
		return
	}
	c.log.Debug("due-checker: prefetching %s (due %s)", a.ID, a.PlayTime.Format(domain.TimeLayout))
	c.prefetch.Prefetch(ctx, a.VoiceID, render.Announcement(a))
}

func (c *Checker) inCustody(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.custody[id]
}

func (c *Checker) setCustody(id string, v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v {
		c.custody[id] = true
	} else {
		delete(c.custody, id)
	}
}
