// Package domain defines the core types and interfaces for the announcer.
// All other packages depend on domain; domain depends on nothing but uuid.
package domain

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Priority tiers used by the producers. Higher value = more urgent.
const (
	PriorityScheduled = 1
	PriorityLive      = 10
)

// Announcement is a schedulable, speakable unit of text.
//
// Announcements are values. The engine never mutates one in place: a
// recurring announcement's next occurrence is a new value with the same ID.
type Announcement struct {
	ID        string
	Template  string            // may contain {name} placeholders
	Variables map[string]string // placeholder values
	PlayTime  time.Time         // when due
	Repeat    Repeat
	RepeatEnd time.Time // zero = unbounded
	VoiceID   int       // index into the configured voice list
	Priority  int
}

// NewAnnouncement creates a scheduled-tier announcement with a fresh ID.
func NewAnnouncement(template string, playTime time.Time) Announcement {
	return Announcement{
		ID:       uuid.NewString(),
		Template: template,
		PlayTime: playTime,
		Priority: PriorityScheduled,
	}
}

// LiveAnnouncement creates a maximum-priority announcement due now.
func LiveAnnouncement(text string, now time.Time) Announcement {
	return Announcement{
		ID:       uuid.NewString(),
		Template: text,
		PlayTime: now,
		Priority: PriorityLive,
	}
}

// IsDue reports whether the announcement's play time has been reached.
func (a Announcement) IsDue(now time.Time) bool {
	return !a.PlayTime.After(now)
}

// Less orders announcements by (-priority, playTime): higher priority
// first, ties broken by earlier play time.
func (a Announcement) Less(b Announcement) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.PlayTime.Before(b.PlayTime)
}

// Next returns the following occurrence of a recurring announcement.
// ok is false for one-shot announcements and when the next play time
// would fall after RepeatEnd.
func (a Announcement) Next(now time.Time, policy CatchUp) (next Announcement, ok bool) {
	if a.Repeat == RepeatNone {
		return Announcement{}, false
	}

	next = a
	next.Variables = maps.Clone(a.Variables)
	next.PlayTime = a.Repeat.Advance(a.PlayTime)
	if policy == CatchUpSkip {
		for !next.PlayTime.After(now) {
			next.PlayTime = a.Repeat.Advance(next.PlayTime)
		}
	}

	if !a.RepeatEnd.IsZero() && next.PlayTime.After(a.RepeatEnd) {
		return Announcement{}, false
	}
	return next, true
}

// Validate checks the producer-side contract: a non-empty template, a
// known repeat policy, and a repeat end not before the play time.
// The engine itself never calls this.
func (a Announcement) Validate() error {
	if strings.TrimSpace(a.Template) == "" {
		return fmt.Errorf("%w: empty template", ErrInvalidAnnouncement)
	}
	if a.PlayTime.IsZero() {
		return fmt.Errorf("%w: missing play time", ErrInvalidAnnouncement)
	}
	if a.Repeat < RepeatNone || a.Repeat > RepeatWeekly {
		return fmt.Errorf("%w: unknown repeat policy %d", ErrInvalidAnnouncement, a.Repeat)
	}
	if a.Repeat != RepeatNone && !a.RepeatEnd.IsZero() && a.RepeatEnd.Before(a.PlayTime) {
		return fmt.Errorf("%w: repeat end %s is before play time %s", ErrInvalidAnnouncement,
			a.RepeatEnd.Format(TimeLayout), a.PlayTime.Format(TimeLayout))
	}
	if a.VoiceID < 0 {
		return fmt.Errorf("%w: negative voice %d", ErrInvalidAnnouncement, a.VoiceID)
	}
	return nil
}

// TimeLayout is the wall-clock layout used in schedule files and status lines.
const TimeLayout = "2006-01-02 15:04"

// Repeat is the recurrence policy of an announcement.
type Repeat int

const (
	RepeatNone Repeat = iota
	RepeatDaily
	RepeatWeekly
)

// String returns a human-readable repeat policy.
func (r Repeat) String() string {
	switch r {
	case RepeatNone:
		return "none"
	case RepeatDaily:
		return "daily"
	case RepeatWeekly:
		return "weekly"
	default:
		return "unknown"
	}
}

// ParseRepeat converts a repeat name to a Repeat. Empty means none.
func ParseRepeat(s string) (Repeat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "once":
		return RepeatNone, nil
	case "daily", "day":
		return RepeatDaily, nil
	case "weekly", "week":
		return RepeatWeekly, nil
	default:
		return RepeatNone, fmt.Errorf("%w: unknown repeat %q", ErrInvalidAnnouncement, s)
	}
}

// Advance moves t forward by one recurrence interval. Calendar arithmetic
// keeps the wall-clock time across DST changes.
func (r Repeat) Advance(t time.Time) time.Time {
	switch r {
	case RepeatDaily:
		return t.AddDate(0, 0, 1)
	case RepeatWeekly:
		return t.AddDate(0, 0, 7)
	default:
		return t
	}
}

// CatchUp decides how an overdue recurring announcement is rescheduled.
type CatchUp int

const (
	// CatchUpOne advances exactly one interval per completed playback,
	// however late the playback was.
	CatchUpOne CatchUp = iota
	// CatchUpSkip advances until the next occurrence is in the future.
	CatchUpSkip
)

// String returns the config name of the policy.
func (c CatchUp) String() string {
	switch c {
	case CatchUpOne:
		return "one"
	case CatchUpSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// ParseCatchUp converts a config value to a CatchUp policy.
func ParseCatchUp(s string) (CatchUp, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one":
		return CatchUpOne, nil
	case "skip":
		return CatchUpSkip, nil
	default:
		return CatchUpOne, fmt.Errorf("unknown catch-up policy %q", s)
	}
}
