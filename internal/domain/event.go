package domain

import (
	"fmt"
	"time"
)

// EventKind identifies a status notification emitted by the playback engine.
type EventKind int

const (
	EventQueued      EventKind = iota // accepted into the pending list
	EventInterrupt                    // live announcement preempting playback
	EventPlaying                      // handed to the speech sink
	EventFinished                     // sink returned without error
	EventInterrupted                  // sink returned after a stop request
	EventFailed                       // sink returned an error
	EventRescheduled                  // next occurrence of a recurring announcement queued
	EventRetired                      // recurrence ended at RepeatEnd
)

// String returns a human-readable event kind.
func (k EventKind) String() string {
	switch k {
	case EventQueued:
		return "queued"
	case EventInterrupt:
		return "interrupt"
	case EventPlaying:
		return "playing"
	case EventFinished:
		return "finished"
	case EventInterrupted:
		return "interrupted"
	case EventFailed:
		return "failed"
	case EventRescheduled:
		return "rescheduled"
	case EventRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Completion reports whether the kind ends a playback attempt. Exactly one
// completion event is emitted per Playing event.
func (k EventKind) Completion() bool {
	return k == EventFinished || k == EventInterrupted || k == EventFailed
}

// Event is a one-way status notification. Announcement is a copy; for
// EventRescheduled it is the next occurrence.
type Event struct {
	Kind         EventKind
	Announcement Announcement
	Text         string // rendered text
	Err          error  // set for EventFailed
	At           time.Time
}

// Message returns the status-bar line for the event.
func (e Event) Message() string {
	switch e.Kind {
	case EventQueued:
		return "Announcement queued: " + e.Text
	case EventInterrupt:
		return "Live announcement started..."
	case EventPlaying:
		return "Playing: " + e.Text
	case EventFinished:
		return "Finished: " + e.Text
	case EventInterrupted:
		return "Interrupted: " + e.Text
	case EventFailed:
		return fmt.Sprintf("Error playing announcement: %v", e.Err)
	case EventRescheduled:
		return fmt.Sprintf("Next %s: %s at %s", e.Announcement.Repeat, e.Text,
			e.Announcement.PlayTime.Format(TimeLayout))
	case EventRetired:
		return "Recurrence ended: " + e.Text
	default:
		return e.Text
	}
}
