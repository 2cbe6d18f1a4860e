package domain

import "context"

// SpeechSink turns text into audible output. Speak blocks until playback
// ends. Cancelling ctx is the stop request: implementations should return
// promptly, but finishing the current segment first is acceptable.
// A nil error after cancellation is allowed.
type SpeechSink interface {
	Speak(ctx context.Context, text string, voiceID int) error
}

// EventPublisher receives status notifications. Publish must not block
// for long and must not assume any particular caller goroutine.
type EventPublisher interface {
	Publish(ev Event)
}

// ScheduleStore holds the watch list of scheduled announcements.
// Implementations can be in-memory, file-backed, or anything else.
type ScheduleStore interface {
	Save(ctx context.Context, a Announcement) error
	Load(ctx context.Context, id string) (Announcement, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Announcement, error)
}

// CommandParser converts raw operator input into commands.
type CommandParser interface {
	Parse(ctx context.Context, input string) (Command, error)
}
