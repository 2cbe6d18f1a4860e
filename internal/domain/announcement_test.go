package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNextDaily(t *testing.T) {
	a := Announcement{ID: "a", Template: "x", PlayTime: at("2024-03-01 07:30"), Repeat: RepeatDaily}

	next, ok := a.Next(at("2024-03-01 07:31"), CatchUpOne)
	require.True(t, ok)
	assert.Equal(t, at("2024-03-02 07:30"), next.PlayTime)
	assert.Equal(t, "a", next.ID)
	assert.Equal(t, at("2024-03-01 07:30"), a.PlayTime, "receiver must not change")
}

func TestNextDailyBoundedByRepeatEnd(t *testing.T) {
	a := Announcement{PlayTime: at("2024-03-01 07:30"), Repeat: RepeatDaily}

	a.RepeatEnd = at("2024-03-02 07:30")
	_, ok := a.Next(a.PlayTime, CatchUpOne)
	assert.True(t, ok, "repeat end equal to next play time is inclusive")

	a.RepeatEnd = at("2024-03-02 07:29")
	_, ok = a.Next(a.PlayTime, CatchUpOne)
	assert.False(t, ok)
}

func TestNextWeeklyUntilEnd(t *testing.T) {
	a := Announcement{
		PlayTime:  at("2024-01-01 08:00"),
		Repeat:    RepeatWeekly,
		RepeatEnd: at("2024-01-10 00:00"),
	}

	next, ok := a.Next(a.PlayTime, CatchUpOne)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-08 08:00"), next.PlayTime)

	_, ok = next.Next(next.PlayTime, CatchUpOne)
	assert.False(t, ok, "2024-01-15 is past the repeat end")
}

func TestNextOneShot(t *testing.T) {
	a := Announcement{PlayTime: at("2024-01-01 08:00")}
	_, ok := a.Next(a.PlayTime, CatchUpOne)
	assert.False(t, ok)
}

func TestNextCatchUpPolicies(t *testing.T) {
	a := Announcement{PlayTime: at("2024-01-01 08:00"), Repeat: RepeatDaily}
	now := at("2024-01-05 09:00")

	one, ok := a.Next(now, CatchUpOne)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-02 08:00"), one.PlayTime)

	skip, ok := a.Next(now, CatchUpSkip)
	require.True(t, ok)
	assert.Equal(t, at("2024-01-06 08:00"), skip.PlayTime)
}

func TestNextClonesVariables(t *testing.T) {
	a := Announcement{
		PlayTime:  at("2024-01-01 08:00"),
		Repeat:    RepeatDaily,
		Variables: map[string]string{"train_no": "12"},
	}
	next, ok := a.Next(a.PlayTime, CatchUpOne)
	require.True(t, ok)

	next.Variables["train_no"] = "13"
	assert.Equal(t, "12", a.Variables["train_no"])
}

func TestNextKeepsWallClockAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	a := Announcement{
		PlayTime: time.Date(2024, 3, 30, 8, 0, 0, 0, loc),
		Repeat:   RepeatDaily,
	}
	next, ok := a.Next(a.PlayTime, CatchUpOne)
	require.True(t, ok)
	assert.Equal(t, 8, next.PlayTime.Hour())
	assert.Equal(t, 31, next.PlayTime.Day())
}

func TestLess(t *testing.T) {
	a := Announcement{Priority: 1, PlayTime: at("2024-01-01 10:00")}
	b := Announcement{Priority: 5, PlayTime: at("2024-01-01 10:05")}
	c := Announcement{Priority: 5, PlayTime: at("2024-01-01 10:01")}

	assert.True(t, b.Less(a))
	assert.True(t, c.Less(b))
	assert.False(t, b.Less(c))
	assert.False(t, c.Less(c), "equal keys are not less")
}

func TestIsDue(t *testing.T) {
	a := Announcement{PlayTime: at("2024-01-01 10:00")}
	assert.True(t, a.IsDue(at("2024-01-01 10:00")))
	assert.True(t, a.IsDue(at("2024-01-01 10:01")))
	assert.False(t, a.IsDue(at("2024-01-01 09:59")))
}

func TestConstructors(t *testing.T) {
	now := at("2024-01-01 10:00")

	s := NewAnnouncement("Train {train_no}", now)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, PriorityScheduled, s.Priority)

	l := LiveAnnouncement("Attention please", now)
	assert.NotEmpty(t, l.ID)
	assert.NotEqual(t, s.ID, l.ID)
	assert.Equal(t, PriorityLive, l.Priority)
	assert.Equal(t, now, l.PlayTime)
}

func TestValidate(t *testing.T) {
	base := Announcement{Template: "hello", PlayTime: at("2024-01-01 10:00")}

	tests := []struct {
		name   string
		mutate func(*Announcement)
		ok     bool
	}{
		{"valid one-shot", func(a *Announcement) {}, true},
		{"empty template", func(a *Announcement) { a.Template = "  " }, false},
		{"missing play time", func(a *Announcement) { a.PlayTime = time.Time{} }, false},
		{"repeat end before play time", func(a *Announcement) {
			a.Repeat = RepeatDaily
			a.RepeatEnd = at("2023-12-31 10:00")
		}, false},
		{"repeat end ignored for one-shot", func(a *Announcement) {
			a.RepeatEnd = at("2023-12-31 10:00")
		}, true},
		{"unbounded repeat", func(a *Announcement) { a.Repeat = RepeatWeekly }, true},
		{"bad repeat", func(a *Announcement) { a.Repeat = Repeat(7) }, false},
		{"negative voice", func(a *Announcement) { a.VoiceID = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			tt.mutate(&a)
			err := a.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidAnnouncement)
			}
		})
	}
}

func TestParseRepeat(t *testing.T) {
	for in, want := range map[string]Repeat{
		"":       RepeatNone,
		"None":   RepeatNone,
		"daily":  RepeatDaily,
		"WEEKLY": RepeatWeekly,
	} {
		got, err := ParseRepeat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRepeat("monthly")
	assert.ErrorIs(t, err, ErrInvalidAnnouncement)
}

func TestEventMessages(t *testing.T) {
	assert.Equal(t, "Announcement queued: Train 12", Event{Kind: EventQueued, Text: "Train 12"}.Message())
	assert.Equal(t, "Playing: Train 12", Event{Kind: EventPlaying, Text: "Train 12"}.Message())
	assert.Equal(t, "Live announcement started...", Event{Kind: EventInterrupt}.Message())
	assert.Equal(t, "Error playing announcement: boom",
		Event{Kind: EventFailed, Err: errors.New("boom")}.Message())
	assert.True(t, EventFailed.Completion())
	assert.False(t, EventRescheduled.Completion())
}
