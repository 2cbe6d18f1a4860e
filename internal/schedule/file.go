package schedule

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hammamikhairi/announcer/internal/domain"
)

// File is the on-disk schedule:
//
//	announcements:
//	  - id: platform-4
//	    text: "Train {train_no} departs from platform 4"
//	    at: "2024-01-01 08:00"
//	    repeat: daily
//	    repeat_end: "2024-06-30"
//	    voice: 1
//	    priority: 3
//	    variables:
//	      train_no: "IC 512"
type File struct {
	Announcements []Entry `yaml:"announcements"`
}

// Entry is one scheduled announcement as written by hand.
type Entry struct {
	ID        string            `yaml:"id,omitempty"`
	Text      string            `yaml:"text"`
	At        string            `yaml:"at"`
	Repeat    string            `yaml:"repeat,omitempty"`
	RepeatEnd string            `yaml:"repeat_end,omitempty"`
	Voice     int               `yaml:"voice,omitempty"`
	Priority  int               `yaml:"priority,omitempty"`
	Variables map[string]string `yaml:"variables,omitempty"`
}

// Priority bounds accepted in schedule files.
const (
	MinPriority = 1
	MaxPriority = 10
)

var timeLayouts = []string{domain.TimeLayout, "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02"}

// ParseTime accepts "2006-01-02 15:04" (and a few close variants) in loc,
// or RFC 3339 with an explicit offset. A bare date means midnight.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: cannot parse time %q (want %q)", domain.ErrInvalidAnnouncement, s, domain.TimeLayout)
}

// Announcement converts and validates the entry.
func (e Entry) Announcement(loc *time.Location) (domain.Announcement, error) {
	playTime, err := ParseTime(e.At, loc)
	if err != nil {
		return domain.Announcement{}, err
	}
	repeat, err := domain.ParseRepeat(e.Repeat)
	if err != nil {
		return domain.Announcement{}, err
	}

	a := domain.Announcement{
		ID:        strings.TrimSpace(e.ID),
		Template:  e.Text,
		Variables: e.Variables,
		PlayTime:  playTime,
		Repeat:    repeat,
		VoiceID:   e.Voice,
		Priority:  e.Priority,
	}
	if e.RepeatEnd != "" {
		if a.RepeatEnd, err = ParseTime(e.RepeatEnd, loc); err != nil {
			return domain.Announcement{}, err
		}
	}
	if a.Priority == 0 {
		a.Priority = domain.PriorityScheduled
	}
	if a.Priority < MinPriority || a.Priority > MaxPriority {
		return domain.Announcement{}, fmt.Errorf("%w: priority %d outside %d..%d",
			domain.ErrInvalidAnnouncement, a.Priority, MinPriority, MaxPriority)
	}
	if err := a.Validate(); err != nil {
		return domain.Announcement{}, err
	}
	if a.ID == "" {
		a.ID = contentID(a)
	}
	return a, nil
}

// EntryFor converts an announcement back to its file form.
func EntryFor(a domain.Announcement) Entry {
	e := Entry{
		ID:        a.ID,
		Text:      a.Template,
		At:        a.PlayTime.Format(domain.TimeLayout),
		Voice:     a.VoiceID,
		Priority:  a.Priority,
		Variables: a.Variables,
	}
	if a.Repeat != domain.RepeatNone {
		e.Repeat = a.Repeat.String()
	}
	if !a.RepeatEnd.IsZero() {
		e.RepeatEnd = a.RepeatEnd.Format(domain.TimeLayout)
	}
	return e
}

// Parse decodes a schedule document. Every entry is validated; all
// problems are reported together.
func Parse(data []byte, loc *time.Location) ([]domain.Announcement, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding schedule: %w", err)
	}

	var (
		out  []domain.Announcement
		errs []error
		seen = make(map[string]int)
	)
	for i, e := range f.Announcements {
		a, err := e.Announcement(loc)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i+1, err))
			continue
		}
		if prev, dup := seen[a.ID]; dup {
			errs = append(errs, fmt.Errorf("entry %d: %w: duplicate id %q (also entry %d)",
				i+1, domain.ErrInvalidAnnouncement, a.ID, prev))
			continue
		}
		seen[a.ID] = i + 1
		out = append(out, a)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// LoadFile reads and parses the schedule at path. A missing file is an
// empty schedule.
func LoadFile(path string, loc *time.Location) ([]domain.Announcement, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading schedule: %w", err)
	}
	list, err := Parse(data, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Marshal encodes announcements as a schedule document.
func Marshal(list []domain.Announcement) ([]byte, error) {
	f := File{Announcements: make([]Entry, 0, len(list))}
	for _, a := range list {
		f.Announcements = append(f.Announcements, EntryFor(a))
	}
	return yaml.Marshal(&f)
}

// SaveFile writes the schedule atomically (temp file + rename).
func SaveFile(path string, list []domain.Announcement) error {
	data, err := Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding schedule: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating schedule dir: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".schedule-*.yaml")
	if err != nil {
		return fmt.Errorf("writing schedule: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing schedule: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing schedule: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("writing schedule: %w", err)
	}
	return nil
}

// contentID derives a stable ID from the entry's content so an unchanged
// entry without an explicit id keeps its identity across reloads.
func contentID(a domain.Announcement) string {
	sum := sha256.Sum256([]byte(fingerprint(a)))
	return "s-" + hex.EncodeToString(sum[:6])
}

// fingerprint is a canonical string of every scheduling field except ID.
func fingerprint(a domain.Announcement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%s\x00%s\x00%s\x00%d\x00%d",
		a.Template, a.PlayTime.UTC().Format(time.RFC3339), a.Repeat,
		a.RepeatEnd.UTC().Format(time.RFC3339), a.VoiceID, a.Priority)

	keys := make([]string, 0, len(a.Variables))
	for k := range a.Variables {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\x00%s=%s", k, a.Variables[k])
	}
	return b.String()
}
