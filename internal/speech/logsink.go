package speech

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechSink = (*LogSink)(nil)

// LogSink is a speech sink that only logs. It takes wordDuration per word
// so queue timing still resembles real speech. Used when TTS is not
// configured.
type LogSink struct {
	log          *logger.Logger
	wordDuration time.Duration
	voices       int
}

// NewLogSink creates a log-only sink. voices is the size of the voice
// list; a VoiceID outside it fails like it would on a real sink.
func NewLogSink(log *logger.Logger, wordDuration time.Duration, voices int) *LogSink {
	return &LogSink{log: log, wordDuration: wordDuration, voices: voices}
}

// Speak logs text and waits as long as reading it aloud would take.
func (n *LogSink) Speak(ctx context.Context, text string, voiceID int) error {
	if voiceID < 0 || voiceID >= n.voices {
		return fmt.Errorf("%w: %d (have %d)", domain.ErrUnknownVoice, voiceID, n.voices)
	}
	n.log.Info("speak [voice %d]: %s", voiceID, text)

	d := time.Duration(len(strings.Fields(text))) * n.wordDuration
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
