package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// Compile-time interface check.
var _ domain.SpeechSink = (*Sink)(nil)

// SinkOption configures the Sink.
type SinkOption func(*Sink)

// WithVoices sets the voice list. An announcement's VoiceID indexes it.
func WithVoices(voices ...string) SinkOption {
	return func(s *Sink) {
		s.voices = voices
	}
}

// WithChunkSize sets the approximate max character count per TTS chunk.
// Text longer than this is split at sentence boundaries and synthesized
// in parallel so playback doesn't stall between sentences.
func WithChunkSize(n int) SinkOption {
	return func(s *Sink) {
		s.chunkSize = n
	}
}

// WithCache sets the audio cache. Without one every Speak synthesizes.
func WithCache(c *AudioCache) SinkOption {
	return func(s *Sink) {
		s.cache = c
	}
}

// Sink speaks through a synthesizer and an audio player:
// chunk -> synthesize (parallel, cached) -> play (sequential).
// The engine guarantees one Speak at a time; Prefetch may run alongside.
type Sink struct {
	tts       Synthesizer
	player    AudioPlayer
	log       *logger.Logger
	cache     *AudioCache
	voices    []string
	chunkSize int
}

// NewSink creates a speech sink with the given TTS client and player.
func NewSink(tts Synthesizer, player AudioPlayer, log *logger.Logger, opts ...SinkOption) *Sink {
	s := &Sink{
		tts:       tts,
		player:    player,
		log:       log,
		voices:    []string{DefaultVoice},
		chunkSize: 200, // roughly 2 sentences
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Voice resolves a voice index.
func (s *Sink) Voice(voiceID int) (string, error) {
	if voiceID < 0 || voiceID >= len(s.voices) {
		return "", fmt.Errorf("%w: %d (have %d)", domain.ErrUnknownVoice, voiceID, len(s.voices))
	}
	return s.voices[voiceID], nil
}

// Speak synthesizes and plays text, blocking until playback ends.
// Cancelling ctx stops playback between chunks and mid-clip.
func (s *Sink) Speak(ctx context.Context, text string, voiceID int) error {
	voice, err := s.Voice(voiceID)
	if err != nil {
		return err
	}

	chunks := chunkText(text, s.chunkSize)
	s.log.Debug("sink: speaking %d chunk(s) with %s: %s", len(chunks), voice, clip(text, 60))

	// Fire all synthesis requests in parallel, using cache.
	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))
	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := s.synthesize(ctx, voice, text)
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	// Collect results into ordered slots.
	audioSlots := make([][]byte, len(chunks))
	var errs []error
	for range chunks {
		r := <-results
		if r.err != nil {
			s.log.Error("sink: chunk %d synthesis failed: %v", r.idx, r.err)
			errs = append(errs, fmt.Errorf("chunk %d: %w", r.idx, r.err))
			continue
		}
		audioSlots[r.idx] = r.audio
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(errs) == len(chunks) {
		return fmt.Errorf("synthesis failed: %w", errors.Join(errs...))
	}

	// Play in order, skipping failed chunks.
	for i, audio := range audioSlots {
		if audio == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.log.Debug("sink: aborting before chunk %d (stopped)", i)
			return err
		}
		if err := s.player.Play(ctx, audio); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("playing chunk %d: %w", i, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("synthesis partly failed: %w", errors.Join(errs...))
	}
	return nil
}

// synthesize checks the cache first, otherwise calls the
// synthesizer and stores the result.
func (s *Sink) synthesize(ctx context.Context, voice, text string) ([]byte, error) {
	if s.cache != nil {
		if audio, ok := s.cache.Get(voice, text); ok {
			return audio, nil
		}
	}
	audio, err := s.tts.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Put(voice, text, audio)
	}
	return audio, nil
}

// Prefetch pre-synthesizes the given texts in background goroutines and
// stores the results in the audio cache. It skips texts that are already
// cached. Non-blocking.
func (s *Sink) Prefetch(ctx context.Context, voiceID int, texts ...string) {
	if s.cache == nil {
		return
	}
	voice, err := s.Voice(voiceID)
	if err != nil {
		s.log.Warn("prefetch: %v", err)
		return
	}

	for _, text := range texts {
		if text == "" {
			continue
		}
		// Split into the same chunks Speak would use.
		for _, chunk := range chunkText(text, s.chunkSize) {
			if s.cache.Has(voice, chunk) {
				s.log.Debug("prefetch: already cached: %s", clip(chunk, 50))
				continue
			}
			go func(t string) {
				s.log.Debug("prefetch: synthesizing: %s", clip(t, 50))
				audio, err := s.tts.Synthesize(ctx, t, voice)
				if err != nil {
					s.log.Error("prefetch: synthesis failed: %v", err)
					return
				}
				s.cache.Put(voice, t, audio)
			}(chunk)
		}
	}
}

// Cache returns the audio cache used by this Sink, or nil.
func (s *Sink) Cache() *AudioCache { return s.cache }

// chunkText groups text into chunks of at most limit bytes, cutting at
// sentence ends where possible and at word boundaries inside a sentence
// that is longer than limit. A single word is never split. limit <= 0
// returns the whole text.
func chunkText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	for _, sentence := range sentences(text) {
		for _, piece := range wrapWords(strings.Fields(sentence), limit) {
			if cur.Len() > 0 && cur.Len()+1+len(piece) > limit {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
			}
			cur.WriteString(piece)
		}
	}
	flush()
	return out
}

// sentences splits text after words ending in '.', '!' or '?'.
func sentences(text string) []string {
	var out, words []string
	for _, w := range strings.Fields(text) {
		words = append(words, w)
		if strings.ContainsAny(w[len(w)-1:], ".!?") {
			out = append(out, strings.Join(words, " "))
			words = words[:0]
		}
	}
	if len(words) > 0 {
		out = append(out, strings.Join(words, " "))
	}
	return out
}

// wrapWords packs words into lines of at most limit bytes.
func wrapWords(words []string, limit int) []string {
	var lines []string
	line := ""
	for _, w := range words {
		switch {
		case line == "":
			line = w
		case len(line)+1+len(w) <= limit:
			line += " " + w
		default:
			lines = append(lines, line)
			line = w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// clip shortens s to maxLen runes for log lines.
func clip(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
