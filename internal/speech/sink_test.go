package speech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

// fakeSynth returns the text itself as "audio".
type fakeSynth struct {
	mu     sync.Mutex
	calls  []string
	voices []string
	fail   func(text string) error
}

func (f *fakeSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.voices = append(f.voices, voice)
	fail := f.fail
	f.mu.Unlock()
	if fail != nil {
		if err := fail(text); err != nil {
			return nil, err
		}
	}
	return []byte(text), nil
}

func (f *fakeSynth) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePlayer records played clips. With block set it waits for ctx.
type fakePlayer struct {
	mu     sync.Mutex
	played []string
	block  bool
}

func (p *fakePlayer) Play(ctx context.Context, wav []byte) error {
	p.mu.Lock()
	p.played = append(p.played, string(wav))
	block := p.block
	p.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (p *fakePlayer) clips() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.played...)
}

func quietLog() *logger.Logger { return logger.New(logger.LevelOff, nil) }

func TestSinkSpeaksInChunkOrder(t *testing.T) {
	synth := &fakeSynth{}
	player := &fakePlayer{}
	sink := NewSink(synth, player, quietLog(), WithChunkSize(20))

	text := "First sentence here. Second one follows. Third and last."
	require.NoError(t, sink.Speak(context.Background(), text, 0))

	assert.Equal(t, []string{"First sentence here.", "Second one follows.", "Third and last."}, player.clips())
	assert.Equal(t, 3, synth.count())
}

func TestSinkVoiceSelection(t *testing.T) {
	synth := &fakeSynth{}
	sink := NewSink(synth, &fakePlayer{}, quietLog(), WithVoices("en-US-AvaNeural", "de-DE-KatjaNeural"))

	require.NoError(t, sink.Speak(context.Background(), "Hallo", 1))
	assert.Equal(t, []string{"de-DE-KatjaNeural"}, synth.voices)

	err := sink.Speak(context.Background(), "x", 2)
	assert.ErrorIs(t, err, domain.ErrUnknownVoice)
	err = sink.Speak(context.Background(), "x", -1)
	assert.ErrorIs(t, err, domain.ErrUnknownVoice)
}

func TestSinkSynthesisFailure(t *testing.T) {
	synth := &fakeSynth{fail: func(string) error { return errors.New("quota exceeded") }}
	player := &fakePlayer{}
	sink := NewSink(synth, player, quietLog())

	err := sink.Speak(context.Background(), "Hello", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, player.clips())
}

func TestSinkPartialFailurePlaysTheRest(t *testing.T) {
	synth := &fakeSynth{fail: func(text string) error {
		if strings.HasPrefix(text, "Bad") {
			return errors.New("rejected")
		}
		return nil
	}}
	player := &fakePlayer{}
	sink := NewSink(synth, player, quietLog(), WithChunkSize(10))

	err := sink.Speak(context.Background(), "Good one. Bad one. Good two.", 0)
	assert.Error(t, err)
	assert.Equal(t, []string{"Good one.", "Good two."}, player.clips())
}

func TestSinkStopsOnCancel(t *testing.T) {
	player := &fakePlayer{block: true}
	sink := NewSink(&fakeSynth{}, player, quietLog(), WithChunkSize(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sink.Speak(ctx, "One here. Two here. Three here.", 0) }()

	require.Eventually(t, func() bool { return len(player.clips()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("speak did not return after cancel")
	}
	assert.Len(t, player.clips(), 1, "no chunk after the stop request")
}

func TestSinkUsesCache(t *testing.T) {
	synth := &fakeSynth{}
	cache := NewAudioCache(8, "", false, quietLog())
	sink := NewSink(synth, &fakePlayer{}, quietLog(), WithCache(cache))

	require.NoError(t, sink.Speak(context.Background(), "Mind the gap", 0))
	require.NoError(t, sink.Speak(context.Background(), "Mind the gap", 0))
	assert.Equal(t, 1, synth.count())

	hits, misses := cache.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestSinkPrefetch(t *testing.T) {
	synth := &fakeSynth{}
	cache := NewAudioCache(8, "", false, quietLog())
	sink := NewSink(synth, &fakePlayer{}, quietLog(), WithCache(cache))

	sink.Prefetch(context.Background(), 0, "Platform change", "")
	require.Eventually(t, func() bool { return cache.Has(DefaultVoice, "Platform change") },
		time.Second, 5*time.Millisecond)

	require.NoError(t, sink.Speak(context.Background(), "Platform change", 0))
	assert.Equal(t, 1, synth.count())

	sink.Prefetch(context.Background(), 5, "unknown voice is ignored")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, synth.count())
}

func TestLogSink(t *testing.T) {
	sink := NewLogSink(quietLog(), 5*time.Millisecond, 2)

	start := time.Now()
	require.NoError(t, sink.Speak(context.Background(), "four words right here", 1))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	assert.ErrorIs(t, sink.Speak(context.Background(), "x", 2), domain.ErrUnknownVoice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sink.Speak(ctx, "cancelled before it starts", 0), context.Canceled)
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"short", "short", 200, []string{"short"}},
		{"no limit", "no limit. at all.", 0, []string{"no limit. at all."}},
		{"sentences grouped", "A b c. D e f. G h i!", 14, []string{"A b c. D e f.", "G h i!"}},
		{"long sentence wrapped", "Train to Lyon departs from platform nine", 16,
			[]string{"Train to Lyon", "departs from", "platform nine"}},
		{"long word kept whole", "Supercalifragilistic now", 10, []string{"Supercalifragilistic", "now"}},
		{"whitespace collapsed", "  Mind   the gap.  Stand  clear.  ", 13, []string{"Mind the gap.", "Stand clear."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chunkText(tt.text, tt.limit))
		})
	}
}
