package status

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe("a", func(ev domain.Event) { got = append(got, "a:"+ev.Kind.String()) })
	bus.Subscribe("b", func(ev domain.Event) { got = append(got, "b:"+ev.Kind.String()) })

	bus.Publish(domain.Event{Kind: domain.EventQueued})
	bus.Publish(domain.Event{Kind: domain.EventPlaying})

	assert.Equal(t, []string{"a:queued", "b:queued", "a:playing", "b:playing"}, got)
}

func TestBusResubscribeReplaces(t *testing.T) {
	bus := NewBus()
	var first, second int
	bus.Subscribe("x", func(domain.Event) { first++ })
	bus.Subscribe("x", func(domain.Event) { second++ })

	bus.Publish(domain.Event{})
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	var n int
	bus.Subscribe("x", func(domain.Event) { n++ })
	bus.Publish(domain.Event{})
	bus.Unsubscribe("x")
	bus.Unsubscribe("missing")
	bus.Publish(domain.Event{})
	assert.Equal(t, 1, n)
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	bus := NewBus()
	var late int
	bus.Subscribe("x", func(domain.Event) {
		bus.Subscribe("late", func(domain.Event) { late++ })
	})

	bus.Publish(domain.Event{})
	assert.Equal(t, 0, late)
	bus.Publish(domain.Event{})
	assert.Equal(t, 1, late)
}

func TestBusConcurrentPublish(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	bus.Subscribe("count", func(domain.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				bus.Publish(domain.Event{})
			}
			bus.Subscribe(fmt.Sprintf("noop-%d", i), func(domain.Event) {})
		}()
	}
	wg.Wait()
	assert.Equal(t, 800, count)
}

func TestPrinter(t *testing.T) {
	var lines []string
	p := NewPrinter(logger.New(logger.LevelOff, nil), func(format string, a ...any) {
		lines = append(lines, fmt.Sprintf(format, a...))
	})

	p.Handle(domain.Event{Kind: domain.EventQueued, Text: "Train 12"})
	p.Handle(domain.Event{Kind: domain.EventFailed, Err: errors.New("no device")})

	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Announcement queued: Train 12")
	assert.Contains(t, lines[1], "Error playing announcement: no device")
}

func TestPrinterQuiet(t *testing.T) {
	var lines []string
	p := NewPrinter(logger.New(logger.LevelOff, nil), func(format string, a ...any) {
		lines = append(lines, fmt.Sprintf(format, a...))
	}, WithQuiet(true))

	p.Handle(domain.Event{Kind: domain.EventQueued, Text: "x"})
	p.Handle(domain.Event{Kind: domain.EventFinished, Text: "x"})
	p.Handle(domain.Event{Kind: domain.EventPlaying, Text: "x"})

	require.Len(t, lines, 1)
	assert.True(t, strings.Contains(lines[0], "Playing: x"))
}
