package main

import (
	"context"
	"time"

	"github.com/hammamikhairi/announcer/internal/config"
	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/engine"
	"github.com/hammamikhairi/announcer/internal/logger"
	"github.com/hammamikhairi/announcer/internal/schedule"
	"github.com/hammamikhairi/announcer/internal/speech"
	"github.com/hammamikhairi/announcer/internal/status"
	"github.com/hammamikhairi/announcer/internal/storage"
)

// runtime is the wired set of components shared by the subcommands.
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	loc     *time.Location
	bus     *status.Bus
	sink    domain.SpeechSink
	engine  *engine.Engine
	store   *storage.MemoryStore
	checker *schedule.Checker
}

func newRuntime(cfg *config.Config, log *logger.Logger) (*runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	bus := status.NewBus()
	sink, prefetcher := buildSink(cfg, log)

	eng := engine.New(sink, log.WithPrefix("engine"),
		engine.WithCatchUp(cfg.CatchUp()),
		engine.WithEvents(bus),
	)

	store := storage.NewMemoryStore(log.WithPrefix("store"))

	checkerOpts := []schedule.CheckerOption{schedule.WithTickInterval(cfg.Schedule.Tick)}
	if cfg.Schedule.Prefetch && prefetcher != nil {
		checkerOpts = append(checkerOpts, schedule.WithPrefetch(prefetcher))
	}
	checker := schedule.NewChecker(store, eng, log.WithPrefix("schedule"), checkerOpts...)

	// Recurring entries follow the engine's rescheduling.
	bus.Subscribe("checker", checker.HandleEvent)

	return &runtime{
		cfg:     cfg,
		log:     log,
		loc:     loc,
		bus:     bus,
		sink:    sink,
		engine:  eng,
		store:   store,
		checker: checker,
	}, nil
}

// buildSink picks the speech sink. The Azure sink is used when configured
// and the audio device opens; otherwise speech is only logged. The second
// return value is nil when the sink cannot prefetch.
func buildSink(cfg *config.Config, log *logger.Logger) (domain.SpeechSink, schedule.Prefetcher) {
	speechLog := log.WithPrefix("speech")
	logSink := func() domain.SpeechSink {
		return speech.NewLogSink(speechLog, cfg.Speech.WordDuration, len(cfg.Speech.Voices))
	}

	if cfg.SpeechEngine() != config.EngineAzure {
		log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
		return logSink(), nil
	}

	player, err := speech.NewPlayer(speechLog)
	if err != nil {
		log.Error("audio player init failed, speech will only be logged: %v", err)
		return logSink(), nil
	}

	client := speech.NewAzureClient(cfg.Azure.Key, cfg.Azure.Region, speechLog,
		speech.WithAudioFormat(cfg.Speech.Format),
		speech.WithRequestsPerMinute(cfg.Speech.RequestsPerMinute),
	)
	cache := speech.NewAudioCache(cfg.Speech.CacheSize, cfg.Speech.CacheDir, cfg.Speech.DiskCache, speechLog)
	sink := speech.NewSink(client, player, speechLog,
		speech.WithVoices(cfg.Speech.Voices...),
		speech.WithChunkSize(cfg.Speech.ChunkSize),
		speech.WithCache(cache),
	)
	log.Info("TTS enabled (voices=%v, region=%s)", cfg.Speech.Voices, cfg.Azure.Region)
	return sink, sink
}

// loadSchedule syncs the watch list with the configured schedule file.
func (rt *runtime) loadSchedule(ctx context.Context) error {
	return rt.checker.SyncFile(ctx, rt.cfg.Schedule.File, rt.loc)
}

// liveAnnouncement builds an operator announcement due now.
func (rt *runtime) liveAnnouncement(text string) domain.Announcement {
	a := domain.LiveAnnouncement(text, time.Now())
	a.Priority = rt.cfg.Live.Priority
	a.VoiceID = rt.cfg.Live.Voice
	return a
}

// queuedAnnouncement builds a scheduled-tier announcement due now.
func (rt *runtime) queuedAnnouncement(text string) domain.Announcement {
	a := domain.NewAnnouncement(text, time.Now())
	a.VoiceID = rt.cfg.Live.Voice
	return a
}
