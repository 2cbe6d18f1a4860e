package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
	"github.com/hammamikhairi/announcer/internal/speech"
)

// isolate points HOME at an empty dir and clears the credential env so
// the host machine cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(speech.EnvAzureSpeechKey, "")
	t.Setenv(speech.EnvAzureSpeechRegion, "")
	return dir
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("", filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Minute, cfg.Schedule.Tick)
	assert.Equal(t, "schedule.yaml", cfg.Schedule.File)
	assert.True(t, cfg.Schedule.Watch)
	assert.Equal(t, domain.CatchUpOne, cfg.CatchUp())
	assert.Equal(t, []string{speech.DefaultVoice}, cfg.Speech.Voices)
	assert.Equal(t, domain.PriorityLive, cfg.Live.Priority)
	assert.Equal(t, logger.LevelNormal, cfg.LogLevel())
	assert.Equal(t, EngineLog, cfg.SpeechEngine(), "auto without credentials falls back to the log sink")
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "announcer.yaml"), `
log:
  level: verbose
schedule:
  file: /srv/station.yaml
  tick: 15s
  catch_up: skip
  timezone: Europe/Paris
speech:
  engine: log
  voices: [en-US-AvaNeural, fr-FR-DeniseNeural]
  word_duration: 10ms
live:
  priority: 8
  voice: 1
`)

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, logger.LevelVerbose, cfg.LogLevel())
	assert.Equal(t, "/srv/station.yaml", cfg.Schedule.File)
	assert.Equal(t, 15*time.Second, cfg.Schedule.Tick)
	assert.Equal(t, domain.CatchUpSkip, cfg.CatchUp())
	assert.Equal(t, []string{"en-US-AvaNeural", "fr-FR-DeniseNeural"}, cfg.Speech.Voices)
	assert.Equal(t, 10*time.Millisecond, cfg.Speech.WordDuration)
	assert.Equal(t, 8, cfg.Live.Priority)
	assert.Equal(t, 1, cfg.Live.Voice)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", loc.String())
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, filepath.Join(dir, "announcer.yaml"), "schedule:\n  tick: 15s\n")

	t.Setenv("ANNOUNCER_SCHEDULE_TICK", "5s")
	t.Setenv("ANNOUNCER_SPEECH_VOICES", "en-US-AvaNeural, en-GB-RyanNeural")

	cfg, err := Load(path, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Schedule.Tick)
	assert.Equal(t, []string{"en-US-AvaNeural", "en-GB-RyanNeural"}, cfg.Speech.Voices)
}

func TestDotEnvCredentials(t *testing.T) {
	dir := isolate(t)
	// godotenv never overrides a variable that is already set, even to "".
	require.NoError(t, os.Unsetenv(speech.EnvAzureSpeechKey))
	require.NoError(t, os.Unsetenv(speech.EnvAzureSpeechRegion))
	t.Cleanup(func() {
		os.Unsetenv(speech.EnvAzureSpeechKey)
		os.Unsetenv(speech.EnvAzureSpeechRegion)
	})
	env := writeFile(t, filepath.Join(dir, "test.env"), "AZURE_SPEECH_KEY=k123\nAZURE_SPEECH_REGION=westeurope\n")

	cfg, err := Load("", env)
	require.NoError(t, err)
	assert.Equal(t, "k123", cfg.Azure.Key)
	assert.Equal(t, "westeurope", cfg.Azure.Region)
	assert.True(t, cfg.HasAzure())
	assert.Equal(t, EngineAzure, cfg.SpeechEngine())
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Log:      LogConfig{Level: "normal"},
			Schedule: ScheduleConfig{Tick: time.Minute, CatchUp: "one"},
			Speech:   SpeechConfig{Engine: EngineAuto, Voices: []string{"v"}, ChunkSize: 200},
			Live:     LiveConfig{Priority: 10},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown engine", func(c *Config) { c.Speech.Engine = "espeak" }},
		{"azure without credentials", func(c *Config) { c.Speech.Engine = EngineAzure }},
		{"no voices", func(c *Config) { c.Speech.Voices = nil }},
		{"zero tick", func(c *Config) { c.Schedule.Tick = 0 }},
		{"negative tick", func(c *Config) { c.Schedule.Tick = -time.Second }},
		{"bad catch-up", func(c *Config) { c.Schedule.CatchUp = "all" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad timezone", func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"zero chunk size", func(c *Config) { c.Speech.ChunkSize = 0 }},
		{"live voice out of range", func(c *Config) { c.Live.Voice = 1 }},
		{"live priority zero", func(c *Config) { c.Live.Priority = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateAzureWithCredentials(t *testing.T) {
	c := &Config{
		Log:      LogConfig{Level: "normal"},
		Schedule: ScheduleConfig{Tick: time.Minute},
		Speech:   SpeechConfig{Engine: EngineAzure, Voices: []string{"v"}, ChunkSize: 1},
		Live:     LiveConfig{Priority: 1},
		Azure:    AzureConfig{Key: "k", Region: "r"},
	}
	assert.NoError(t, c.Validate())
	assert.Equal(t, EngineAzure, c.SpeechEngine())
}
