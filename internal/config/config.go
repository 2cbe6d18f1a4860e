// Package config loads the announcer configuration.
//
// Values are layered: built-in defaults, then a YAML config file, then
// the environment (ANNOUNCER_SCHEDULE_TICK overrides schedule.tick).
// A .env file, when present, is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/hammamikhairi/announcer/internal/domain"
	"github.com/hammamikhairi/announcer/internal/logger"
	"github.com/hammamikhairi/announcer/internal/speech"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "ANNOUNCER"

// Speech engine names.
const (
	EngineAzure = "azure"
	EngineLog   = "log"
	EngineAuto  = "auto"
)

// Config is the full application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Speech   SpeechConfig   `mapstructure:"speech"`
	Live     LiveConfig     `mapstructure:"live"`
	Azure    AzureConfig    `mapstructure:"azure"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // "stderr" logs to the terminal
}

type ScheduleConfig struct {
	File     string        `mapstructure:"file"`
	Tick     time.Duration `mapstructure:"tick"`
	Watch    bool          `mapstructure:"watch"`
	CatchUp  string        `mapstructure:"catch_up"`
	Prefetch bool          `mapstructure:"prefetch"`
	Timezone string        `mapstructure:"timezone"` // IANA name; empty = local
}

type SpeechConfig struct {
	Engine            string        `mapstructure:"engine"`
	Voices            []string      `mapstructure:"voices"`
	Format            string        `mapstructure:"format"`
	CacheDir          string        `mapstructure:"cache_dir"`
	DiskCache         bool          `mapstructure:"disk_cache"`
	CacheSize         int           `mapstructure:"cache_size"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	ChunkSize         int           `mapstructure:"chunk_size"`
	WordDuration      time.Duration `mapstructure:"word_duration"`
}

// LiveConfig controls announcements typed at the console.
type LiveConfig struct {
	Priority int `mapstructure:"priority"`
	Voice    int `mapstructure:"voice"`
}

// AzureConfig holds the speech service credentials. They are read from
// AZURE_SPEECH_KEY and AZURE_SPEECH_REGION, never from the config file
// alone.
type AzureConfig struct {
	Key    string `mapstructure:"key"`
	Region string `mapstructure:"region"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "normal")
	v.SetDefault("log.file", ".announcer/announcer.log")

	v.SetDefault("schedule.file", "schedule.yaml")
	v.SetDefault("schedule.tick", time.Minute)
	v.SetDefault("schedule.watch", true)
	v.SetDefault("schedule.catch_up", "one")
	v.SetDefault("schedule.prefetch", true)
	v.SetDefault("schedule.timezone", "")

	v.SetDefault("speech.engine", EngineAuto)
	v.SetDefault("speech.voices", []string{speech.DefaultVoice})
	v.SetDefault("speech.format", speech.DefaultAudioFormat)
	v.SetDefault("speech.cache_dir", ".announcer/cache")
	v.SetDefault("speech.disk_cache", true)
	v.SetDefault("speech.cache_size", speech.DefaultCacheSize)
	v.SetDefault("speech.requests_per_minute", 20)
	v.SetDefault("speech.chunk_size", 200)
	v.SetDefault("speech.word_duration", 300*time.Millisecond)

	v.SetDefault("live.priority", domain.PriorityLive)
	v.SetDefault("live.voice", 0)

	v.SetDefault("azure.key", "")
	v.SetDefault("azure.region", "")
}

// Load reads the configuration. path is an explicit config file; when
// empty, announcer.yaml is looked up in the working directory and in
// $HOME/.config/announcer, and a missing file is not an error. envFiles
// are dotenv files to load first (default ".env"); missing ones are skipped.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("azure.key", speech.EnvAzureSpeechKey)
	_ = v.BindEnv("azure.region", speech.EnvAzureSpeechRegion)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("announcer")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "announcer"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Speech.Voices = splitVoices(cfg.Speech.Voices)
	return &cfg, nil
}

// splitVoices flattens comma-separated entries so a single env value
// like "en-US-AvaNeural,en-GB-RyanNeural" becomes two voices.
func splitVoices(in []string) []string {
	var out []string
	for _, s := range in {
		for _, v := range strings.Split(s, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Schedule.Tick <= 0 {
		errs = append(errs, fmt.Errorf("schedule.tick must be positive, got %s", c.Schedule.Tick))
	}
	if _, err := domain.ParseCatchUp(c.Schedule.CatchUp); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}

	switch c.Speech.Engine {
	case EngineAuto, EngineLog:
	case EngineAzure:
		if !c.HasAzure() {
			errs = append(errs, fmt.Errorf("speech.engine azure needs %s and %s",
				speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown speech.engine %q (want azure, log or auto)", c.Speech.Engine))
	}
	if len(c.Speech.Voices) == 0 {
		errs = append(errs, errors.New("speech.voices must list at least one voice"))
	}
	if c.Speech.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("speech.chunk_size must be positive, got %d", c.Speech.ChunkSize))
	}
	if c.Speech.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("speech.requests_per_minute must not be negative, got %d", c.Speech.RequestsPerMinute))
	}
	if c.Speech.WordDuration < 0 {
		errs = append(errs, fmt.Errorf("speech.word_duration must not be negative, got %s", c.Speech.WordDuration))
	}

	if c.Live.Priority < 1 {
		errs = append(errs, fmt.Errorf("live.priority must be at least 1, got %d", c.Live.Priority))
	}
	if c.Live.Voice < 0 || c.Live.Voice >= len(c.Speech.Voices) {
		errs = append(errs, fmt.Errorf("live.voice %d is outside the voice list (%d voices)", c.Live.Voice, len(c.Speech.Voices)))
	}

	return errors.Join(errs...)
}

// HasAzure reports whether Azure credentials are present.
func (c *Config) HasAzure() bool {
	return c.Azure.Key != "" && c.Azure.Region != ""
}

// SpeechEngine resolves "auto" to azure when credentials are present and
// to the log sink otherwise.
func (c *Config) SpeechEngine() string {
	if c.Speech.Engine != EngineAuto {
		return c.Speech.Engine
	}
	if c.HasAzure() {
		return EngineAzure
	}
	return EngineLog
}

// Location returns the time zone schedule file times are read in.
func (c *Config) Location() (*time.Location, error) {
	if c.Schedule.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}

// CatchUp returns the parsed catch-up policy.
func (c *Config) CatchUp() domain.CatchUp {
	p, _ := domain.ParseCatchUp(c.Schedule.CatchUp)
	return p
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logger.Level {
	l, _ := logger.ParseLevel(c.Log.Level)
	return l
}
