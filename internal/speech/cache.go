package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hammamikhairi/announcer/internal/logger"
)

// DefaultCacheSize is the number of clips kept in memory.
const DefaultCacheSize = 256

// AudioCache is a thread-safe two-tier cache (bounded in-memory LRU +
// filesystem) for synthesized audio. The cache key is
// sha256(voice + ":" + text), so the same text in two voices is cached
// twice.
//
// Disk behaviour is controlled by diskWrite:
//
//	diskWrite=true  -> reads from mem, then disk; writes to both.
//	diskWrite=false -> reads from mem, then disk; writes to mem only.
//
// This means the on-disk cache is always consulted, even when writes are
// disabled, giving a warm start from previous runs.
type AudioCache struct {
	entries   *lru.Cache[string, []byte] // hash -> WAV bytes
	log       *logger.Logger
	cacheDir  string // filesystem cache directory (empty = no disk layer)
	diskWrite bool   // whether to persist new entries to disk
	hits      atomic.Int64
	misses    atomic.Int64
}

// NewAudioCache creates an audio cache.
//
//   - size:      in-memory capacity in clips; <= 0 means DefaultCacheSize.
//   - cacheDir:  path to the on-disk cache directory. If empty, the disk
//     layer is disabled entirely (pure in-memory).
//   - diskWrite: when true, new entries are written to cacheDir. When false,
//     existing files in cacheDir are still read, but nothing new is persisted.
func NewAudioCache(size int, cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, []byte](size)

	c := &AudioCache{
		entries:   entries,
		log:       log,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	// Ensure the cache directory exists when disk writes are enabled.
	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}

	return c
}

// Get returns cached audio for the text in the voice and true, or nil and
// false. It checks memory first, then falls back to the disk cache.
func (c *AudioCache) Get(voice, text string) ([]byte, bool) {
	key := hashKey(voice, text)

	// 1. In-memory lookup.
	if data, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		c.log.Debug("cache hit (mem): %s (%d bytes)", clip(text, 40), len(data))
		return data, true
	}

	// 2. Disk lookup.
	if c.cacheDir != "" {
		if data, ok := c.readDisk(key); ok {
			// Promote to in-memory for faster subsequent hits.
			c.entries.Add(key, data)
			c.hits.Add(1)
			c.log.Debug("cache hit (disk): %s (%d bytes)", clip(text, 40), len(data))
			return data, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Put stores audio data for the text in the voice. Always writes to
// memory; writes to disk only when diskWrite is enabled.
func (c *AudioCache) Put(voice, text string, audio []byte) {
	key := hashKey(voice, text)

	evicted := c.entries.Add(key, audio)
	c.log.Debug("cache store (mem): %s (%d bytes, %d entries, evicted=%t)",
		clip(text, 40), len(audio), c.entries.Len(), evicted)

	if c.cacheDir != "" && c.diskWrite {
		c.writeDisk(key, audio)
	}
}

// Has returns true if audio for the text is cached (memory or disk).
func (c *AudioCache) Has(voice, text string) bool {
	key := hashKey(voice, text)
	if c.entries.Contains(key) {
		return true
	}
	if c.cacheDir != "" {
		return c.existsOnDisk(key)
	}
	return false
}

// Len returns the number of in-memory cached entries.
func (c *AudioCache) Len() int {
	return c.entries.Len()
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Clear empties the in-memory cache. The disk cache is NOT cleared.
func (c *AudioCache) Clear() {
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
	c.log.Debug("cache cleared (mem)")
}

// ── hashing ──────────────────────────────────────────────────────

// hashKey returns a hex-encoded SHA-256 of voice + ":" + text.
func hashKey(voice, text string) string {
	h := sha256.Sum256([]byte(voice + ":" + text))
	return hex.EncodeToString(h[:])
}

// ── disk helpers ─────────────────────────────────────────────────

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}

func (c *AudioCache) readDisk(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.diskPath(key))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *AudioCache) writeDisk(key string, audio []byte) {
	path := c.diskPath(key)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
	} else {
		c.log.Debug("cache store (disk): %s (%d bytes)", key[:12], len(audio))
	}
}

func (c *AudioCache) existsOnDisk(key string) bool {
	_, err := os.Stat(c.diskPath(key))
	return err == nil
}
