// Package cache keeps decoded thumbnail frames on disk so reopening a video
// does not shell out to ffmpeg again. Frames are stored as lossless WebP
// files next to a SQLite index.
package cache

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/rs/zerolog"
)

// ErrMiss is returned by Get when no frame is cached for a key
var ErrMiss = errors.New("cache: miss")

// Cache persists thumbnail frames keyed by source, timestamp and height
type Cache struct {
	dir    string
	db     *db
	logger zerolog.Logger

	mu sync.Mutex
}

// Open opens or creates a cache in dir
func Open(dir string, logger zerolog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	d, err := openDB(dir)
	if err != nil {
		return nil, fmt.Errorf("open cache index: %w", err)
	}

	return &Cache{
		dir:    dir,
		db:     d,
		logger: logger.With().Str("component", "thumb-cache").Logger(),
	}, nil
}

// Key identifies the frame of source at a timestamp and decode height.
// The file's size and modification time are part of the key so edits to
// the source invalidate old frames.
func Key(source string, at time.Duration, height int) (string, error) {
	st, err := os.Stat(source)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	raw := fmt.Sprintf("%s|%d|%d|%d|%d", abs, st.Size(), st.ModTime().UnixNano(), at.Milliseconds(), height)
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}

// Dir returns the directory holding the cache
func (c *Cache) Dir() string { return c.dir }

func (c *Cache) blobPath(key string) string {
	return filepath.Join(c.dir, key+".webp")
}

// Get returns the cached frame for key or ErrMiss
func (c *Cache) Get(key string) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.db.get(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.blobPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// index and blobs drifted apart; forget the entry
			_ = c.db.remove(key)
			return nil, ErrMiss
		}
		return nil, err
	}

	img, err := webp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode cached frame: %w", err)
	}

	if err := c.db.hit(key); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("hit counter not updated")
	}
	return img, nil
}

// Put stores img under key
func (c *Cache) Put(key, source string, at time.Duration, img image.Image) error {
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := c.blobPath(key) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, c.blobPath(key)); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return c.db.upsert(key, source, at)
}

// Len returns the number of indexed frames
func (c *Cache) Len() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.count()
}

// Purge removes every cached frame
func (c *Cache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.db.keys()
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := os.Remove(c.blobPath(k)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	c.logger.Info().Int("frames", len(keys)).Msg("cache purged")
	return c.db.purge()
}

// Close releases the index
func (c *Cache) Close() error {
	return c.db.close()
}
