package thumbnails

import (
	"context"
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/cliptrim/internal/cache"
	"github.com/keagan/cliptrim/internal/slider"
)

// FrameSource decodes a single frame of a video
type FrameSource interface {
	DecodeFrame(ctx context.Context, input string, at time.Duration, height int) (image.Image, error)
}

// FrameCache stores decoded frames between runs
type FrameCache interface {
	Get(key string) (image.Image, error)
	Put(key, source string, at time.Duration, img image.Image) error
}

// Frame is a decoded, cropped image for one cell of a generation
type Frame struct {
	Generation uuid.UUID
	Cell       Cell
	Image      image.Image
}

// Options configures a Strip
type Options struct {
	Workers int
	// DecodeHeight is the pixel height frames are decoded at; 0 uses the
	// strip height
	DecodeHeight int
	Cache        FrameCache
	// Notify is called from worker goroutines after a frame is queued.
	// It must not touch UI state itself, only schedule a Drain.
	Notify func()
	Logger zerolog.Logger
}

// Strip generates thumbnails in the background. Each Load starts a new
// generation and cancels the previous one; frames from older generations
// never reach Drain.
type Strip struct {
	source FrameSource
	opts   Options
	logger zerolog.Logger

	mu         sync.Mutex
	generation uuid.UUID
	cancel     context.CancelFunc
	queue      []Frame

	wg sync.WaitGroup
}

// New creates a strip decoding frames from source
func New(source FrameSource, opts Options) *Strip {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Strip{
		source: source,
		opts:   opts,
		logger: opts.Logger.With().Str("component", "thumbnails").Logger(),
	}
}

// Generation returns the token of the current load
func (s *Strip) Generation() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Load starts generating frames of asset for a width x height strip and
// returns the planned cells
func (s *Strip) Load(ctx context.Context, asset slider.Asset, width, height float64) []Cell {
	cells := Plan(width, height, asset.Duration)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	gen := uuid.New()
	genCtx, cancel := context.WithCancel(ctx)
	s.generation = gen
	s.cancel = cancel
	s.queue = nil
	s.mu.Unlock()

	decodeHeight := s.opts.DecodeHeight
	if decodeHeight <= 0 {
		decodeHeight = int(math.Ceil(height))
	}

	s.logger.Debug().
		Str("generation", gen.String()).
		Str("video", asset.Path).
		Int("cells", len(cells)).
		Int("decode_height", decodeHeight).
		Msg("loading thumbnails")

	jobs := make(chan Cell, len(cells))
	for _, c := range cells {
		jobs <- c
	}
	close(jobs)

	var active sync.WaitGroup
	workers := min(s.opts.Workers, len(cells))
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		active.Add(1)
		go func() {
			defer s.wg.Done()
			defer active.Done()
			for cell := range jobs {
				if genCtx.Err() != nil {
					return
				}
				img, err := s.frame(genCtx, asset.Path, cell.At, decodeHeight)
				if err != nil {
					if genCtx.Err() != nil {
						return
					}
					s.logger.Warn().Err(err).
						Int("cell", cell.Index).
						Dur("at", cell.At).
						Msg("thumbnail skipped")
					continue
				}
				w, h := cellPixels(cell, height, decodeHeight)
				s.push(Frame{Generation: gen, Cell: cell, Image: Fill(img, w, h)})
			}
		}()
	}

	// release the generation's context once its workers are done
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		active.Wait()
		cancel()
	}()

	return cells
}

// frame returns the decoded frame, from the cache when possible
func (s *Strip) frame(ctx context.Context, path string, at time.Duration, height int) (image.Image, error) {
	var key string
	if s.opts.Cache != nil {
		k, err := cache.Key(path, at, height)
		if err == nil {
			key = k
			img, err := s.opts.Cache.Get(key)
			if err == nil {
				return img, nil
			}
			if !errors.Is(err, cache.ErrMiss) {
				s.logger.Debug().Err(err).Msg("cache read failed")
			}
		}
	}

	img, err := s.source.DecodeFrame(ctx, path, at, height)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := s.opts.Cache.Put(key, path, at, img); err != nil {
			s.logger.Debug().Err(err).Msg("cache write failed")
		}
	}
	return img, nil
}

func (s *Strip) push(f Frame) {
	s.mu.Lock()
	if f.Generation != s.generation {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, f)
	s.mu.Unlock()

	if s.opts.Notify != nil {
		s.opts.Notify()
	}
}

// Drain hands queued frames of the current generation to fn on the
// caller's goroutine and returns how many were delivered
func (s *Strip) Drain(fn func(Frame)) int {
	s.mu.Lock()
	frames := s.queue
	s.queue = nil
	gen := s.generation
	s.mu.Unlock()

	n := 0
	for _, f := range frames {
		if f.Generation != gen {
			continue
		}
		fn(f)
		n++
	}
	return n
}

// Cancel stops the current generation
func (s *Strip) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation = uuid.Nil
	s.queue = nil
}

// Wait blocks until all started workers have returned
func (s *Strip) Wait() {
	s.wg.Wait()
}
