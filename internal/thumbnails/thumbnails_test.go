package thumbnails

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/keagan/cliptrim/internal/slider"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []time.Duration
	ctxs  []context.Context
	fail  map[time.Duration]bool
	block chan struct{}
}

func (f *fakeSource) DecodeFrame(ctx context.Context, input string, at time.Duration, height int) (image.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, at)
	f.ctxs = append(f.ctxs, ctx)
	fail := f.fail[at]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("decode failed")
	}
	img := image.NewNRGBA(image.Rect(0, 0, height*4/3, height))
	for y := 0; y < height; y++ {
		for x := 0; x < height*4/3; x++ {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	return img, nil
}

type memCache struct {
	mu     sync.Mutex
	frames map[string]image.Image
}

func (m *memCache) Get(key string) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if img, ok := m.frames[key]; ok {
		return img, nil
	}
	return nil, errors.New("miss")
}

func (m *memCache) Put(key, source string, at time.Duration, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frames[key] = img
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("fake video"), 0644); err != nil {
		t.Fatal(err)
	}
}

func testAsset(d time.Duration) slider.Asset {
	return slider.Asset{Path: "video.mp4", Duration: d, Timescale: slider.DefaultTimescale}
}

func TestPlan(t *testing.T) {
	cells := Plan(300, 30, 10*time.Second)
	if len(cells) != 10 {
		t.Fatalf("expected 10 cells, got %d", len(cells))
	}
	for i, c := range cells {
		if c.Index != i {
			t.Errorf("cell %d has index %d", i, c.Index)
		}
		if c.Width != 30 || c.X != float64(i)*30 {
			t.Errorf("cell %d misplaced: x=%v w=%v", i, c.X, c.Width)
		}
		want := time.Duration(i)*time.Second + 500*time.Millisecond
		if c.At != want {
			t.Errorf("cell %d sampled at %v, want %v", i, c.At, want)
		}
	}

	if got := Plan(20, 30, time.Second); len(got) != 1 || got[0].Width != 20 {
		t.Errorf("narrow strip should still get one cell, got %+v", got)
	}
	if got := Plan(300, 30, 0); got != nil {
		t.Errorf("zero duration should plan nothing, got %+v", got)
	}
	if got := Plan(0, 30, time.Second); got != nil {
		t.Errorf("zero width should plan nothing, got %+v", got)
	}
}

func TestFill(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 160, 90))
	got := Fill(src, 40, 40)
	if got.Bounds().Dx() != 40 || got.Bounds().Dy() != 40 {
		t.Errorf("expected 40x40, got %v", got.Bounds())
	}

	tall := image.NewNRGBA(image.Rect(0, 0, 90, 160))
	got = Fill(tall, 60, 20)
	if got.Bounds().Dx() != 60 || got.Bounds().Dy() != 20 {
		t.Errorf("expected 60x20, got %v", got.Bounds())
	}

	if Fill(src, 0, 10) != image.Image(src) {
		t.Error("empty target should return the source")
	}
}

func TestCellPixels(t *testing.T) {
	w, h := cellPixels(Cell{Width: 45}, 30, 90)
	if w != 135 || h != 90 {
		t.Errorf("expected 135x90, got %dx%d", w, h)
	}
	if w, h := cellPixels(Cell{Width: 45}, 0, 90); w != 0 || h != 0 {
		t.Errorf("zero track height should give 0x0, got %dx%d", w, h)
	}
}

func TestLoadDeliversEveryCell(t *testing.T) {
	src := &fakeSource{}
	var notified atomic.Int32
	s := New(src, Options{
		Workers: 3,
		Notify:  func() { notified.Add(1) },
		Logger:  zerolog.Nop(),
	})

	cells := s.Load(context.Background(), testAsset(10*time.Second), 300, 30)
	s.Wait()

	seen := make(map[int]bool)
	n := s.Drain(func(f Frame) {
		seen[f.Cell.Index] = true
		if f.Generation != s.Generation() {
			t.Errorf("frame from unexpected generation %v", f.Generation)
		}
		if f.Image.Bounds().Dx() != 30 || f.Image.Bounds().Dy() != 30 {
			t.Errorf("frame %d has bounds %v", f.Cell.Index, f.Image.Bounds())
		}
	})
	if n != len(cells) || len(seen) != len(cells) {
		t.Errorf("expected %d frames, drained %d (%d unique)", len(cells), n, len(seen))
	}
	if int(notified.Load()) != len(cells) {
		t.Errorf("expected %d notifications, got %d", len(cells), notified.Load())
	}
	if s.Drain(func(Frame) {}) != 0 {
		t.Error("queue should be empty after Drain")
	}
}

func TestFailedFrameIsSkipped(t *testing.T) {
	src := &fakeSource{fail: map[time.Duration]bool{1500 * time.Millisecond: true}}
	s := New(src, Options{Workers: 2, Logger: zerolog.Nop()})

	s.Load(context.Background(), testAsset(10*time.Second), 300, 30)
	s.Wait()

	var got []int
	s.Drain(func(f Frame) { got = append(got, f.Cell.Index) })
	if len(got) != 9 {
		t.Fatalf("expected 9 frames, got %d", len(got))
	}
	for _, i := range got {
		if i == 1 {
			t.Error("failed cell should not be delivered")
		}
	}
}

func TestReloadDropsStaleGeneration(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	s := New(src, Options{Workers: 2, Logger: zerolog.Nop()})

	s.Load(context.Background(), testAsset(10*time.Second), 300, 30)
	first := s.Generation()

	src.mu.Lock()
	src.block = nil
	src.mu.Unlock()

	s.Load(context.Background(), testAsset(4*time.Second), 120, 30)
	second := s.Generation()
	if first == second || second == uuid.Nil {
		t.Fatal("expected a fresh generation token")
	}
	s.Wait()

	n := s.Drain(func(f Frame) {
		if f.Generation != second {
			t.Errorf("stale frame delivered from %v", f.Generation)
		}
	})
	if n != 4 {
		t.Errorf("expected 4 frames from the second load, got %d", n)
	}
}

func TestCancel(t *testing.T) {
	src := &fakeSource{block: make(chan struct{})}
	s := New(src, Options{Logger: zerolog.Nop()})

	s.Load(context.Background(), testAsset(10*time.Second), 300, 30)
	s.Cancel()
	s.Wait()

	if s.Generation() != uuid.Nil {
		t.Error("cancel should clear the generation")
	}
	if n := s.Drain(func(Frame) {}); n != 0 {
		t.Errorf("expected nothing after cancel, got %d", n)
	}
}

func TestFinishedLoadReleasesContext(t *testing.T) {
	src := &fakeSource{}
	s := New(src, Options{Workers: 2, Logger: zerolog.Nop()})

	cells := s.Load(context.Background(), testAsset(4*time.Second), 120, 30)
	s.Wait()

	src.mu.Lock()
	ctxs := src.ctxs
	src.mu.Unlock()
	if len(ctxs) != len(cells) {
		t.Fatalf("expected %d decodes, got %d", len(cells), len(ctxs))
	}
	for i, ctx := range ctxs {
		if ctx.Err() != context.Canceled {
			t.Errorf("decode %d: context still live after the load finished", i)
		}
	}
	if n := s.Drain(func(Frame) {}); n != len(cells) {
		t.Errorf("expected %d frames after release, got %d", len(cells), n)
	}
}

func TestCacheIsConsulted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	writeFile(t, path)

	src := &fakeSource{}
	mc := &memCache{frames: make(map[string]image.Image)}
	s := New(src, Options{Workers: 1, Cache: mc, Logger: zerolog.Nop()})

	asset := slider.Asset{Path: path, Duration: 4 * time.Second}
	s.Load(context.Background(), asset, 120, 30)
	s.Wait()
	s.Drain(func(Frame) {})

	src.mu.Lock()
	first := len(src.calls)
	src.mu.Unlock()
	if first != 4 {
		t.Fatalf("expected 4 decodes, got %d", first)
	}

	s.Load(context.Background(), asset, 120, 30)
	s.Wait()
	if n := s.Drain(func(Frame) {}); n != 4 {
		t.Errorf("expected 4 cached frames, got %d", n)
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.calls) != first {
		t.Errorf("second load should hit the cache, decoded %d more", len(src.calls)-first)
	}
}

func TestCompose(t *testing.T) {
	red := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			red.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	frames := []Frame{
		{Cell: Cell{Index: 2}, Image: red},
		{Cell: Cell{Index: 0}, Image: red},
	}

	strip := Compose(frames, 3, 10, 10)
	if strip.Bounds().Dx() != 30 || strip.Bounds().Dy() != 10 {
		t.Fatalf("unexpected strip size %v", strip.Bounds())
	}
	if c := strip.NRGBAAt(5, 5); c.R < 250 {
		t.Errorf("cell 0 should be red, got %v", c)
	}
	if c := strip.NRGBAAt(15, 5); c.R != 0 {
		t.Errorf("cell 1 should stay black, got %v", c)
	}
	if c := strip.NRGBAAt(25, 5); c.R < 250 {
		t.Errorf("cell 2 should be red, got %v", c)
	}

	out := filepath.Join(t.TempDir(), "strip.png")
	if err := Save(strip, out); err != nil {
		t.Errorf("Save failed: %v", err)
	}
}
