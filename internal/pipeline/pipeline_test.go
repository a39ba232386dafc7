package pipeline

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/cliptrim/internal/clips"
	"github.com/keagan/cliptrim/internal/config"
	"github.com/keagan/cliptrim/internal/ffmpeg"
	"github.com/keagan/cliptrim/internal/slider"
)

type fakeMedia struct {
	duration time.Duration
	failAt   time.Duration

	mu      sync.Mutex
	clips   []ffmpeg.ClipOptions
	concats []ffmpeg.ConcatOptions
}

func (f *fakeMedia) ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error) {
	if f.duration == 0 {
		return nil, errors.New("no such file")
	}
	return &ffmpeg.VideoInfo{Duration: f.duration}, nil
}

func (f *fakeMedia) ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error {
	f.mu.Lock()
	f.clips = append(f.clips, opts)
	f.mu.Unlock()

	if f.failAt != 0 && opts.Start == f.failAt {
		return errors.New("encoder exploded")
	}
	if opts.ProgressFunc != nil {
		opts.ProgressFunc(&ffmpeg.Progress{Time: "00:00:00.500000"})
	}
	return os.WriteFile(opts.Output, []byte("clip"), 0644)
}

func (f *fakeMedia) Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error {
	f.mu.Lock()
	f.concats = append(f.concats, opts)
	f.mu.Unlock()
	return os.WriteFile(opts.Output, []byte("joined"), 0644)
}

func testProject(t *testing.T, ranges ...[2]time.Duration) *clips.Project {
	t.Helper()
	p := clips.NewProject("/videos/talk.mp4")
	for _, r := range ranges {
		c, err := clips.New(r[0], r[1], "")
		if err != nil {
			t.Fatal(err)
		}
		p.Clips = append(p.Clips, c)
	}
	return p
}

func TestExportClips(t *testing.T) {
	media := &fakeMedia{duration: 60 * time.Second}
	p := NewWithMedia(zerolog.Nop(), &Config{Workers: 2}, media)
	project := testProject(t,
		[2]time.Duration{0, 5 * time.Second},
		[2]time.Duration{10 * time.Second, 12 * time.Second},
		[2]time.Duration{30 * time.Second, 31 * time.Second},
	)

	var mu sync.Mutex
	var progress []ClipProgress
	dir := t.TempDir()
	result, err := p.Export(context.Background(), project, ExportOptions{
		OutputDir: dir,
		CopyCodec: true,
		Progress: func(pr ClipProgress) {
			mu.Lock()
			progress = append(progress, pr)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := []string{
		filepath.Join(dir, "talk_clip_01.mp4"),
		filepath.Join(dir, "talk_clip_02.mp4"),
		filepath.Join(dir, "talk_clip_03.mp4"),
	}
	if len(result.Clips) != len(want) {
		t.Fatalf("expected %d outputs, got %v", len(want), result.Clips)
	}
	for i := range want {
		if result.Clips[i] != want[i] {
			t.Errorf("output %d: expected %q, got %q", i, want[i], result.Clips[i])
		}
	}
	if result.Joined != "" {
		t.Error("nothing should be joined")
	}

	for _, c := range media.clips {
		if !c.CopyCodec {
			t.Error("copy codec should be passed through")
		}
	}

	sort.Slice(progress, func(i, j int) bool { return progress[i].Index < progress[j].Index })
	if len(progress) != 3 {
		t.Fatalf("expected 3 progress reports, got %d", len(progress))
	}
	if progress[0].Percent != 10 || progress[2].Percent != 50 {
		t.Errorf("unexpected progress %+v", progress)
	}
}

func TestExportJoin(t *testing.T) {
	media := &fakeMedia{duration: 60 * time.Second}
	p := NewWithMedia(zerolog.Nop(), nil, media)
	project := testProject(t,
		[2]time.Duration{0, 5 * time.Second},
		[2]time.Duration{10 * time.Second, 12 * time.Second},
	)

	dir := t.TempDir()
	joined := filepath.Join(dir, "joined.mp4")
	result, err := p.Export(context.Background(), project, ExportOptions{
		OutputDir:  dir,
		Join:       true,
		JoinOutput: joined,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.Joined != joined {
		t.Errorf("expected joined output %q, got %q", joined, result.Joined)
	}
	if len(media.concats) != 1 || len(media.concats[0].Inputs) != 2 {
		t.Fatalf("expected one concat of two inputs, got %+v", media.concats)
	}
	if !media.concats[0].ReEncode {
		t.Error("concat should re-encode when clips are re-encoded")
	}
	for _, in := range media.concats[0].Inputs {
		if _, err := os.Stat(in); !os.IsNotExist(err) {
			t.Errorf("part %s should be removed after join", in)
		}
	}
}

func TestExportValidation(t *testing.T) {
	media := &fakeMedia{duration: 10 * time.Second}
	p := NewWithMedia(zerolog.Nop(), nil, media)
	dir := t.TempDir()

	if _, err := p.Export(context.Background(), nil, ExportOptions{OutputDir: dir}); err == nil {
		t.Error("expected error for nil project")
	}
	if _, err := p.Export(context.Background(), clips.NewProject("/x.mp4"), ExportOptions{OutputDir: dir}); err == nil {
		t.Error("expected error for empty project")
	}

	project := testProject(t, [2]time.Duration{0, time.Second})
	if _, err := p.Export(context.Background(), project, ExportOptions{}); err == nil {
		t.Error("expected error for missing output dir")
	}
	if _, err := p.Export(context.Background(), project, ExportOptions{OutputDir: dir, Join: true}); err == nil {
		t.Error("expected error for missing join output")
	}

	long := testProject(t, [2]time.Duration{5 * time.Second, 15 * time.Second})
	if _, err := p.Export(context.Background(), long, ExportOptions{OutputDir: dir}); !errors.Is(err, ErrPastEnd) {
		t.Errorf("expected ErrPastEnd for a clip past the end, got %v", err)
	}
	if len(media.clips) != 0 {
		t.Error("nothing should be extracted when validation fails")
	}

	missing := NewWithMedia(zerolog.Nop(), nil, &fakeMedia{})
	if _, err := missing.Export(context.Background(), project, ExportOptions{OutputDir: dir}); err == nil {
		t.Error("expected probe error")
	}
}

func TestExportFailureCleansUp(t *testing.T) {
	media := &fakeMedia{duration: 60 * time.Second, failAt: 10 * time.Second}
	p := NewWithMedia(zerolog.Nop(), &Config{Workers: 1}, media)
	project := testProject(t,
		[2]time.Duration{0, 5 * time.Second},
		[2]time.Duration{10 * time.Second, 12 * time.Second},
		[2]time.Duration{20 * time.Second, 22 * time.Second},
	)

	dir := t.TempDir()
	if _, err := p.Export(context.Background(), project, ExportOptions{OutputDir: dir}); err == nil {
		t.Fatal("expected export to fail")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected partial outputs removed, found %d files", len(entries))
	}
}

func TestExportCancelled(t *testing.T) {
	media := &fakeMedia{duration: 60 * time.Second}
	p := NewWithMedia(zerolog.Nop(), nil, media)
	project := testProject(t, [2]time.Duration{0, 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Export(ctx, project, ExportOptions{OutputDir: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExportWithFFmpeg(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH")
	}

	dir := t.TempDir()
	source := filepath.Join(dir, "source.mp4")
	cmd := exec.Command("ffmpeg", "-f", "lavfi", "-i", "testsrc=duration=4:size=160x120:rate=25",
		"-pix_fmt", "yuv420p", "-y", source)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to generate test video: %v\n%s", err, out)
	}

	cfg := config.Default()
	cfg.Concurrency = 2
	p, err := New(zerolog.Nop(), nil, cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	project := clips.NewProject(source)
	a, _ := clips.New(0, time.Second, "")
	b, _ := clips.New(2*time.Second, 3*time.Second, "")
	project.Clips = append(project.Clips, a, b)

	joined := filepath.Join(dir, "out", "joined.mp4")
	result, err := p.Export(context.Background(), project, ExportOptions{
		OutputDir:  filepath.Join(dir, "out"),
		Join:       true,
		JoinOutput: joined,
		KeepParts:  true,
	})
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	for _, path := range append(result.Clips, result.Joined) {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected output %s: %v", path, err)
		}
	}
}

func TestExportFullRangeClip(t *testing.T) {
	d := 10*time.Second + 10*time.Millisecond
	model := slider.NewModel()
	model.SetAsset(&slider.Asset{Path: "/videos/talk.mp4", Duration: d, Timescale: 15360})

	start, end, err := model.Bounds()
	if err != nil {
		t.Fatal(err)
	}
	c, err := clips.New(start, end, "")
	if err != nil {
		t.Fatal(err)
	}
	project := clips.NewProject("/videos/talk.mp4")
	project.Clips = append(project.Clips, c)

	media := &fakeMedia{duration: d}
	p := NewWithMedia(zerolog.Nop(), &Config{Workers: 1}, media)
	result, err := p.Export(context.Background(), project, ExportOptions{OutputDir: t.TempDir()})
	if err != nil {
		t.Fatalf("full-range clip rejected: %v", err)
	}
	if len(result.Clips) != 1 || media.clips[0].End != d {
		t.Errorf("expected one clip ending at %v, got %+v", d, media.clips)
	}
}
