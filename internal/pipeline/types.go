package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/keagan/cliptrim/internal/ffmpeg"
)

// ErrPastEnd is returned when a clip ends after the end of its video
var ErrPastEnd = errors.New("clip ends after the end of the video")

// Media is the subset of the ffmpeg executor the pipeline drives
type Media interface {
	ProbeVideo(ctx context.Context, path string) (*ffmpeg.VideoInfo, error)
	ExtractClip(ctx context.Context, input string, opts ffmpeg.ClipOptions) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
}

// ExportOptions configures export behavior
type ExportOptions struct {
	OutputDir string
	// Join concatenates the exported clips into JoinOutput afterwards
	Join       bool
	JoinOutput string
	CopyCodec  bool
	// KeepParts keeps the per-clip files after a successful join
	KeepParts bool
	Progress  func(ClipProgress)
}

// ClipProgress reports encoding progress of one clip
type ClipProgress struct {
	Index   int
	Elapsed time.Duration
	Percent float64
}

// Result lists what an export produced
type Result struct {
	Clips  []string
	Joined string
}

// Config holds pipeline-specific configuration
type Config struct {
	Workers int
}
