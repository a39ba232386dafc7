package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/keagan/cliptrim/pkg/util"
)

// DecodeFrame grabs the frame at timestamp and returns it decoded.
// A positive height scales the frame to that height first.
func (e *Executor) DecodeFrame(ctx context.Context, input string, at time.Duration, height int) (image.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}

	args := []string{
		"-ss", util.FormatDuration(at),
		"-i", input,
		"-frames:v", "1",
	}
	if vf := NewFilterBuilder().ScaleHeight(height).Build(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-f", "image2pipe", "-c:v", "png", "pipe:1")

	var out bytes.Buffer
	opts := RunOptions{
		Args:   args,
		Stdout: &out,
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("frame decode")
		},
	}

	if err := e.Run(ctx, opts); err != nil {
		return nil, fmt.Errorf("frame decode at %v failed: %w", at, err)
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("no frame at %v", at)
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return img, nil
}

// ExtractFrame writes the frame at timestamp to output as a JPEG
func (e *Executor) ExtractFrame(ctx context.Context, input string, at time.Duration, output string) error {
	if input == "" {
		return fmt.Errorf("input path is required")
	}
	if output == "" {
		return fmt.Errorf("output path is required")
	}

	e.logger.Debug().
		Str("input", input).
		Str("output", output).
		Dur("timestamp", at).
		Msg("extracting frame")

	opts := RunOptions{
		Args: []string{
			"-ss", util.FormatDuration(at),
			"-i", input,
			"-vframes", "1",
			"-q:v", "2", // high quality JPEG
			output,
		},
		LogHandler: func(line string) {
			e.logger.Trace().Str("ffmpeg", line).Msg("frame extraction")
		},
	}

	return e.Run(ctx, opts)
}
