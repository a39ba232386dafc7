package config

import (
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	OutputDir   string `yaml:"output_dir"`
	Concurrency int    `yaml:"concurrency"`

	FFmpeg     FFmpegConfig    `yaml:"ffmpeg"`
	Slider     SliderConfig    `yaml:"slider"`
	Thumbnails ThumbnailConfig `yaml:"thumbnails"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Preset     string `yaml:"preset"`
	CRF        int    `yaml:"crf"`
	CopyCodec  bool   `yaml:"copy_codec"`
}

// SliderConfig tunes the range slider handles
type SliderConfig struct {
	HandleWidth     float64       `yaml:"handle_width"`
	MinRange        time.Duration `yaml:"min_range"`
	TintColor       string        `yaml:"tint_color"`
	MiddleTintColor string        `yaml:"middle_tint_color"`
	ShowLower       bool          `yaml:"show_lower"`
	ShowMiddle      bool          `yaml:"show_middle"`
	ShowUpper       bool          `yaml:"show_upper"`
}

// ThumbnailConfig controls the background frame strip
type ThumbnailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Height   int    `yaml:"height"`
	Cache    bool   `yaml:"cache"`
	CacheDir string `yaml:"cache_dir"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the slider and pipeline cannot work with
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Slider.HandleWidth <= 0 {
		return fmt.Errorf("slider.handle_width must be positive, got %v", c.Slider.HandleWidth)
	}
	if c.Slider.MinRange < 0 {
		return fmt.Errorf("slider.min_range must not be negative, got %v", c.Slider.MinRange)
	}
	if _, err := ParseColor(c.Slider.TintColor); err != nil {
		return fmt.Errorf("slider.tint_color: %w", err)
	}
	if _, err := ParseColor(c.Slider.MiddleTintColor); err != nil {
		return fmt.Errorf("slider.middle_tint_color: %w", err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:     "./work",
		OutputDir:   "./output",
		Concurrency: 4,
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Slider: SliderConfig{
			HandleWidth:     15,
			MinRange:        time.Second,
			TintColor:       "#F7B530",
			MiddleTintColor: "#00FF00",
			ShowLower:       true,
			ShowMiddle:      true,
			ShowUpper:       true,
		},
		Thumbnails: ThumbnailConfig{
			Enabled:  true,
			Height:   90,
			Cache:    true,
			CacheDir: filepath.Join("~", ".cliptrim", "thumbs"),
		},
	}
}

// Default returns a fresh copy of the built-in configuration
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./cliptrim.yaml",
		"./cliptrim.yml",
		filepath.Join(os.Getenv("HOME"), ".cliptrim", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// ParseColor parses #RRGGBB or #RRGGBBAA
func ParseColor(s string) (color.NRGBA, error) {
	c := color.NRGBA{A: 0xff}
	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%2x%2x%2x", &c.R, &c.G, &c.B)
	case 9:
		_, err = fmt.Sscanf(s, "#%2x%2x%2x%2x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = fmt.Errorf("expected #RRGGBB or #RRGGBBAA, got %q", s)
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
