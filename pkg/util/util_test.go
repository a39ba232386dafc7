package util

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	got := FormatDuration(90*time.Minute + 1500*time.Millisecond)
	if got != "01:30:01.500" {
		t.Errorf("expected 01:30:01.500, got %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]time.Duration{
		"45.5":         45500 * time.Millisecond,
		"01:30":        90 * time.Second,
		"00:01:02.250": 62250 * time.Millisecond,
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseTimestamp("1:2:3:4"); err == nil {
		t.Error("expected error for too many fields")
	}
}

func TestParseTimeBase(t *testing.T) {
	if got := ParseTimeBase("1/15360"); got != 15360 {
		t.Errorf("expected 15360, got %d", got)
	}
	if got := ParseTimeBase("0/0"); got != 0 {
		t.Errorf("expected 0 for a zero denominator, got %d", got)
	}
	if got := ParseTimeBase(""); got != 0 {
		t.Errorf("expected 0 for empty input, got %d", got)
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30000/1001"); got < 29.97 || got > 29.98 {
		t.Errorf("expected ~29.97, got %f", got)
	}
	if got := ParseFrameRate("30/0"); got != 0 {
		t.Errorf("expected 0, got %f", got)
	}
}

func TestFormatClock(t *testing.T) {
	cases := map[time.Duration]string{
		0:                                     "0:00.0",
		1500 * time.Millisecond:               "0:01.5",
		75*time.Second + 250*time.Millisecond: "1:15.2",
		time.Hour + 2*time.Minute:             "1:02:00.0",
		-time.Second:                          "0:00.0",
	}
	for in, want := range cases {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestClipOutputPath(t *testing.T) {
	got := ClipOutputPath("out", "/videos/holiday.mov", 3)
	want := filepath.Join("out", "holiday_clip_03.mov")
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
