package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/keagan/cliptrim/internal/config"
	"github.com/keagan/cliptrim/internal/slider"
)

func newTestScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	t.Cleanup(screen.Fini)
	screen.SetSize(44, 10)
	return screen
}

func newTestView(t *testing.T, asset *slider.Asset) (*View, tcell.SimulationScreen) {
	t.Helper()
	screen := newTestScreen(t)
	opts, err := OptionsFromConfig(config.Default(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	model := slider.NewModel()
	model.SetAsset(asset)
	return New(screen, model, opts), screen
}

func readLine(screen tcell.Screen, y int) string {
	w, _ := screen.Size()
	runes := make([]rune, w)
	for x := 0; x < w; x++ {
		ch, _, _, _ := screen.GetContent(x, y)
		if ch == 0 {
			ch = ' '
		}
		runes[x] = ch
	}
	return strings.TrimRight(string(runes), " ")
}

func key(k tcell.Key, r rune) *tcell.EventKey {
	return tcell.NewEventKey(k, r, tcell.ModNone)
}

func TestTrackSpansScreen(t *testing.T) {
	v, _ := newTestView(t, nil)
	if w := v.Controller().Track().Width; w != 40 {
		t.Errorf("expected track width 40, got %v", w)
	}
}

func TestDrawHandles(t *testing.T) {
	asset := &slider.Asset{Path: "/videos/talk.mp4", Duration: 39 * time.Second}
	v, screen := newTestView(t, asset)
	v.Draw()

	if title := readLine(screen, 0); !strings.HasPrefix(title, "talk.mp4") {
		t.Errorf("unexpected title %q", title)
	}
	if ch, _, _, _ := screen.GetContent(marginX+39, trackY); ch != '▌' {
		t.Errorf("expected upper handle at the right edge, got %q", ch)
	}
	if ch, _, _, _ := screen.GetContent(marginX+20, trackY+1); ch != '─' {
		t.Errorf("expected track line, got %q", ch)
	}
	times := readLine(screen, trackY+trackRows+1)
	if !strings.Contains(times, "End 0:39.0") {
		t.Errorf("unexpected times line %q", times)
	}
}

func TestMouseDragLower(t *testing.T) {
	asset := &slider.Asset{Path: "talk.mp4", Duration: 39 * time.Second}
	v, _ := newTestView(t, asset)

	v.HandleEvent(tcell.NewEventMouse(marginX, trackY+1, tcell.Button1, tcell.ModNone))
	if v.Controller().State() != slider.DraggingLower {
		t.Fatalf("expected lower drag, got %v", v.Controller().State())
	}
	v.HandleEvent(tcell.NewEventMouse(marginX+10, trackY+1, tcell.Button1, tcell.ModNone))
	v.HandleEvent(tcell.NewEventMouse(marginX+10, trackY+1, tcell.ButtonNone, tcell.ModNone))

	if v.Controller().State() != slider.Idle {
		t.Error("release should end the drag")
	}
	start, err := v.Controller().Model().StartTime()
	if err != nil {
		t.Fatal(err)
	}
	if start.Duration() != 10*time.Second {
		t.Errorf("expected start at 10s, got %v", start.Duration())
	}
	if v.focus != slider.HandleLower {
		t.Errorf("pressed handle should take focus, got %v", v.focus)
	}
}

func TestKeyboardNudge(t *testing.T) {
	v, _ := newTestView(t, nil)
	m := v.Controller().Model()

	v.HandleEvent(key(tcell.KeyRight, 0))
	if want := 1.0 / 39; abs(m.Middle()-want) > 1e-9 {
		t.Errorf("expected playhead %v, got %v", want, m.Middle())
	}

	v.HandleEvent(key(tcell.KeyTab, 0))
	if v.focus != slider.HandleUpper {
		t.Fatalf("tab should move focus to upper, got %v", v.focus)
	}
	v.HandleEvent(key(tcell.KeyLeft, 0))
	if want := 1 - 1.0/39; abs(m.Upper()-want) > 1e-9 {
		t.Errorf("expected upper %v, got %v", want, m.Upper())
	}

	v.HandleEvent(key(tcell.KeyTab, 0))
	if v.focus != slider.HandleLower {
		t.Fatalf("tab should wrap to lower, got %v", v.focus)
	}
	v.HandleEvent(key(tcell.KeyRune, 'l'))
	if want := 1.0 / 39; abs(m.Lower()-want) > 1e-9 {
		t.Errorf("expected lower %v, got %v", want, m.Lower())
	}

	v.HandleEvent(key(tcell.KeyRune, 'r'))
	if m.Lower() != 0 || m.Upper() != 1 {
		t.Error("r should reset the handles")
	}
}

func TestNudgeIgnoredDuringMouseDrag(t *testing.T) {
	asset := &slider.Asset{Path: "talk.mp4", Duration: 39 * time.Second}
	v, _ := newTestView(t, asset)
	c := v.Controller()

	v.HandleEvent(tcell.NewEventMouse(marginX, trackY+1, tcell.Button1, tcell.ModNone))
	v.HandleEvent(key(tcell.KeyTab, 0))
	v.HandleEvent(key(tcell.KeyTab, 0))
	if v.focus != slider.HandleUpper {
		t.Fatalf("expected focus on upper, got %v", v.focus)
	}
	v.HandleEvent(key(tcell.KeyLeft, 0))

	if c.State() != slider.DraggingLower {
		t.Errorf("mouse drag should keep the lower handle, got %v", c.State())
	}
	if c.Highlighted(slider.HandleUpper) || !c.Highlighted(slider.HandleLower) {
		t.Error("only the dragged handle may be highlighted")
	}
	if c.Model().Upper() != 1 {
		t.Errorf("upper moved during a mouse drag: %v", c.Model().Upper())
	}
}

func TestEnterAddsClipWithinDuration(t *testing.T) {
	d := 10*time.Second + 10*time.Millisecond
	v, _ := newTestView(t, &slider.Asset{Path: "talk.mp4", Duration: d, Timescale: 15360})
	v.HandleEvent(key(tcell.KeyEnter, 0))
	if v.Clips().Len() != 1 {
		t.Fatalf("expected one clip, got %d", v.Clips().Len())
	}
	if c := v.Clips().All()[0]; c.End != d {
		t.Errorf("clip end = %v, want video end %v", c.End, d)
	}
}

func TestEnterAddsClip(t *testing.T) {
	v, _ := newTestView(t, nil)
	v.HandleEvent(key(tcell.KeyEnter, 0))
	if v.Clips().Len() != 0 || v.status != "no video loaded" {
		t.Errorf("no clip expected without a video, status %q", v.status)
	}

	asset := &slider.Asset{Path: "talk.mp4", Duration: 39 * time.Second}
	v, _ = newTestView(t, asset)
	v.HandleEvent(key(tcell.KeyEnter, 0))
	if v.Clips().Len() != 1 {
		t.Fatalf("expected one clip, got %d", v.Clips().Len())
	}
	c := v.Clips().All()[0]
	if c.Start != 0 || c.End != 39*time.Second {
		t.Errorf("unexpected clip %v", c)
	}
}

func TestQuitKeys(t *testing.T) {
	v, _ := newTestView(t, nil)
	if v.HandleEvent(key(tcell.KeyRune, 'q')) {
		t.Error("q should quit")
	}
	if v.HandleEvent(key(tcell.KeyEscape, 0)) {
		t.Error("escape should quit")
	}
	if !v.HandleEvent(key(tcell.KeyRune, 'x')) {
		t.Error("other keys should keep running")
	}
}

func TestRunStopsOnQuit(t *testing.T) {
	v, screen := newTestView(t, nil)
	go func() {
		screen.PostEvent(key(tcell.KeyRune, 'q'))
	}()
	if err := v.Run(context.Background()); err != nil {
		t.Errorf("expected clean exit, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	v, _ := newTestView(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := v.Run(ctx); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
