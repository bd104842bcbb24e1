package tui

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/inspect"
	"github.com/dgallion1/billdoc/internal/layout"
	"github.com/dgallion1/billdoc/internal/slots"
)

func newTestForm(t *testing.T) *Form {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(slots.NewCollector(8, 150), assembler.New(layout.DefaultConfig(), log), log)
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewGray(image.Rect(0, 0, 40, 60))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(f *Form, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = f.Update(key(k))
	}
	return cmd
}

// drain feeds command results back into the form until it goes quiet.
func drain(t *testing.T, f *Form, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 1000 {
			t.Fatal("form did not settle")
		}
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = f.Update(msg)
	}
}

// selectSlot moves to row idx and types path into the slot prompt.
func selectSlot(f *Form, idx int, path string) {
	for f.cursor < idx {
		press(f, "down")
	}
	press(f, "enter")
	f.input.SetValue(path)
	press(f, "enter")
}

func TestGenerateWithoutImagesShowsWarning(t *testing.T) {
	f := newTestForm(t)
	press(f, "g")
	if f.mode != modeBrowse {
		t.Fatalf("mode = %v, expected no destination prompt", f.mode)
	}
	if f.message != msgNoImages {
		t.Fatalf("message = %q", f.message)
	}

	press(f, "x")
	if f.message != "" {
		t.Fatalf("message not dismissed: %q", f.message)
	}
}

func TestSelectImage(t *testing.T) {
	f := newTestForm(t)
	path := writePNG(t, t.TempDir(), "water.png")

	selectSlot(f, 2, path)
	sl, _ := f.collector.Slot(2)
	if sl.Path != path {
		t.Fatalf("slot 2 path = %q", sl.Path)
	}
	if !strings.Contains(f.status, "Room 3") {
		t.Errorf("status = %q", f.status)
	}
	view := f.View()
	if !strings.Contains(view, "water.png") || !strings.Contains(view, "40x60") {
		t.Errorf("view missing selection:\n%s", view)
	}
	if !strings.Contains(view, "No image selected") {
		t.Errorf("view missing empty rows:\n%s", view)
	}
}

func TestSelectImage_RejectedKeepsSlot(t *testing.T) {
	f := newTestForm(t)
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png")
	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("not an image"), 0o644)

	selectSlot(f, 0, good)
	selectSlot(f, 0, bad)
	if !strings.HasPrefix(f.message, "Failed to load image:") {
		t.Fatalf("message = %q", f.message)
	}
	sl, _ := f.collector.Slot(0)
	if sl.Path != good {
		t.Fatalf("slot path = %q, want %q", sl.Path, good)
	}

	press(f, "enter") // dismiss
	selectSlot(f, 0, filepath.Join(dir, "bill.gif"))
	if !strings.HasPrefix(f.message, "Unsupported file type") {
		t.Fatalf("message = %q", f.message)
	}
}

func TestDestinationEscIsSilent(t *testing.T) {
	f := newTestForm(t)
	selectSlot(f, 0, writePNG(t, t.TempDir(), "a.png"))
	status := f.status

	press(f, "g")
	if f.mode != modeDestination {
		t.Fatalf("mode = %v", f.mode)
	}
	press(f, "esc")
	if f.mode != modeBrowse || f.message != "" || f.status != status || f.percent != 0 {
		t.Fatalf("esc changed state: mode=%v message=%q status=%q percent=%v", f.mode, f.message, f.status, f.percent)
	}
}

func TestEmptyDestinationIsSilent(t *testing.T) {
	f := newTestForm(t)
	selectSlot(f, 0, writePNG(t, t.TempDir(), "a.png"))

	press(f, "g")
	f.input.SetValue("   ")
	drain(t, f, press(f, "enter"))
	if f.message != "" || f.status != statusReady || f.percent != 0 {
		t.Fatalf("message=%q status=%q percent=%v", f.message, f.status, f.percent)
	}
}

func TestGenerate(t *testing.T) {
	f := newTestForm(t)
	dir := t.TempDir()
	selectSlot(f, 0, writePNG(t, dir, "a.png"))
	selectSlot(f, 5, writePNG(t, dir, "b.png"))
	selectSlot(f, 7, writePNG(t, dir, "c.png"))

	press(f, "g")
	f.input.SetValue(filepath.Join(dir, "october"))
	drain(t, f, press(f, "enter"))

	dest := filepath.Join(dir, "october.docx")
	if f.status != "Document saved to "+dest {
		t.Fatalf("status = %q", f.status)
	}
	if f.percent != 1 || f.mode != modeBrowse {
		t.Fatalf("percent=%v mode=%v", f.percent, f.mode)
	}

	outline, err := inspect.ReadFile(dest)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if len(outline.Pages) != 2 {
		t.Fatalf("pages = %d", len(outline.Pages))
	}
	if got := strings.Join(outline.Labels(), ","); got != "Room 1,Room 6,Room 8" {
		t.Fatalf("labels = %s", got)
	}
}

func TestGenerate_StalledReaderStillGetsResult(t *testing.T) {
	f := newTestForm(t)
	dir := t.TempDir()
	for i := 0; i < 8; i++ {
		selectSlot(f, i, writePNG(t, dir, fmt.Sprintf("%d.png", i)))
	}

	f.startGenerate(filepath.Join(dir, "bills.docx"))
	ch := f.events

	deadline := time.Now().Add(5 * time.Second)
	for len(ch) < cap(ch) {
		if time.Now().After(deadline) {
			t.Fatalf("generation stalled with %d of %d messages queued", len(ch), cap(ch))
		}
		time.Sleep(10 * time.Millisecond)
	}

	var last tea.Msg
	for i := 0; i < cap(ch); i++ {
		last = <-ch
	}
	if _, ok := last.(generatedMsg); !ok {
		t.Fatalf("expected the result as the final queued message, got %T", last)
	}
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected the channel to close after the result")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("generation goroutine did not exit")
	}
}

func TestGenerate_MissingFileWarns(t *testing.T) {
	f := newTestForm(t)
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	b := writePNG(t, dir, "b.png")
	selectSlot(f, 0, a)
	selectSlot(f, 1, b)
	os.Remove(b)

	press(f, "g")
	f.input.SetValue(filepath.Join(dir, "out.docx"))
	drain(t, f, press(f, "enter"))

	if !strings.Contains(f.message, "room 2: embed b.png") {
		t.Fatalf("message = %q", f.message)
	}
	if !strings.HasPrefix(f.status, "Document saved to") {
		t.Fatalf("status = %q", f.status)
	}
}
