package slots

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/billdoc/internal/preview"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestCollector_EmptyHasNothingFilled(t *testing.T) {
	c := NewCollector(8, 150)
	if c.Len() != 8 {
		t.Fatalf("expected 8 slots, got %d", c.Len())
	}
	if c.HasAnyFilled() {
		t.Error("expected no filled slots")
	}
	if snap := c.Snapshot(); snap.Len() != 0 {
		t.Errorf("expected empty snapshot, got %d entries", snap.Len())
	}
}

func TestCollector_SetStoresPathAndPreview(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "room3.png", 300, 600)

	c := NewCollector(8, 150)
	if err := c.Set(2, path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.HasAnyFilled() {
		t.Error("expected a filled slot")
	}
	s, ok := c.Slot(2)
	if !ok {
		t.Fatal("expected slot 2 to exist")
	}
	if s.Path != path {
		t.Errorf("expected path %q, got %q", path, s.Path)
	}
	if s.Preview == nil {
		t.Fatal("expected a preview")
	}
	if w, h := s.Preview.ThumbSize(); w > 150 || h > 150 {
		t.Errorf("preview exceeds bound: %dx%d", w, h)
	}
}

func TestCollector_ReuploadReplacesOnlyThatSlot(t *testing.T) {
	dir := t.TempDir()
	first := writePNG(t, dir, "first.png", 100, 100)
	second := writePNG(t, dir, "second.png", 300, 100)
	other := writePNG(t, dir, "other.png", 50, 50)

	c := NewCollector(8, 150)
	if err := c.Set(1, first); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(4, other); err != nil {
		t.Fatal(err)
	}
	before, _ := c.Slot(1)
	otherBefore, _ := c.Slot(4)

	if err := c.Set(1, second); err != nil {
		t.Fatal(err)
	}
	after, _ := c.Slot(1)
	if after.Path != second {
		t.Errorf("expected path %q, got %q", second, after.Path)
	}
	if after.Preview == before.Preview {
		t.Error("expected the prior preview to be replaced")
	}
	if after.Preview.Width != 300 {
		t.Errorf("expected new preview source width 300, got %d", after.Preview.Width)
	}

	otherAfter, _ := c.Slot(4)
	if otherAfter.Path != otherBefore.Path || otherAfter.Preview != otherBefore.Preview {
		t.Error("expected other slots to be unaffected")
	}
}

func TestCollector_DecodeFailureKeepsPriorValue(t *testing.T) {
	dir := t.TempDir()
	good := writePNG(t, dir, "good.png", 10, 10)
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewCollector(8, 150)
	if err := c.Set(3, good); err != nil {
		t.Fatal(err)
	}

	err := c.Set(3, bad)
	if err == nil {
		t.Fatal("expected decode error")
	}
	var de *ImageDecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *ImageDecodeError, got %T", err)
	}
	if de.Slot != 3 {
		t.Errorf("expected slot 3, got %d", de.Slot)
	}
	var pe *preview.DecodeError
	if !errors.As(err, &pe) {
		t.Error("expected the preview decode error to be wrapped")
	}

	s, _ := c.Slot(3)
	if s.Path != good {
		t.Errorf("expected slot to keep %q, got %q", good, s.Path)
	}
}

func TestCollector_DecodeFailureOnEmptySlot(t *testing.T) {
	c := NewCollector(8, 150)
	if err := c.Set(0, filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Fatal("expected error")
	}
	if c.HasAnyFilled() {
		t.Error("expected slot to stay empty")
	}
}

func TestCollector_OutOfRange(t *testing.T) {
	c := NewCollector(8, 150)
	for _, idx := range []int{-1, 8, 100} {
		err := c.Set(idx, "whatever.png")
		if !errors.Is(err, ErrSlotOutOfRange) {
			t.Errorf("Set(%d): expected ErrSlotOutOfRange, got %v", idx, err)
		}
	}
	if _, ok := c.Slot(8); ok {
		t.Error("expected Slot(8) to be missing")
	}
}

func TestCollector_SnapshotOrderAndIsolation(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", 10, 10)
	b := writePNG(t, dir, "b.png", 10, 10)
	z := writePNG(t, dir, "z.png", 10, 10)

	c := NewCollector(8, 150)
	// Fill out of order.
	for _, step := range []struct {
		idx  int
		path string
	}{{5, b}, {0, a}} {
		if err := c.Set(step.idx, step.path); err != nil {
			t.Fatal(err)
		}
	}

	snap := c.Snapshot()
	if snap.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", snap.Len())
	}
	if snap.Entries[0] != (Entry{Slot: 0, Path: a}) || snap.Entries[1] != (Entry{Slot: 5, Path: b}) {
		t.Errorf("unexpected entries: %+v", snap.Entries)
	}

	// Later edits do not leak into the snapshot.
	if err := c.Set(7, z); err != nil {
		t.Fatal(err)
	}
	if snap.Len() != 2 {
		t.Errorf("snapshot changed after edit: %+v", snap.Entries)
	}
	idx := snap.SlotIndexes()
	if len(idx) != 2 || idx[0] != 0 || idx[1] != 5 {
		t.Errorf("unexpected slot indexes: %v", idx)
	}
}

func TestNewSnapshot_SortsAndSkipsEmpty(t *testing.T) {
	snap := NewSnapshot(map[int]string{5: "f.png", 0: "a.png", 3: ""})
	if snap.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", snap.Len())
	}
	if snap.Entries[0].Slot != 0 || snap.Entries[1].Slot != 5 {
		t.Errorf("unexpected order: %+v", snap.Entries)
	}
}

func TestNewSnapshot_DoesNotCheckFiles(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.png")
	snap := NewSnapshot(map[int]string{1: missing})
	if snap.Len() != 1 || snap.Entries[0].Path != missing {
		t.Errorf("expected the missing path to be kept, got %+v", snap.Entries)
	}
}
