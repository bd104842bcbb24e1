package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestIsSupportedExtension(t *testing.T) {
	tests := map[string]bool{
		"bill.png":      true,
		"bill.PNG":      true,
		"bill.jpg":      true,
		"bill.jpeg":     true,
		"bill.gif":      false,
		"bill.pdf":      false,
		"no-extension":  false,
		"dir.png/other": false,
	}
	for name, want := range tests {
		if got := IsSupportedExtension(name); got != want {
			t.Errorf("IsSupportedExtension(%q): expected %v, got %v", name, want, got)
		}
	}
}

func TestExtensions_Sorted(t *testing.T) {
	got := Extensions()
	want := []string{".jpeg", ".jpg", ".png"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestLoad_BoundsLongestSide(t *testing.T) {
	path := writePNG(t, t.TempDir(), "wide.png", 600, 300)
	p, err := Load(path, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Width != 600 || p.Height != 300 {
		t.Errorf("expected source 600x300, got %dx%d", p.Width, p.Height)
	}
	w, h := p.ThumbSize()
	if w != 150 || h != 75 {
		t.Errorf("expected thumb 150x75, got %dx%d", w, h)
	}
	if len(p.PNG) == 0 {
		t.Error("expected encoded preview bytes")
	}
	if _, err := png.Decode(bytes.NewReader(p.PNG)); err != nil {
		t.Errorf("preview is not a valid png: %v", err)
	}
}

func TestLoad_TallImage(t *testing.T) {
	path := writePNG(t, t.TempDir(), "tall.png", 200, 800)
	p, err := Load(path, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, h := p.ThumbSize()
	if h != 150 || w > 150 {
		t.Errorf("expected height bounded to 150, got %dx%d", w, h)
	}
}

func TestLoad_SmallImageNotUpscaled(t *testing.T) {
	path := writePNG(t, t.TempDir(), "small.png", 40, 20)
	p, err := Load(path, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, h := p.ThumbSize()
	if w != 40 || h != 20 {
		t.Errorf("expected thumb to stay 40x20, got %dx%d", w, h)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.png")
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path, 150)
	if err == nil {
		t.Fatal("expected decode error")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %T", err)
	}
	if de.Path != path {
		t.Errorf("expected path %q, got %q", path, de.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.png"), 150)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
}
