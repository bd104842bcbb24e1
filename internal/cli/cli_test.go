package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/billdoc/internal/inspect"
)

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

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseRooms(t *testing.T) {
	tests := []struct {
		name    string
		values  []string
		want    map[int]string
		wantErr bool
	}{
		{"empty", nil, map[int]string{}, false},
		{"two rooms", []string{"1=a.png", "6=b.jpg"}, map[int]string{0: "a.png", 5: "b.jpg"}, false},
		{"spaces trimmed", []string{" 8 = c.png"}, map[int]string{7: "c.png"}, false},
		{"path with equals", []string{"2=x=y.png"}, map[int]string{1: "x=y.png"}, false},
		{"missing path", []string{"1="}, nil, true},
		{"missing separator", []string{"a.png"}, nil, true},
		{"not a number", []string{"one=a.png"}, nil, true},
		{"room zero", []string{"0=a.png"}, nil, true},
		{"room too high", []string{"9=a.png"}, nil, true},
		{"duplicate", []string{"1=a.png", "1=b.png"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRooms(tt.values, 8)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("room %d = %q, want %q", k+1, got[k], v)
				}
			}
		})
	}
}

func TestGenerateAndInspect(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	b := writePNG(t, dir, "b.png")
	c := writePNG(t, dir, "c.png")
	dest := filepath.Join(dir, "bills.docx")

	out, err := run(t, "generate", "--room", "6="+b, "--room", "1="+a, "--room", "8="+c, "-o", dest)
	if err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Document saved to "+dest) || !strings.Contains(out, "2 page(s)") {
		t.Errorf("output = %q", out)
	}

	out, err = run(t, "inspect", "--json", dest)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	var outline inspect.Outline
	if err := json.Unmarshal([]byte(out), &outline); err != nil {
		t.Fatalf("decode outline: %v\n%s", err, out)
	}
	if got := strings.Join(outline.Labels(), ","); got != "Room 1,Room 6,Room 8" {
		t.Errorf("labels = %s", got)
	}
	if outline.Title != "Monthly Bills Summary" {
		t.Errorf("title = %q", outline.Title)
	}

	out, err = run(t, "inspect", dest)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	for _, want := range []string{"Bills (Page 1)", "Bills (Page 2)", "landscape", "(empty)"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}

func TestGenerate_LayoutFlags(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "bills.docx")
	args := []string{"generate", "--orientation", "portrait", "--per-page", "3", "-o", dest}
	for i := 1; i <= 3; i++ {
		args = append(args, "--room", fmt.Sprintf("%d=%s", i, writePNG(t, dir, fmt.Sprintf("%d.png", i))))
	}
	if out, err := run(t, args...); err != nil {
		t.Fatalf("generate: %v\n%s", err, out)
	}

	outline, err := inspect.ReadFile(dest)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if outline.Landscape() {
		t.Error("expected portrait")
	}
	if len(outline.Pages) != 1 || len(outline.Pages[0].Cells) != 3 {
		t.Errorf("pages = %+v", outline.Pages)
	}
}

func TestGenerate_EmptyOutputIsNoOp(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png")
	out, err := run(t, "generate", "--room", "1="+a)
	if err != nil {
		t.Fatalf("expected silent success, got %v", err)
	}
	if strings.Contains(out, "Document saved") {
		t.Errorf("output = %q", out)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the input file, got %d entries", len(entries))
	}
}

func TestGenerate_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	os.WriteFile(bad, []byte("not an image"), 0o644)
	dest := filepath.Join(dir, "bills.docx")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no rooms", []string{"generate", "-o", dest}, "no bill screenshots selected"},
		{"unsupported", []string{"generate", "--room", "1=a.gif", "-o", dest}, "unsupported file type"},
		{"undecodable", []string{"generate", "--room", "2=" + bad, "-o", dest}, "failed to load image"},
		{"bad layout", []string{"generate", "--room", "1=" + bad, "--orientation", "sideways", "-o", dest}, "invalid configuration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want %q", err, tt.want)
			}
			if _, err := os.Stat(dest); !os.IsNotExist(err) {
				t.Errorf("document written on failure")
			}
		})
	}
}
