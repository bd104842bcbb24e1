package session

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/layout"
	"github.com/dgallion1/billdoc/internal/slots"
)

// Status represents the generation state of a session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// ErrGenerationInProgress rejects a second generate on a busy session.
var ErrGenerationInProgress = errors.New("generation already in progress")

// Status lines shown to the user.
const (
	msgReady      = "Select bill screenshots, then generate the document."
	msgGenerating = "Generating document..."
	msgNoImages   = "Please select at least one bill screenshot."
)

// Session is one user's form: a slot collector, its upload directory and the
// outcome of the last generation.
type Session struct {
	mu sync.Mutex

	ID  string
	Dir string

	// uploadMu orders collector updates with the uploads map.
	uploadMu  sync.Mutex
	collector *slots.Collector
	perPage   int
	uploads   map[int]string
	stale     []string // replaced uploads a running generation may still read

	status   Status
	progress int
	message  string
	warnings []string
	output   string
	pages    int

	CreatedAt time.Time
	UpdatedAt time.Time
}

func newSession(id, dir string, slotCount, maxSide, perPage int) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Dir:       dir,
		collector: slots.NewCollector(slotCount, maxSide),
		perPage:   perPage,
		uploads:   make(map[int]string),
		status:    StatusIdle,
		message:   msgReady,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Collector exposes the session's slots for read access.
func (s *Session) Collector() *slots.Collector {
	return s.collector
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdatedAt = time.Now()
}

// Upload stores r as the image for slot idx. The bytes land in a fresh file so
// a failed decode never clobbers the slot's current image.
func (s *Session) Upload(idx int, filename string, r io.Reader) error {
	if idx < 0 || idx >= s.collector.Len() {
		return fmt.Errorf("%w: %d", slots.ErrSlotOutOfRange, idx)
	}

	dir := filepath.Join(s.Dir, "uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	f, err := os.CreateTemp(dir, fmt.Sprintf("room%d-*%s", idx+1, ext))
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	path := f.Name()
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("save upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("save upload: %w", err)
	}

	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	if err := s.collector.Set(idx, path); err != nil {
		os.Remove(path)
		return err
	}

	s.mu.Lock()
	prev := s.uploads[idx]
	s.uploads[idx] = path
	s.UpdatedAt = time.Now()
	if prev != "" && s.status == StatusGenerating {
		s.stale = append(s.stale, prev)
		prev = ""
	}
	s.mu.Unlock()
	if prev != "" {
		os.Remove(prev)
	}
	return nil
}

// Select points slot idx at a file that already exists on disk.
func (s *Session) Select(idx int, path string) error {
	s.uploadMu.Lock()
	defer s.uploadMu.Unlock()
	if err := s.collector.Set(idx, path); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Generate runs a synchronously against the session's current slots and
// records the outcome.
func (s *Session) Generate(a *assembler.Assembler, dest string) (*assembler.Result, error) {
	s.mu.Lock()
	if s.status == StatusGenerating {
		s.mu.Unlock()
		return nil, ErrGenerationInProgress
	}
	s.status = StatusGenerating
	s.progress = 0
	s.message = msgGenerating
	s.warnings = nil
	s.UpdatedAt = time.Now()
	s.mu.Unlock()

	snap := s.collector.Snapshot()
	res, err := a.Generate(snap, dest, s.setProgress)
	s.finish(res, err)
	return res, err
}

// finish records the outcome of a generation and drops uploads that were
// replaced while it ran.
func (s *Session) finish(res *assembler.Result, err error) {
	s.mu.Lock()
	stale := s.stale
	s.stale = nil
	defer func() {
		s.mu.Unlock()
		for _, p := range stale {
			os.Remove(p)
		}
	}()
	s.UpdatedAt = time.Now()

	switch {
	case errors.Is(err, assembler.ErrNoDestination):
		s.status = StatusCancelled
		s.progress = 0
		s.message = msgReady
	case errors.Is(err, assembler.ErrNoImagesSelected):
		s.status = StatusIdle
		s.progress = 0
		s.message = msgNoImages
	case err != nil:
		s.status = StatusFailed
		s.progress = 0
		s.message = fmt.Sprintf("Failed to generate document: %s", err)
	default:
		s.status = StatusCompleted
		s.progress = 100
		s.output = res.Path
		s.pages = res.Pages
		s.message = fmt.Sprintf("Document saved to %s", filepath.Base(res.Path))
		for _, w := range res.Warnings {
			s.warnings = append(s.warnings, w.Error())
		}
	}
}

func (s *Session) setProgress(pct int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = pct
	s.UpdatedAt = time.Now()
}

// Output returns the path of the last successfully generated document.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// SlotView describes one slot for clients. Slot numbers are 1-based.
type SlotView struct {
	Slot          int    `json:"slot"`
	Label         string `json:"label"`
	Filled        bool   `json:"filled"`
	Filename      string `json:"filename,omitempty"`
	Width         int    `json:"width,omitempty"`
	Height        int    `json:"height,omitempty"`
	PreviewWidth  int    `json:"preview_width,omitempty"`
	PreviewHeight int    `json:"preview_height,omitempty"`
}

// PlanEntry says where a filled slot will land in the document.
type PlanEntry struct {
	Slot   int `json:"slot"`
	Page   int `json:"page"`
	Column int `json:"column"`
}

// Snapshot is a read-only, JSON-safe copy of session state.
type Snapshot struct {
	ID        string      `json:"session_id"`
	Status    Status      `json:"status"`
	Progress  int         `json:"progress"`
	Message   string      `json:"message"`
	Warnings  []string    `json:"warnings"`
	Output    string      `json:"output,omitempty"`
	Pages     int         `json:"pages,omitempty"`
	Slots     []SlotView  `json:"slots"`
	Plan      []PlanEntry `json:"plan"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the session state.
func (s *Session) Snapshot() Snapshot {
	all := s.collector.Slots()
	views := make([]SlotView, len(all))
	var filled []int
	for i, sl := range all {
		v := SlotView{Slot: sl.Index + 1, Label: layout.RoomLabel(sl.Index), Filled: sl.Filled()}
		if sl.Filled() {
			filled = append(filled, sl.Index)
			v.Filename = filepath.Base(sl.Path)
			if sl.Preview != nil {
				v.Width, v.Height = sl.Preview.Width, sl.Preview.Height
				v.PreviewWidth, v.PreviewHeight = sl.Preview.ThumbSize()
			}
		}
		views[i] = v
	}
	plan := make([]PlanEntry, 0, len(filled))
	for _, p := range layout.Plan(filled, s.perPage) {
		plan = append(plan, PlanEntry{Slot: p.Slot + 1, Page: p.Page, Column: p.Column})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	warnings := make([]string, len(s.warnings))
	copy(warnings, s.warnings)
	var output string
	if s.output != "" {
		output = filepath.Base(s.output)
	}
	return Snapshot{
		ID:        s.ID,
		Status:    s.status,
		Progress:  s.progress,
		Message:   s.message,
		Warnings:  warnings,
		Output:    output,
		Pages:     s.pages,
		Slots:     views,
		Plan:      plan,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
