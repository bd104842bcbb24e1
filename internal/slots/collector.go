package slots

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/billdoc/internal/preview"
)

// ErrSlotOutOfRange is returned for slot indexes outside [0, N).
var ErrSlotOutOfRange = errors.New("slot index out of range")

// ImageDecodeError reports a selection that could not be decoded. The slot
// keeps whatever it held before.
type ImageDecodeError struct {
	Slot int
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("room %d: %s", e.Slot+1, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

// Slot is one room's upload position. A slot owns its preview; replacing the
// path replaces the preview with it.
type Slot struct {
	Index     int
	Path      string
	Preview   *preview.Preview
	UpdatedAt time.Time
}

// Filled reports whether the slot holds an image reference.
func (s Slot) Filled() bool {
	return s.Path != ""
}

// Collector holds a fixed number of optional image references.
type Collector struct {
	mu      sync.Mutex
	slots   []Slot
	maxSide int
}

// NewCollector creates a collector with n empty slots. Previews are bounded
// to maxSide pixels on the longest side.
func NewCollector(n, maxSide int) *Collector {
	if maxSide <= 0 {
		maxSide = preview.DefaultMaxSide
	}
	s := make([]Slot, n)
	for i := range s {
		s[i].Index = i
	}
	return &Collector{slots: s, maxSide: maxSide}
}

// Len returns the number of slots.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Set stores path in slot idx after decoding it and building a preview.
// Any previous value is overwritten. On failure the slot is left untouched.
func (c *Collector) Set(idx int, path string) error {
	if idx < 0 || idx >= c.Len() {
		return fmt.Errorf("%w: %d", ErrSlotOutOfRange, idx)
	}

	// Decode outside the lock; it is the slow part.
	p, err := preview.Load(path, c.maxSide)
	if err != nil {
		return &ImageDecodeError{Slot: idx, Path: path, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[idx] = Slot{
		Index:     idx,
		Path:      path,
		Preview:   p,
		UpdatedAt: time.Now(),
	}
	return nil
}

// HasAnyFilled is true iff at least one slot holds a reference.
func (c *Collector) HasAnyFilled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slots {
		if s.Filled() {
			return true
		}
	}
	return false
}

// Slot returns a copy of slot idx.
func (c *Collector) Slot(idx int) (Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx < 0 || idx >= len(c.slots) {
		return Slot{}, false
	}
	return c.slots[idx], true
}

// Slots returns a copy of every slot, filled or not.
func (c *Collector) Slots() []Slot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Slot, len(c.slots))
	copy(out, c.slots)
	return out
}

// Entry is one filled slot in a Snapshot.
type Entry struct {
	Slot int
	Path string
}

// Snapshot is the immutable list of filled slots taken when generation is
// triggered.
type Snapshot struct {
	Entries []Entry
	TakenAt time.Time
}

// Len is the number of filled slots.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// SlotIndexes returns the filled slot indexes in order.
func (s Snapshot) SlotIndexes() []int {
	out := make([]int, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Slot
	}
	return out
}

// Snapshot copies the filled slots in ascending index order.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{TakenAt: time.Now()}
	for _, s := range c.slots {
		if s.Filled() {
			snap.Entries = append(snap.Entries, Entry{Slot: s.Index, Path: s.Path})
		}
	}
	return snap
}

// NewSnapshot builds a snapshot from a slot->path map, skipping empty paths.
// Paths are not decoded or checked; the assembler reports unreadable ones
// as warnings.
func NewSnapshot(paths map[int]string) Snapshot {
	maxIdx := -1
	for i := range paths {
		if i > maxIdx {
			maxIdx = i
		}
	}
	snap := Snapshot{TakenAt: time.Now()}
	for i := 0; i <= maxIdx; i++ {
		if p := paths[i]; p != "" {
			snap.Entries = append(snap.Entries, Entry{Slot: i, Path: p})
		}
	}
	return snap
}
