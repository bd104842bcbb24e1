package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Options sizes new sessions.
type Options struct {
	SlotCount     int
	PreviewMax    int
	ImagesPerPage int
}

// Store is a thread-safe in-memory session registry with TTL eviction.
// Evicting a session deletes its directory under root.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	root     string
	opts     Options
	log      *slog.Logger
}

func NewStore(root string, ttl time.Duration, opts Options, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		root:     root,
		opts:     opts,
		log:      log,
	}
}

// Create registers a new session with its own upload directory.
func (s *Store) Create() (*Session, error) {
	id := newID()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	sess := newSession(id, dir, s.opts.SlotCount, s.opts.PreviewMax, s.opts.ImagesPerPage)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	return sess, nil
}

// Get returns a session by ID, or nil.
func (s *Store) Get(id string) *Session {
	if !validID(id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions and returns how many were evicted.
// Sessions mid-generation are kept until they finish.
func (s *Store) Cleanup() int {
	now := time.Now()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.UpdatedAt) > s.ttl && sess.status != StatusGenerating
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			expired = append(expired, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		if err := os.RemoveAll(sess.Dir); err != nil {
			s.log.Warn("remove session dir failed", "session_id", sess.ID, "error", err)
		}
	}
	if len(expired) > 0 {
		s.log.Info("evicted sessions", "count", len(expired))
	}
	return len(expired)
}

// Run evicts expired sessions every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}
