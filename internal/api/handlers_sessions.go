package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/billdoc/internal/preview"
	"github.com/dgallion1/billdoc/internal/session"
	"github.com/dgallion1/billdoc/internal/slots"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.log.Error("create session failed", "error", err)
		jsonError(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	s.log.Info("session created", "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleUploadSlot(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	idx, ok := slotIndex(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Size > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}
	filename := sanitizeFilename(header.Filename)
	if !preview.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	log := s.log.With("session_id", sess.ID, "slot", idx)
	err = sess.Upload(idx, filename, file)
	var decodeErr *slots.ImageDecodeError
	switch {
	case err == nil:
	case errors.As(err, &decodeErr):
		log.Warn("image rejected", "filename", filename, "error", err)
		jsonError(w, "Failed to load image: "+err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, slots.ErrSlotOutOfRange):
		jsonError(w, "slot not found", http.StatusNotFound)
		return
	default:
		log.Error("upload failed", "error", err)
		jsonError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	log.Info("image selected", "filename", filename)
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, snap.Slots[idx])
}

func (s *Server) handleSlotPreview(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	idx, ok := slotIndex(w, r)
	if !ok {
		return
	}
	slot, ok := sess.Collector().Slot(idx)
	if !ok {
		jsonError(w, "slot not found", http.StatusNotFound)
		return
	}
	if !slot.Filled() || slot.Preview == nil {
		jsonError(w, "no image selected", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(slot.Preview.PNG)
}

// session resolves the {sessionID} URL parameter, writing a 404 when the
// session is unknown or expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	sess := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if sess == nil {
		jsonError(w, "session not found", http.StatusNotFound)
	}
	return sess
}

// slotIndex converts the 1-based {slot} URL parameter to a slot index.
func slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil {
		jsonError(w, "slot must be a number", http.StatusBadRequest)
		return 0, false
	}
	return n - 1, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	name = strings.TrimSpace(name)
	if name == "." || name == "/" {
		return ""
	}
	return name
}
