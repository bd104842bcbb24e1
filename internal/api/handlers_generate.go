package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgallion1/billdoc/internal/assembler"
	"github.com/dgallion1/billdoc/internal/session"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

type generateRequest struct {
	Filename string `json:"filename"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}

	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	dest, err := s.destination(sess, req.Filename)
	if err != nil {
		s.log.Error("prepare output dir failed", "session_id", sess.ID, "error", err)
		jsonError(w, "failed to prepare output", http.StatusInternalServerError)
		return
	}

	log := s.log.With("session_id", sess.ID)
	start := time.Now()
	res, err := sess.Generate(s.assembler, dest)

	switch {
	case errors.Is(err, session.ErrGenerationInProgress):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, assembler.ErrNoImagesSelected):
		jsonError(w, "Please select at least one bill screenshot.", http.StatusBadRequest)
		return
	case errors.Is(err, assembler.ErrNoDestination):
		// Dismissed save prompt: nothing to report.
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.stats.Record(time.Since(start), 0, true)
		log.Error("generate failed", "error", err)
		jsonError(w, "Failed to generate document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.stats.Record(time.Since(start), res.Pages, false)

	warnings := make([]string, 0, len(res.Warnings))
	for _, warn := range res.Warnings {
		warnings = append(warnings, warn.Error())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   sess.ID,
		"filename":     filepath.Base(res.Path),
		"pages":        res.Pages,
		"placed":       res.Placed,
		"warnings":     warnings,
		"document_url": fmt.Sprintf("/api/sessions/%s/document", sess.ID),
	})
}

// destination maps a user-supplied filename into the session's output
// directory. An empty name stays empty so the assembler reports a cancel.
func (s *Server) destination(sess *session.Session, filename string) (string, error) {
	name := sanitizeFilename(filename)
	if name == "" {
		return "", nil
	}
	if !strings.EqualFold(filepath.Ext(name), ".docx") {
		name += ".docx"
	}
	dir := filepath.Join(sess.Dir, "out")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if sess == nil {
		return
	}
	path := sess.Output()
	if path == "" {
		jsonError(w, "no document generated", http.StatusNotFound)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		jsonError(w, "document no longer available", http.StatusGone)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		jsonError(w, "document no longer available", http.StatusGone)
		return
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", docxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeContent(w, r, name, st.ModTime(), f)
}
