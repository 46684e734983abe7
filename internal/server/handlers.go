// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/chronos/internal/hypothesis"
	"github.com/pdiddy/chronos/internal/ocr"
	"github.com/pdiddy/chronos/internal/pipeline"
	"github.com/pdiddy/chronos/pkg/types"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type errorResponse struct {
	Error string `json:"error"`
}

type uploadResponse struct {
	ID       string         `json:"unique_id"`
	Filename string         `json:"filename"`
	Status   types.RunState `json:"status"`
}

type parseResponse struct {
	hypothesis.Result
	Warning string `json:"warning,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.cfg.Serve.MaxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", s.cfg.Serve.MaxUploadBytes))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Serve.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds %d bytes", tooBig.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("reading upload: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("no file part named \"file\""))
		return
	}
	defer file.Close()

	name := SecureFilename(header.Filename)
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("no file selected"))
		return
	}
	if !ocr.Supported(name) {
		writeError(w, http.StatusUnsupportedMediaType, fmt.Errorf("%s: %w", name, ocr.ErrUnsupportedFormat))
		return
	}

	rc, err := pipeline.NewRunContext("", name, s.cfg, s.logger, s.now)
	if err != nil {
		s.logger.Error("creating run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("could not create run"))
		return
	}
	path, err := s.save(file, rc.ID+filepath.Ext(name))
	if err != nil {
		os.RemoveAll(rc.ResultDir)
		s.logger.Error("saving upload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, errors.New("could not save upload"))
		return
	}
	rc.InputPath = path

	st := s.status.Start(rc.ID, header.Filename)
	s.logger.Info("upload accepted", zap.String("run", rc.ID), zap.String("file", path))
	s.start(rc)

	writeJSON(w, http.StatusAccepted, uploadResponse{ID: rc.ID, Filename: st.Filename, Status: st.State})
}

// save copies an upload into the upload directory as filename, which is
// named after the run id and so unique per upload.
func (s *Server) save(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(s.cfg.Serve.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload directory: %w", err)
	}
	path := filepath.Join(s.cfg.Serve.UploadDir, filename)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.status.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	res, err := s.status.Result(r.PathValue("id"))
	switch {
	case errors.Is(err, pipeline.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, pipeline.ErrRunIncomplete):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) handleRuns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.List())
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.Serve.MaxUploadBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	res, err := hypothesis.NewParser(s.logger).ParseStrict(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if res.Records == nil {
		res.Records = []types.HypothesisRecord{}
	}
	writeJSON(w, http.StatusOK, parseResponse{Result: res, Warning: res.Warning()})
}

// SecureFilename reduces an uploaded file name to a safe base name: path
// components are dropped, runs of characters outside [A-Za-z0-9._-] become
// a single underscore, and leading dots and underscores are removed.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = unsafeFilename.ReplaceAllString(name, "_")
	return strings.TrimLeft(name, "._")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}
