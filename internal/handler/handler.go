// Package handler exposes the grading pipeline over HTTP. This is the
// collaborator boundary: it accepts raw PDF uploads plus a key and hands
// back the structured batch report.
package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/scangrade/internal/answerkey"
	"github.com/pavelanni/scangrade/internal/grade"
	"github.com/pavelanni/scangrade/internal/model"
	"github.com/pavelanni/scangrade/internal/pipeline"
	"github.com/pavelanni/scangrade/internal/report"
	"github.com/pavelanni/scangrade/internal/store"
)

// maxUploadBytes bounds the whole multipart request body.
const maxUploadBytes = 256 << 20

// Runner runs a batch of exams against a key. Satisfied by
// *pipeline.Pipeline.
type Runner interface {
	Run(ctx context.Context, key answerkey.Key, exams []pipeline.Exam, progress pipeline.ProgressFunc) ([]model.ExamResult, []model.Warning, error)
}

// Config holds handler parameters set at process start.
type Config struct {
	Scale      float64
	PassMark   float64
	MaxUploads int
	APIToken   string // empty disables auth
}

// Handler serves the grading API.
type Handler struct {
	store     *store.Store
	runner    Runner
	config    Config
	tokenHash []byte
}

// New creates a handler. The store may be nil, in which case runs are not
// persisted and the run endpoints return 404.
func New(st *store.Store, runner Runner, config Config) (*Handler, error) {
	if config.MaxUploads <= 0 {
		config.MaxUploads = pipeline.MaxUploads
	}
	if config.Scale <= 0 {
		config.Scale = grade.DefaultScale
	}
	if config.PassMark <= 0 {
		config.PassMark = report.DefaultPassMark
	}

	h := &Handler{store: st, runner: runner, config: config}
	if config.APIToken != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(config.APIToken), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash API token: %w", err)
		}
		h.tokenHash = hash
	}
	return h, nil
}

// Routes registers the API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.requireToken)
		r.Post("/api/grade", h.handleGrade)
		r.Get("/api/runs", h.handleListRuns)
		r.Get("/api/runs/{id}", h.handleGetRun)
		r.Get("/api/runs/{id}/report.csv", h.handleRunCSV)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (h *Handler) handleGrade(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	key, err := answerkey.Parse(r.FormValue("key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer key: "+err.Error())
		return
	}
	if len(key) == 0 {
		writeError(w, http.StatusBadRequest, "answer key is required")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "at least one PDF file is required")
		return
	}
	if len(files) > h.config.MaxUploads {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files: got %d, maximum is %d", len(files), h.config.MaxUploads))
		return
	}

	exams := make([]pipeline.Exam, 0, len(files))
	for _, fh := range files {
		data, err := readUpload(fh)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("read upload %s: %v", fh.Filename, err))
			return
		}
		exams = append(exams, pipeline.Exam{Filename: fh.Filename, Data: data})
	}

	results, warnings, err := h.runner.Run(r.Context(), key, exams, func(done, total int, filename string) {
		slog.Info("graded exam", "file", filename, "done", done, "total", total)
	})
	if err != nil {
		// Only cancellation surfaces here; the client is likely gone.
		slog.Warn("batch interrupted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "batch interrupted")
		return
	}

	run := model.Run{
		CourseName:   r.FormValue("course_name"),
		CourseCode:   r.FormValue("course_code"),
		KeyText:      r.FormValue("key"),
		NumQuestions: len(key),
		Scale:        h.config.Scale,
		PassMark:     h.config.PassMark,
		CreatedAt:    time.Now(),
	}
	if h.store != nil {
		id, err := h.store.CreateRun(run, results, warnings)
		if err != nil {
			slog.Error("failed to persist run", "error", err)
		} else {
			run.ID = id
		}
	}

	writeJSON(w, http.StatusOK, report.Build(run, results, warnings))
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "run persistence is disabled")
		return
	}
	runs, err := h.store.ListRuns()
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, ok := h.runView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.Build(view.Run, view.Results, view.Warnings))
}

func (h *Handler) handleRunCSV(w http.ResponseWriter, r *http.Request) {
	view, ok := h.runView(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=run_%d.csv", view.Run.ID))
	if err := report.WriteCSV(w, view.Results, view.Run.PassMark); err != nil {
		slog.Error("failed to write CSV", "error", err)
	}
}

func (h *Handler) runView(w http.ResponseWriter, r *http.Request) (*model.RunView, bool) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "run persistence is disabled")
		return nil, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return nil, false
	}
	view, err := h.store.GetRunView(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "run not found")
			return nil, false
		}
		slog.Error("failed to load run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}
	return view, true
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
