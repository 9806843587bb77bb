package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/export"
	"github.com/p-n-ai/pai-study/internal/ingest"
)

// SourceHeader reports which tier answered GET /courses/{id}.
const SourceHeader = "X-Course-Source"

const maxBodyBytes = 10 << 20

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) readyz(w http.ResponseWriter, r *http.Request) {
	failed := map[string]string{}
	for _, c := range h.checks {
		if err := c.Fn(r.Context()); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handler) listCourses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Courses())
}

type createCourseRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (h *handler) createCourse(w http.ResponseWriter, r *http.Request) {
	var req createCourseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decode request: %v", course.ErrValidation, err))
		return
	}

	c, err := h.catalog.Create(r.Context(), strings.TrimSpace(req.Name), strings.TrimSpace(req.Color))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handler) importCourse(w http.ResponseWriter, r *http.Request) {
	doc, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := h.catalog.Import(r.Context(), doc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handler) getCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// lookup resolves {courseID}, writing a 404 when it does not exist.
func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (course.Course, bool) {
	id := chi.URLParam(r, "courseID")
	lk := h.catalog.GetByID(r.Context(), id)
	if !lk.Found() {
		writeError(w, fmt.Errorf("%w: %s", course.ErrCourseNotFound, id))
		return course.Course{}, false
	}
	w.Header().Set(SourceHeader, lk.Source.String())
	return lk.Course, true
}

func (h *handler) exportCourse(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCourse(&buf, c); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": c.Name + ".xlsx",
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *handler) ingest(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	set, err := h.ingester.Ingest(r.Context(), chi.URLParam(r, "courseID"), string(raw))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

// ingestDocument generates questions about the document text in the body and
// adds them as a new set.
func (h *handler) ingestDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(string(doc)) == "" {
		writeError(w, fmt.Errorf("%w: document text is required", course.ErrValidation))
		return
	}

	set, err := h.ingester.IngestDocument(r.Context(), chi.URLParam(r, "courseID"), string(doc))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

// appendQuestions accepts either marker text or a workbook. For workbooks the
// sheet query parameter picks the sheet.
func (h *handler) appendQuestions(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	var questions []course.Question
	if mediaType(r) == export.ContentType {
		questions, err = export.ReadQuestions(bytes.NewReader(body), r.URL.Query().Get("sheet"))
		if err != nil {
			writeError(w, fmt.Errorf("%w: %v", course.ErrValidation, err))
			return
		}
	} else {
		questions = ingest.Parse(string(body))
	}

	set, err := h.ingester.AppendToNamedSet(r.Context(), chi.URLParam(r, "courseID"), chi.URLParam(r, "setName"), questions)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", course.ErrValidation, err)
	}
	return body, nil
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}
