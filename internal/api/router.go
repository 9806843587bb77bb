// Package api exposes the course collection, ingestion and export over HTTP,
// and streams collection snapshots over WebSocket.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/p-n-ai/pai-study/internal/course"
	"github.com/p-n-ai/pai-study/internal/courses"
)

// Catalog is the course collection served by the API.
type Catalog interface {
	Courses() []course.Course
	Create(ctx context.Context, name, color string) (course.Course, error)
	GetByID(ctx context.Context, id string) courses.Lookup
	Import(ctx context.Context, doc []byte) (course.Course, error)
	Subscribe() (<-chan courses.Snapshot, func())
}

// Ingester adds questions to courses.
type Ingester interface {
	Ingest(ctx context.Context, courseID, raw string) (course.QuestionSet, error)
	AppendToNamedSet(ctx context.Context, courseID, setName string, questions []course.Question) (course.QuestionSet, error)
	IngestDocument(ctx context.Context, courseID, document string) (course.QuestionSet, error)
}

// Check is a named readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Config holds the router's dependencies.
type Config struct {
	Catalog        Catalog
	Ingester       Ingester
	ReadyChecks    []Check
	AllowedOrigins []string
}

// NewRouter builds the HTTP handler.
func NewRouter(cfg Config) http.Handler {
	h := &handler{
		catalog:  cfg.Catalog,
		ingester: cfg.Ingester,
		checks:   cfg.ReadyChecks,
		origins:  originPatterns(cfg.AllowedOrigins),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length", SourceHeader},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Route("/courses", func(r chi.Router) {
		r.Get("/", h.listCourses)
		r.Post("/", h.createCourse)
		r.Post("/import", h.importCourse)
		r.Route("/{courseID}", func(r chi.Router) {
			r.Get("/", h.getCourse)
			r.Get("/export.xlsx", h.exportCourse)
			r.Post("/question-sets", h.ingest)
			r.Post("/documents", h.ingestDocument)
			r.Post("/question-sets/{setName}/questions", h.appendQuestions)
		})
	})

	r.Get("/ws/courses", h.streamCourses)
	return r
}

type handler struct {
	catalog  Catalog
	ingester Ingester
	checks   []Check
	origins  []string
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// originPatterns converts allowed origins into host patterns for the
// WebSocket origin check.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}
