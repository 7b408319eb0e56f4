package ui

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"gocausal/app"
	"gocausal/internal"
	"gocausal/internal/errors"
	"gocausal/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

//go:embed templates/*
var embeddedFiles embed.FS

// Query parameter limits
const (
	maxRows  = 200000
	maxDraws = 500
)

// Demo runs the scenario behind the report page
type Demo interface {
	Run(ctx context.Context, req app.DemoRequest) (*app.DemoResult, error)
}

// App represents the UI application
type App struct {
	router    *chi.Mux
	demo      Demo
	templates *template.Template
	logger    *internal.Logger
}

// NewApp creates a new UI application
func NewApp(demo Demo, logger *internal.Logger) (*App, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		demo:      demo,
		templates: templates,
		logger:    logger.With("ui"),
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Timeout(2 * time.Minute))
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleReport)
	a.router.Get("/report.md", a.handleReportMarkdown)
}

// Handler exposes the router
func (a *App) Handler() http.Handler { return a.router }

// Start starts the HTTP server
func (a *App) Start(port string) error {
	a.logger.Info("starting UI server on :%s", port)
	return http.ListenAndServe(":"+port, a.router)
}

// handleReport runs the demo for the query parameters and renders the report as HTML
func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	req, err := parseDemoRequest(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	res, err := a.demo.Run(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}

	draws := req.Draws
	if res.Bootstrap != nil {
		draws = len(res.Bootstrap.Estimates)
	}
	data := map[string]interface{}{
		"Title": "Do-sampling report",
		"Rows":  res.Scenario.Rows,
		"Seed":  res.Scenario.Seed,
		"Draws": draws,
		"Body":  template.HTML(renderMarkdown(report.Markdown(res))),
	}
	a.renderTemplate(w, "report.html", data)
}

// handleReportMarkdown returns the raw markdown
func (a *App) handleReportMarkdown(w http.ResponseWriter, r *http.Request) {
	req, err := parseDemoRequest(r)
	if err != nil {
		a.fail(w, err)
		return
	}
	res, err := a.demo.Run(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(report.Markdown(res)))
}

func parseDemoRequest(r *http.Request) (app.DemoRequest, error) {
	var req app.DemoRequest
	q := r.URL.Query()
	if v := q.Get("n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxRows {
			return req, errors.InvalidInput(fmt.Sprintf("n must be an integer in [1, %d]", maxRows))
		}
		req.Rows = n
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, errors.InvalidInput("seed must be a non-negative integer")
		}
		req.Seed = seed
	}
	if v := q.Get("draws"); v != "" {
		draws, err := strconv.Atoi(v)
		if err != nil || draws < 2 || draws > maxDraws {
			return req, errors.InvalidInput(fmt.Sprintf("draws must be an integer in [2, %d]", maxDraws))
		}
		req.Draws = draws
	}
	return req, nil
}

// renderMarkdown converts markdown to HTML; raw HTML in the source is not passed through
func renderMarkdown(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func (a *App) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("template %s: %v", name, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (a *App) fail(w http.ResponseWriter, err error) {
	appErr := errors.FromDomain(err)
	status := errors.HTTPStatus(appErr.Code)
	if status >= http.StatusInternalServerError {
		a.logger.Error("report failed: %v", err)
	}
	http.Error(w, appErr.Message, status)
}
