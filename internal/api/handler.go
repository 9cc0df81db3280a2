// Package api exposes statement extraction over HTTP.
package api

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-importer/internal/extract"
	"github.com/insightdelivered/statement-importer/internal/extractor"
	"github.com/insightdelivered/statement-importer/internal/metrics"
	"github.com/insightdelivered/statement-importer/internal/parser"
	"github.com/insightdelivered/statement-importer/internal/writer"
)

// ExtractResponse is the JSON response from the /api/extract endpoint.
type ExtractResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	CSV     string `json:"csv,omitempty"`
	*writer.Document
}

// HealthResponse is the JSON response from the /api/health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Engine  string `json:"engine"`
	Version string `json:"version"`
}

// Config holds the server limits.
type Config struct {
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	extractor *extract.Extractor
	metrics   *metrics.Metrics
	log       zerolog.Logger
	version   string
}

// NewHandler creates the API handlers. m may be nil.
func NewHandler(ex *extract.Extractor, m *metrics.Metrics, log zerolog.Logger, version string) *Handler {
	return &Handler{extractor: ex, metrics: m, log: log, version: version}
}

// NewApp builds the fiber application with middleware and routes. /metrics
// serves gatherer when it is not nil.
func NewApp(cfg Config, h *Handler, gatherer prometheus.Gatherer) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statement-importer",
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,

		// Securities outlive the request in the catalog.
		Immutable: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			h.log.Error().Interface("error", e).Str("method", c.Method()).Str("path", c.Path()).Msg("panic recovered")
		},
	}))
	app.Use(h.observe)
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	h.RegisterRoutes(app)
	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return app
}

// RegisterRoutes sets up the API routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/extract", h.HandleExtract)
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "ok", Engine: "fiber", Version: h.version})
}

// HandleExtract extracts one statement posted as a multipart "file" or as a
// "text" form field. Optional fields: currency, layout, source, trace, csv.
func (h *Handler) HandleExtract(c *fiber.Ctx) error {
	req := extract.Request{
		Source:          c.FormValue("source"),
		Layout:          c.FormValue("layout"),
		AccountCurrency: strings.ToUpper(strings.TrimSpace(c.FormValue("currency"))),
	}
	if req.AccountCurrency != "" && len(req.AccountCurrency) != 3 {
		return writeError(c, fiber.StatusBadRequest, fmt.Sprintf("currency must be a three-letter code, got %q", req.AccountCurrency))
	}
	if req.Layout != "" {
		if _, err := parser.ParseLayout(req.Layout); err != nil {
			return writeError(c, fiber.StatusBadRequest, err.Error())
		}
	}

	text, name, err := statementText(c)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return writeError(c, fe.Code, fe.Message)
		}
		return writeError(c, fiber.StatusUnprocessableEntity, fmt.Sprintf("reading statement failed: %v", err))
	}
	req.Text = text
	if req.Source == "" {
		req.Source = name
	}

	st := h.extractor.Run(c.UserContext(), req)
	doc := writer.NewDocument(st, c.FormValue("trace") == "true")
	resp := ExtractResponse{Success: true, Document: &doc}

	if extract.Fatal(st.Errors) {
		resp.Success = false
		resp.Error = st.Errors[0].Error()
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}

	if c.FormValue("csv") == "true" {
		var sb strings.Builder
		if err := (&writer.CSVWriter{IncludeHeader: true}).Write(&sb, st); err != nil {
			return writeError(c, fiber.StatusInternalServerError, fmt.Sprintf("CSV generation failed: %v", err))
		}
		resp.CSV = sb.String()
	}

	c.Set("X-Run-Id", st.RunID)
	return c.JSON(resp)
}

// statementText returns the posted statement and a name for it.
func statementText(c *fiber.Ctx) (string, string, error) {
	if text := c.FormValue("text"); strings.TrimSpace(text) != "" {
		return text, "text", nil
	}

	header, err := c.FormFile("file")
	if err != nil {
		return "", "", fiber.NewError(fiber.StatusBadRequest, "No statement uploaded. Use form field 'file' or 'text'.")
	}
	f, err := header.Open()
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", "", err
	}
	text, err := extractor.Decode(data)
	if err != nil {
		return "", "", err
	}
	return text, filepath.Base(header.Filename), nil
}

// observe records request metrics and logs one line per request.
func (h *Handler) observe(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}
	route := c.Route().Path
	elapsed := time.Since(start)

	if h.metrics != nil {
		h.metrics.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		h.metrics.HTTPDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())
	}
	h.log.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", elapsed).
		Str("remote_addr", c.IP()).
		Msg("request completed")
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return writeError(c, code, err.Error())
}

func writeError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ExtractResponse{Success: false, Error: msg})
}
