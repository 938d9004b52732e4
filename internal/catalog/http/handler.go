package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/iskra-katalog/katalog/internal/auth"
	"github.com/iskra-katalog/katalog/internal/catalog"
	"github.com/iskra-katalog/katalog/internal/observability"
	"github.com/iskra-katalog/katalog/internal/shared"
	"github.com/iskra-katalog/katalog/internal/view"
)

const (
	defaultMaxUpload = 10 << 20
	notFoundMessage  = "Produk tidak ditemukan"
)

// Store is the catalog persistence the handler depends on.
type Store interface {
	Schema() *catalog.Schema
	Load(ctx context.Context) ([]catalog.Product, error)
	Get(ctx context.Context, id string) (catalog.Product, bool, error)
	Replace(ctx context.Context, raw catalog.RawTable) (catalog.Result, error)
	UpsertMerge(ctx context.Context, raw catalog.RawTable) (catalog.Result, error)
}

// Config tunes the catalog endpoints.
type Config struct {
	// BaseURL prefixes product links in QR codes. Empty means the request host.
	BaseURL string
	// RequiredColumns must all resolve from an upload header before import.
	RequiredColumns []string
	MaxUploadBytes  int64
}

// Handler serves the catalog pages, exports, imports and JSON API.
type Handler struct {
	logger    *slog.Logger
	store     Store
	templates *view.Engine
	csrf      *shared.CSRFManager
	metrics   *observability.CatalogMetrics
	validator *validator.Validate
	cfg       Config
}

// NewHandler builds a Handler. metrics may be nil.
func NewHandler(logger *slog.Logger, store Store, templates *view.Engine, csrf *shared.CSRFManager, metrics *observability.CatalogMetrics, cfg Config) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if len(cfg.RequiredColumns) == 0 {
		cfg.RequiredColumns = []string{catalog.ColID}
	}
	return &Handler{
		logger:    logger,
		store:     store,
		templates: templates,
		csrf:      csrf,
		metrics:   metrics,
		validator: validator.New(),
		cfg:       cfg,
	}
}

// MountRoutes registers the catalog routes on the root router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/p/{id}", h.product)
	r.Get("/p/{id}/qr.png", h.productQR)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireOperator)
		r.Get("/database", h.database)
		r.Get("/export-excel", h.exportExcel)
		r.Get("/export-csv", h.exportCSV)
		r.Get("/export-pdf", h.exportPDF)
		r.Get("/import-excel", h.showImport)
		r.Post("/import-excel", h.handleImport)
	})

	r.Route("/api/products", func(r chi.Router) {
		r.With(auth.RequireOperatorAPI).Get("/", h.apiList)
		r.Get("/{id}", h.apiProduct)
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		Operator:    shared.OperatorFromContext(r.Context()),
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, page, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "pages/not_found.html", "Tidak ditemukan", map[string]any{
		"Message": notFoundMessage,
	})
}

// storeFailure reports a store error on an HTML route.
func (h *Handler) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("catalog store failure",
		slog.Any("error", err),
		slog.String("code", string(catalog.CodeOf(err))),
		slog.String("path", r.URL.Path))
	http.Error(w, "Katalog tidak dapat dibaca: "+err.Error(), http.StatusServiceUnavailable)
}

func (h *Handler) baseURL(r *http.Request) string {
	if h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func megabytes(n int64) string {
	return fmt.Sprintf("%d MB", (n+(1<<20)-1)>>20)
}
