package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iskra-katalog/katalog/internal/catalog"
)

type homePage struct {
	Query string
}

type productPage struct {
	Product catalog.Product
	QRPath  string
}

type databasePage struct {
	Products []catalog.Product
	Query    string
	Total    int
	Media    bool
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
		http.Redirect(w, r, catalog.ProductPath(id), http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, "pages/home.html", "Beranda", homePage{})
}

func (h *Handler) product(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tracker := h.metrics.Track("get")
	p, ok, err := h.store.Get(r.Context(), id)
	if err := tracker.End(err); err != nil {
		h.storeFailure(w, r, err)
		return
	}
	if !ok {
		h.notFound(w, r)
		return
	}
	h.render(w, r, http.StatusOK, "pages/product.html", p.Name, productPage{
		Product: p,
		QRPath:  catalog.ProductPath(p.ID) + "/qr.png",
	})
}

func (h *Handler) productQR(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tracker := h.metrics.Track("get")
	_, ok, err := h.store.Get(r.Context(), id)
	if err := tracker.End(err); err != nil {
		h.storeFailure(w, r, err)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	png, err := catalog.ProductQR(h.baseURL(r), id, catalog.DefaultQRSize)
	if err != nil {
		h.logger.Error("encode qr", slog.Any("error", err), slog.String("id", id))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(png)
}

func (h *Handler) database(w http.ResponseWriter, r *http.Request) {
	tracker := h.metrics.Track("load")
	products, err := h.store.Load(r.Context())
	if err := tracker.End(err); err != nil {
		h.storeFailure(w, r, err)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	h.render(w, r, http.StatusOK, "pages/database.html", "Database", databasePage{
		Products: filterProducts(products, query),
		Query:    query,
		Total:    len(products),
		Media:    h.store.Schema().Has(catalog.ColPhoto),
	})
}

// filterProducts keeps products whose id or name contains query, ignoring case.
func filterProducts(products []catalog.Product, query string) []catalog.Product {
	if query == "" {
		return products
	}
	needle := strings.ToLower(query)
	filtered := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.ID), needle) || strings.Contains(strings.ToLower(p.Name), needle) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
