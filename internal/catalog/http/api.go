package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iskra-katalog/katalog/internal/catalog"
	"github.com/iskra-katalog/katalog/internal/platform/httpx"
)

type productList struct {
	Products []catalog.Product `json:"products"`
	Count    int               `json:"count"`
}

func (h *Handler) apiList(w http.ResponseWriter, r *http.Request) {
	tracker := h.metrics.Track("load")
	products, err := h.store.Load(r.Context())
	if err := tracker.End(err); err != nil {
		httpx.RespondError(w, apiError(err))
		return
	}
	products = filterProducts(products, r.URL.Query().Get("q"))
	httpx.JSON(w, http.StatusOK, productList{Products: products, Count: len(products)})
}

func (h *Handler) apiProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tracker := h.metrics.Track("get")
	p, ok, err := h.store.Get(r.Context(), id)
	if err := tracker.End(err); err != nil {
		httpx.RespondError(w, apiError(err))
		return
	}
	if !ok {
		httpx.RespondError(w, fmt.Errorf("%w: %s", httpx.ErrNotFound, notFoundMessage))
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

// apiError classifies store failures for the JSON API.
func apiError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrFileRead), errors.Is(err, catalog.ErrFileParse):
		return fmt.Errorf("%w: %w", httpx.ErrUnavailable, err)
	case errors.Is(err, catalog.ErrMissingRequiredColumn), errors.Is(err, catalog.ErrUploadFormat):
		return fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return err
}
