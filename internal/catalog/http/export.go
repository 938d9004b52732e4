package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/iskra-katalog/katalog/internal/catalog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) exportExcel(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "products.xlsx", xlsxContentType, func(buf *bytes.Buffer, products []catalog.Product) error {
		return catalog.Encode(catalog.FormatXLSX, buf, h.store.Schema().Table(products))
	})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "products.csv", "text/csv; charset=utf-8", func(buf *bytes.Buffer, products []catalog.Product) error {
		return catalog.Encode(catalog.FormatCSV, buf, h.store.Schema().Table(products))
	})
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "products.pdf", "application/pdf", func(buf *bytes.Buffer, products []catalog.Product) error {
		return catalog.WritePriceListPDF(buf, products, catalog.PriceListOptions{
			GeneratedAt: time.Now(),
			BaseURL:     h.baseURL(r),
		})
	})
}

// export loads the catalog, encodes it into memory and sends it as a download.
func (h *Handler) export(w http.ResponseWriter, r *http.Request, filename, contentType string, encode func(*bytes.Buffer, []catalog.Product) error) {
	tracker := h.metrics.Track("load")
	products, err := h.store.Load(r.Context())
	if err := tracker.End(err); err != nil {
		h.storeFailure(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := encode(&buf, products); err != nil {
		h.logger.Error("encode export", slog.Any("error", err), slog.String("file", filename))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
