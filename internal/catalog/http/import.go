package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iskra-katalog/katalog/internal/catalog"
	"github.com/iskra-katalog/katalog/internal/shared"
)

// Import modes.
const (
	ModeMerge   = "merge"
	ModeReplace = "replace"
)

const importPath = "/import-excel"

type importForm struct {
	Mode string `validate:"omitempty,oneof=merge replace"`
}

type importPage struct {
	Form     importForm
	Errors   map[string]string
	Required []string
	Keys     []string
}

func (h *Handler) showImport(w http.ResponseWriter, r *http.Request) {
	h.renderImport(w, r, http.StatusOK, importForm{Mode: ModeMerge}, nil)
}

func (h *Handler) renderImport(w http.ResponseWriter, r *http.Request, status int, form importForm, errs map[string]string) {
	h.render(w, r, status, "pages/import.html", "Import", importPage{
		Form:     form,
		Errors:   errs,
		Required: h.cfg.RequiredColumns,
		Keys:     h.store.Schema().Keys(),
	})
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		if isTooLarge(err) {
			h.redirectWithFlash(w, r, importPath, shared.FlashError, "File terlalu besar (maks "+megabytes(h.cfg.MaxUploadBytes)+").")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			h.logger.Warn("parse import form", slog.Any("error", err))
		}
		h.redirectWithFlash(w, r, importPath, shared.FlashError, "Tidak ada file diunggah.")
		return
	}

	form := importForm{Mode: strings.TrimSpace(r.PostFormValue("mode"))}
	if err := h.validator.Struct(form); err != nil {
		errs := make(map[string]string)
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fieldErr := range fieldErrs {
				errs[fieldErr.Field()] = "Mode harus merge atau replace."
			}
		}
		h.renderImport(w, r, http.StatusBadRequest, form, errs)
		return
	}
	if form.Mode == "" {
		form.Mode = ModeMerge
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.redirectWithFlash(w, r, importPath, shared.FlashError, "Tidak ada file diunggah.")
		return
	}
	defer file.Close()

	raw, err := catalog.DecodeUpload(header.Filename, file)
	if err != nil {
		h.importFailed(w, r, form.Mode, err)
		return
	}
	if missing := h.store.Schema().Missing(raw.Header, h.cfg.RequiredColumns); len(missing) > 0 {
		_ = h.metrics.Track("import_" + form.Mode).End(catalog.MissingColumnsError(missing))
		h.redirectWithFlash(w, r, importPath, shared.FlashError, "Kolom wajib hilang: "+strings.Join(missing, ", "))
		return
	}

	tracker := h.metrics.Track("import_" + form.Mode)
	var result catalog.Result
	if form.Mode == ModeReplace {
		result, err = h.store.Replace(r.Context(), raw)
	} else {
		result, err = h.store.UpsertMerge(r.Context(), raw)
	}
	if err := tracker.End(err); err != nil {
		h.importFailed(w, r, form.Mode, err)
		return
	}
	h.metrics.ObserveImport(form.Mode, result)
	h.logger.Info("catalog imported",
		slog.String("mode", form.Mode),
		slog.String("file", header.Filename),
		slog.String("operator", shared.OperatorFromContext(r.Context())),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("dropped", result.DroppedRows),
		slog.Int("coerced", result.CoercedCells))
	h.redirectWithFlash(w, r, "/database", shared.FlashSuccess, importSummary(form.Mode, result))
}

func (h *Handler) importFailed(w http.ResponseWriter, r *http.Request, mode string, err error) {
	h.logger.Warn("catalog import failed",
		slog.String("mode", mode),
		slog.String("code", string(catalog.CodeOf(err))),
		slog.Any("error", err))
	h.redirectWithFlash(w, r, importPath, shared.FlashError, "Gagal import: "+err.Error())
}

func importSummary(mode string, result catalog.Result) string {
	var b strings.Builder
	b.WriteString("Import berhasil!")
	if mode == ModeReplace {
		fmt.Fprintf(&b, " %d produk menggantikan katalog.", result.Inserted)
	} else {
		fmt.Fprintf(&b, " %d baru, %d diperbarui.", result.Inserted, result.Updated)
	}
	if result.DroppedRows > 0 {
		fmt.Fprintf(&b, " %d baris tanpa kode dilewati.", result.DroppedRows)
	}
	if result.CoercedCells > 0 {
		fmt.Fprintf(&b, " %d sel angka tidak valid diisi 0.", result.CoercedCells)
	}
	return b.String()
}
