package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iskra-katalog/katalog/internal/catalog"
	"github.com/iskra-katalog/katalog/internal/observability"
	"github.com/iskra-katalog/katalog/internal/platform/httpx"
	"github.com/iskra-katalog/katalog/internal/shared"
	"github.com/iskra-katalog/katalog/internal/view"
	_ "github.com/iskra-katalog/katalog/testing"
)

type harness struct {
	router  http.Handler
	store   *catalog.Store
	session *shared.Session
	metrics *observability.Metrics
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := catalog.NewStore(catalog.StoreConfig{
		Path:   filepath.Join(t.TempDir(), "data.xlsx"),
		Logger: logger,
	})
	require.NoError(t, err)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	h := &harness{store: store, session: &shared.Session{}, metrics: observability.NewMetrics()}
	handler := NewHandler(logger, store, templates, shared.NewCSRFManager("test"), h.metrics.Catalog(), cfg)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), h.session)))
		})
	})
	handler.MountRoutes(r)
	h.router = r
	return h
}

func (h *harness) signIn() *harness {
	h.session.SetOperator("admin")
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) flash(t *testing.T) shared.FlashMessage {
	t.Helper()
	msg := h.session.PopFlash()
	require.NotNil(t, msg, "expected a flash message")
	return *msg
}

func uploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/import-excel", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHomeRedirectsLookup(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="id"`)

	rec = h.get("/?id=+8991234567890+")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/p/8991234567890", rec.Header().Get("Location"))
}

func TestProductPage(t *testing.T) {
	h := newHarness(t, Config{})

	rec := h.get("/p/8991234567890")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Bantal Iskra")
	assert.Contains(t, body, "Rp 50.000")
	assert.Contains(t, body, "/p/8991234567890/qr.png")

	rec = h.get("/p/000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Produk tidak ditemukan")
}

func TestProductQR(t *testing.T) {
	h := newHarness(t, Config{BaseURL: "https://katalog.example"})

	rec := h.get("/p/8991234567890/qr.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusNotFound, h.get("/p/nope/qr.png").Code)
}

func TestOperatorRoutesRequireLogin(t *testing.T) {
	h := newHarness(t, Config{})

	for _, path := range []string{"/database", "/export-excel", "/export-csv", "/export-pdf", "/import-excel"} {
		rec := h.get(path)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?next="), path)
	}
}

func TestDatabaseListsAndFilters(t *testing.T) {
	h := newHarness(t, Config{}).signIn()

	rec := h.get("/database")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bantal Iskra")
	assert.Contains(t, rec.Body.String(), "Kasur Lipat Iskra 6cm")

	rec = h.get("/database?q=KASUR")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Bantal Iskra")
	assert.Contains(t, rec.Body.String(), "1 dari 2 produk")
}

func TestExports(t *testing.T) {
	h := newHarness(t, Config{}).signIn()

	rec := h.get("/export-excel")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=products.xlsx", rec.Header().Get("Content-Disposition"))
	table, err := catalog.ReadWorkbook(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultSchema().Keys(), table.Header)
	assert.Len(t, table.Rows, 2)

	rec = h.get("/export-csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "id,name,cost,profit,tiered_price,price,source,notes\r\n"))

	rec = h.get("/export-pdf")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestImportMerge(t *testing.T) {
	h := newHarness(t, Config{RequiredColumns: []string{catalog.ColID, catalog.ColName, catalog.ColPrice}}).signIn()

	csv := "Kode;Nama Produk;Harga\n8991234567890;Bantal Iskra XL;Rp 60.000\nNEW-1;Guling;35.000\n;tanpa kode;1\n"
	rec := h.do(uploadRequest(t, "update.csv", csv, map[string]string{"mode": "merge"}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/database", rec.Header().Get("Location"))
	flash := h.flash(t)
	assert.Equal(t, shared.FlashSuccess, flash.Kind)
	assert.Equal(t, "Import berhasil! 1 baru, 1 diperbarui. 1 baris tanpa kode dilewati.", flash.Message)

	products, err := h.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Bantal Iskra XL", products[0].Name)
	assert.Equal(t, int64(60000), products[0].Price)
	assert.Equal(t, "Kasur Lipat Iskra 6cm", products[1].Name)
	assert.Equal(t, "NEW-1", products[2].ID)

	metrics := httptest.NewRecorder()
	h.metrics.Handler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), `katalog_import_rows_total{mode="merge",outcome="inserted"} 1`)
}

func TestImportReplace(t *testing.T) {
	h := newHarness(t, Config{}).signIn()

	rec := h.do(uploadRequest(t, "full.csv", "id,name,price\nA,Satu,1000\n", map[string]string{"mode": "replace"}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, h.flash(t).Message, "1 produk menggantikan katalog")

	products, err := h.store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "A", products[0].ID)
}

func TestImportRejections(t *testing.T) {
	cases := []struct {
		name    string
		req     func(t *testing.T) *http.Request
		message string
	}{
		{
			name:    "missing columns",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "x.csv", "kode,nama\n1,A\n", nil) },
			message: "Kolom wajib hilang: price",
		},
		{
			name:    "unsupported extension",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "legacy.xls", "junk", nil) },
			message: `Gagal import: catalog: decode upload: unsupported file format: "legacy.xls"`,
		},
		{
			name:    "corrupt workbook",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "broken.xlsx", "not a zip", nil) },
			message: "Gagal import: catalog: decode xlsx: cannot parse catalog file",
		},
		{
			name:    "no file",
			req:     func(t *testing.T) *http.Request { return uploadRequest(t, "", "", map[string]string{"mode": "merge"}) },
			message: "Tidak ada file diunggah.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, Config{RequiredColumns: []string{catalog.ColID, catalog.ColName, catalog.ColPrice}}).signIn()
			rec := h.do(tc.req(t))
			require.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, importPath, rec.Header().Get("Location"))
			flash := h.flash(t)
			assert.Equal(t, shared.FlashError, flash.Kind)
			assert.True(t, strings.HasPrefix(flash.Message, tc.message), flash.Message)

			products, err := h.store.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, catalog.DefaultSeed(), products, "rejected imports leave the store untouched")
		})
	}
}

func TestImportTooLarge(t *testing.T) {
	h := newHarness(t, Config{MaxUploadBytes: 64}).signIn()

	rec := h.do(uploadRequest(t, "big.csv", "id,name\n"+strings.Repeat("1,A\n", 100), nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, h.flash(t).Message, "File terlalu besar")
}

func TestImportInvalidMode(t *testing.T) {
	h := newHarness(t, Config{}).signIn()

	rec := h.do(uploadRequest(t, "a.csv", "id\n1\n", map[string]string{"mode": "append"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mode harus merge atau replace.")
}

func TestAPI(t *testing.T) {
	h := newHarness(t, Config{})

	assert.Equal(t, http.StatusUnauthorized, h.get("/api/products").Code)

	rec := h.get("/api/products/8999876543210")
	require.Equal(t, http.StatusOK, rec.Code)
	var p catalog.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, int64(250000), p.Price)

	rec = h.get("/api/products/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Contains(t, problem.Detail, "Produk tidak ditemukan")

	h.signIn()
	rec = h.get("/api/products?q=bantal")
	require.Equal(t, http.StatusOK, rec.Code)
	var list productList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestAPICorruptStore(t *testing.T) {
	h := newHarness(t, Config{})
	require.NoError(t, h.store.EnsureInitialized(context.Background()))
	require.NoError(t, os.WriteFile(h.store.Path(), []byte("garbage"), 0o644))

	rec := h.get("/api/products/8991234567890")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, string(catalog.CodeFileParse), problem.Type)

	assert.Equal(t, http.StatusServiceUnavailable, h.get("/p/8991234567890").Code)
}

func TestImportSummary(t *testing.T) {
	assert.Equal(t, "Import berhasil! 2 baru, 0 diperbarui.", importSummary(ModeMerge, catalog.Result{Inserted: 2}))
	assert.Equal(t, "Import berhasil! 3 produk menggantikan katalog. 4 sel angka tidak valid diisi 0.",
		importSummary(ModeReplace, catalog.Result{Inserted: 3, CoercedCells: 4}))
}
