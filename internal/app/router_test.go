package app

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iskra-katalog/katalog/internal/auth"
	"github.com/iskra-katalog/katalog/internal/catalog"
	cataloghttp "github.com/iskra-katalog/katalog/internal/catalog/http"
	"github.com/iskra-katalog/katalog/internal/observability"
	"github.com/iskra-katalog/katalog/internal/shared"
	"github.com/iskra-katalog/katalog/internal/view"
	_ "github.com/iskra-katalog/katalog/testing"
)

var csrfField = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

type testApp struct {
	server *httptest.Server
	client *http.Client
	store  *catalog.Store
}

func newTestApp(t *testing.T, cfg *Config) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	if cfg == nil {
		cfg = &Config{}
	}
	cfg.CatalogPath = filepath.Join(t.TempDir(), "data.xlsx")
	cfg.CatalogOnCorrupt = string(catalog.CorruptFail)
	cfg.ImportRequired = []string{catalog.ColID, catalog.ColName, catalog.ColPrice}

	schema, err := cfg.Schema()
	require.NoError(t, err)
	storeCfg := cfg.StoreConfig(schema)
	storeCfg.Logger = logger
	store, err := catalog.NewStore(storeCfg)
	require.NoError(t, err)

	templates, err := view.NewEngine()
	require.NoError(t, err)
	sessions := shared.NewSessionManager(redisClient, shared.SessionOptions{TTL: time.Hour})
	csrf := shared.NewCSRFManager("csrf-secret")
	metrics := observability.NewMetrics()
	authService, err := auth.NewService(auth.Credentials{Username: "admin", Password: "rahasia"})
	require.NoError(t, err)

	router := NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		Templates:      templates,
		SessionManager: sessions,
		CSRFManager:    csrf,
		AuthHandler:    auth.NewHandler(logger, authService, templates, sessions, csrf),
		CatalogHandler: cataloghttp.NewHandler(logger, store, templates, csrf, metrics.Catalog(), cataloghttp.Config{
			RequiredColumns: cfg.ImportRequired,
			MaxUploadBytes:  cfg.UploadMaxBytes,
		}),
		Metrics: metrics,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testApp{server: server, client: client, store: store}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	res, err := a.client.Get(a.server.URL + path)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}

func (a *testApp) token(t *testing.T, path string) string {
	t.Helper()
	_, body := a.get(t, path)
	m := csrfField.FindStringSubmatch(body)
	require.Len(t, m, 2, "no csrf token on %s", path)
	return m[1]
}

func (a *testApp) login(t *testing.T) {
	t.Helper()
	form := url.Values{
		"username":   {"admin"},
		"password":   {"rahasia"},
		"csrf_token": {a.token(t, "/login")},
	}
	res, err := a.client.PostForm(a.server.URL+"/login?next=/import-excel", form)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	require.Equal(t, "/import-excel", res.Header.Get("Location"))
}

func (a *testApp) upload(t *testing.T, token, filename, content string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if token != "" {
		require.NoError(t, mw.WriteField("csrf_token", token))
	}
	require.NoError(t, mw.WriteField("mode", "merge"))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	res, err := a.client.Post(a.server.URL+"/import-excel", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	res.Body.Close()
	return res
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newTestApp(t, nil)

	res, body := a.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)
	assert.Empty(t, res.Cookies(), "healthz must not open a session")

	_, _ = a.get(t, "/")
	res, body = a.get(t, "/metrics")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "katalog_http_requests_total")
}

func TestSecurityHeaders(t *testing.T) {
	a := newTestApp(t, nil)

	res, _ := a.get(t, "/")
	assert.Equal(t, "DENY", res.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	a := newTestApp(t, nil)

	res, body := a.get(t, "/nope")
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Halaman tidak ditemukan")
}

func TestPostWithoutCSRFIsForbidden(t *testing.T) {
	a := newTestApp(t, nil)

	res, err := a.client.PostForm(a.server.URL+"/login", url.Values{"username": {"admin"}, "password": {"rahasia"}})
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestLoginImportAndBrowse(t *testing.T) {
	a := newTestApp(t, nil)

	res, _ := a.get(t, "/database")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/login?next=%2Fdatabase", res.Header.Get("Location"))

	a.login(t)

	res = a.upload(t, "", "x.csv", "id,name,price\nA,B,1\n")
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	token := a.token(t, "/import-excel")
	res = a.upload(t, token, "harga.csv", "Kode;Nama;Harga\nNEW-1;Guling Iskra;Rp 35.000\n")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/database", res.Header.Get("Location"))

	res, body := a.get(t, "/database")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Import berhasil! 1 baru, 0 diperbarui.")
	assert.Contains(t, body, "Guling Iskra")
	assert.Contains(t, body, "Rp 35.000")

	_, body = a.get(t, "/database")
	assert.NotContains(t, body, "Import berhasil!", "flash is shown once")

	res, body = a.get(t, "/p/NEW-1")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Guling Iskra")

	logout := url.Values{"csrf_token": {a.token(t, "/database")}}
	res, err := a.client.PostForm(a.server.URL+"/logout", logout)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	res, _ = a.get(t, "/database")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestUploadLimitEnforcedBeforeCSRF(t *testing.T) {
	a := newTestApp(t, &Config{UploadMaxBytes: 512})
	a.login(t)

	token := a.token(t, "/import-excel")
	res := a.upload(t, token, "big.csv", "id,name,price\n"+strings.Repeat("X,Nama panjang,1000\n", 100))
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)
}
