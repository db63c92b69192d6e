package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/garnizeh/interventions/api"
	dbfs "github.com/garnizeh/interventions/db"
	"github.com/garnizeh/interventions/internal/auth"
	"github.com/garnizeh/interventions/internal/config"
	dbpkg "github.com/garnizeh/interventions/internal/db"
	"github.com/garnizeh/interventions/internal/repository/sqlite"
)

const cookieName = "im_session"

func testConfig() *config.Config {
	return &config.Config{
		Addr:            ":0",
		DatabasePath:    ":memory:",
		SessionSecret:   "testsecret",
		APITimeout:      5 * time.Second,
		SessionDuration: time.Hour,
		CookieName:      cookieName,
		LogLevel:        "error",
	}
}

// testApp is the full application on an in-memory database holding the
// default roster (admin1=1, tech1=2, tech2=3).
type testApp struct {
	h        http.Handler
	db       *dbpkg.DB
	sessions *auth.Manager
}

func newApp(t *testing.T, cfg *config.Config) *testApp {
	t.Helper()
	ctx := context.Background()

	d, err := dbpkg.New(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	require.NoError(t, dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles))

	repo := sqlite.New(d, nil)
	sessions := auth.NewManager(repo, repo, cfg.SessionSecret, cfg.SessionDuration, nil)

	r, err := api.SetupRoutes(cfg, "test", "now", d, sessions)
	require.NoError(t, err)
	return &testApp{h: r, db: d, sessions: sessions}
}

func newRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	return newApp(t, cfg).h
}

// browser keeps cookies between requests like a user agent would.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path string, form url.Values) *http.Response {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range b.cookies {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	w := httptest.NewRecorder()
	b.h.ServeHTTP(w, req)
	res := w.Result()
	b.t.Cleanup(func() { res.Body.Close() })

	for _, c := range res.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return res
}

func (b *browser) get(path string) *http.Response {
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, path, form)
}

// page fetches path and returns status and body.
func (b *browser) page(path string) (int, string) {
	res := b.get(path)
	return res.StatusCode, readBody(b.t, res)
}

func (b *browser) login(username string) {
	b.t.Helper()
	res := b.post("/", url.Values{"username": {username}})
	require.Equal(b.t, http.StatusSeeOther, res.StatusCode)
	require.Equal(b.t, "/dashboard", res.Header.Get("Location"))
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

// callJSON sends a JSON request with an optional bearer token.
func callJSON(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch v := body.(type) {
		case string:
			buf.WriteString(v)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(v))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type errorPayload struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var e errorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e), w.Body.String())
	return e
}
