package apps

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiScript = "const PORT = '$GOOSE_PORT';\nconst KEY = '$GOOSE_SERVER__SECRET_KEY';\n"

func writeApp(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func testEnv() EnvConfig {
	return EnvConfig{PortEnv: "GOOSE_PORT", PortFallback: "3000", SecretEnv: "GOOSE_SERVER__SECRET_KEY"}
}

func get(t *testing.T, h http.Handler, target string) *http.Response {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w.Result()
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestHandlerSubstitutesPlaceholders(t *testing.T) {
	t.Setenv("GOOSE_PORT", "7777")
	t.Setenv("GOOSE_SERVER__SECRET_KEY", "s3cr3t")
	dir := writeApp(t, map[string]string{"goose_api.js": apiScript})
	h := NewHandler(context.Background(), dir, HandlerConfig{Env: testEnv()}, nil)

	resp := get(t, h, "/goose_api.js")
	got := body(t, resp)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "const PORT = '7777';\nconst KEY = 's3cr3t';\n", got)
	assert.Equal(t, "application/javascript; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(len(got)), resp.Header.Get("Content-Length"))
	assert.Equal(t, "no-store, no-cache, must-revalidate", resp.Header.Get("Cache-Control"))

	onDisk, err := os.ReadFile(filepath.Join(dir, "goose_api.js"))
	require.NoError(t, err)
	assert.Equal(t, apiScript, string(onDisk), "file on disk is unchanged")
}

func TestHandlerLooksUpEnvPerRequest(t *testing.T) {
	dir := writeApp(t, map[string]string{"goose_api.js": apiScript})
	h := NewHandler(context.Background(), dir, HandlerConfig{Env: testEnv()}, nil)

	t.Setenv("GOOSE_PORT", "1111")
	assert.Contains(t, body(t, get(t, h, "/goose_api.js")), "'1111'")

	t.Setenv("GOOSE_PORT", "2222")
	assert.Contains(t, body(t, get(t, h, "/goose_api.js")), "'2222'")
}

func TestHandlerUnsetEnvFallbacks(t *testing.T) {
	env := testEnv()
	env.Lookup = func(string) (string, bool) { return "", false }
	dir := writeApp(t, map[string]string{"goose_api.js": apiScript})
	h := NewHandler(context.Background(), dir, HandlerConfig{Env: env}, nil)

	got := body(t, get(t, h, "/goose_api.js"))
	assert.Equal(t, "const PORT = '3000';\nconst KEY = '';\n", got)
}

func TestHandlerPassesThroughOtherFiles(t *testing.T) {
	t.Setenv("GOOSE_PORT", "7777")
	dir := writeApp(t, map[string]string{
		"index.html":  "<p>$GOOSE_PORT</p>",
		"plain.js":    "console.log('hi');",
		"sub/app.css": "body{}",
	})
	h := NewHandler(context.Background(), dir, HandlerConfig{Env: testEnv()}, nil)

	resp := get(t, h, "/index.html")
	// http.FileServer redirects explicit index.html requests to the directory.
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)

	resp = get(t, h, "/")
	assert.Equal(t, "<p>$GOOSE_PORT</p>", body(t, resp), "html is never substituted")

	resp = get(t, h, "/plain.js")
	assert.Equal(t, "console.log('hi');", body(t, resp))
	assert.Contains(t, resp.Header.Get("Content-Type"), "javascript")

	resp = get(t, h, "/sub/app.css")
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")

	resp = get(t, h, "/missing.js")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerHead(t *testing.T) {
	t.Setenv("GOOSE_PORT", "7777")
	t.Setenv("GOOSE_SERVER__SECRET_KEY", "k")
	dir := writeApp(t, map[string]string{"goose_api.js": apiScript})
	h := NewHandler(context.Background(), dir, HandlerConfig{Env: testEnv()}, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodHead, "/goose_api.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Equal(t, strconv.Itoa(len("const PORT = '7777';\nconst KEY = 'k';\n")), w.Header().Get("Content-Length"))
}

func TestHandlerRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := writeApp(t, map[string]string{"index.html": "hi"})
	h := NewHandler(ctx, dir, HandlerConfig{Env: testEnv(), RateLimitPerMin: 6}, nil)

	limited := false
	for i := 0; i < 20; i++ {
		if get(t, h, "/").StatusCode == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
