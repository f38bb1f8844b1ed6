package apps

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"goose-tools/internal/infra/middleware"
)

// Placeholder tokens recognised in served JavaScript.
const (
	PortToken   = "$GOOSE_PORT"
	SecretToken = "$GOOSE_SERVER__SECRET_KEY"
)

// EnvConfig names the environment variables substituted into scripts.
type EnvConfig struct {
	PortEnv      string
	PortFallback string
	SecretEnv    string
	// Lookup defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

func (c EnvConfig) values() (port, secret string) {
	lookup := c.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	port = c.PortFallback
	if v, ok := lookup(c.PortEnv); ok && v != "" {
		port = v
	}
	secret, _ = lookup(c.SecretEnv)
	return port, secret
}

// EnvSubstitution answers .js requests whose body contains a placeholder
// token with the tokens replaced by current environment values. Everything
// else falls through to next. Files on disk are never modified.
func EnvSubstitution(root http.FileSystem, cfg EnvConfig, logger *slog.Logger) middleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if (r.Method != http.MethodGet && r.Method != http.MethodHead) || !strings.HasSuffix(r.URL.Path, ".js") {
				next.ServeHTTP(w, r)
				return
			}

			name := path.Clean("/" + r.URL.Path)
			body, ok := readScript(root, name)
			if !ok || (!strings.Contains(body, PortToken) && !strings.Contains(body, SecretToken)) {
				next.ServeHTTP(w, r)
				return
			}

			port, secret := cfg.values()
			out := strings.NewReplacer(PortToken, port, SecretToken, secret).Replace(body)

			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			w.Header().Set("Content-Length", strconv.Itoa(len(out)))
			w.WriteHeader(http.StatusOK)
			if r.Method == http.MethodHead {
				return
			}
			if _, err := io.WriteString(w, out); err != nil {
				logger.Debug("write substituted script failed", "path", name, "error", err)
			}
		})
	}
}

func readScript(root http.FileSystem, name string) (string, bool) {
	f, err := root.Open(name)
	if err != nil {
		return "", false
	}
	defer f.Close()
	if fi, err := f.Stat(); err != nil || fi.IsDir() {
		return "", false
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// HandlerConfig configures the interceptor chain in front of the file server.
type HandlerConfig struct {
	Env             EnvConfig
	RateLimitPerMin int // 0 = disabled
}

// NewHandler builds the request pipeline for one served app directory:
// no-cache headers, optional rate limiting, script substitution, then
// static files. ctx bounds the rate limiter's background sweeper.
func NewHandler(ctx context.Context, dir string, cfg HandlerConfig, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	root := http.Dir(dir)

	var limit middleware.Middleware
	if cfg.RateLimitPerMin > 0 {
		limit = middleware.RateLimit(ctx, cfg.RateLimitPerMin, max(cfg.RateLimitPerMin/6, 10))
	}

	return middleware.Chain(http.FileServer(root),
		middleware.NoCache,
		limit,
		EnvSubstitution(root, cfg.Env, logger),
	)
}
