package apps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"goose-tools/internal/domain"
)

// DirResolver maps an app name to its directory.
type DirResolver interface {
	Dir(app string) (string, error)
}

// Opener shows a URL to the user.
type Opener interface {
	Open(ctx context.Context, url string) error
	Name() string
}

// ControllerConfig holds the static server settings.
type ControllerConfig struct {
	Host            string
	DefaultPort     int
	StartTimeout    time.Duration
	ShutdownTimeout time.Duration
	Handler         HandlerConfig
}

// Controller owns the single static app server session of the process.
// Serve supersedes any running session; the state machine is
// stopped -> starting -> running -> stopped.
type Controller struct {
	dirs   DirResolver
	opener Opener
	cfg    ControllerConfig
	logger *slog.Logger

	mu      sync.Mutex
	current *session
}

type session struct {
	info   domain.ServerInfo
	server *http.Server
	cancel context.CancelFunc
	done   chan struct{}
}

// NewController creates a controller. opener may be nil when no browser
// integration is wanted.
func NewController(dirs DirResolver, opener Opener, cfg ControllerConfig, logger *slog.Logger) *Controller {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.DefaultPort == 0 {
		cfg.DefaultPort = 8000
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = 5 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{dirs: dirs, opener: opener, cfg: cfg, logger: logger}
}

type bound struct {
	ln  net.Listener
	err error
}

// Serve starts serving app on port (0 = configured default). A port that
// cannot be bound falls back to an ephemeral one. Any running session is
// shut down first, so its port is free before the new bind.
func (c *Controller) Serve(ctx context.Context, app string, port int) (*domain.ServerInfo, error) {
	const op = "Controller.Serve"
	dir, err := c.dirs.Dir(app)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.stopLocked(ctx); err != nil {
		c.logger.Warn("previous server shutdown incomplete", "error", err)
	}

	if port == 0 {
		port = c.cfg.DefaultPort
	}

	// The session context outlives the request: it is cancelled by Stop.
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	srv := &http.Server{
		Handler:           NewHandler(sctx, dir, c.cfg.Handler, c.logger),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return sctx },
	}
	ready := make(chan bound)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ln, err := c.listen(port)
		select {
		case ready <- bound{ln: ln, err: err}:
		case <-sctx.Done():
			if ln != nil {
				ln.Close()
			}
			return
		}
		if err != nil {
			return
		}
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("app server error", "app", app, "error", err)
		}
	}()

	timer := time.NewTimer(c.cfg.StartTimeout)
	defer timer.Stop()

	select {
	case b := <-ready:
		if b.err != nil {
			cancel()
			<-done
			return nil, domain.NewDomainError(op, domain.ErrServerStart, b.err.Error())
		}
		addr := b.ln.Addr().(*net.TCPAddr)
		s := &session{
			info: domain.ServerInfo{
				App:       app,
				Dir:       dir,
				Port:      addr.Port,
				URL:       "http://" + net.JoinHostPort(c.cfg.Host, strconv.Itoa(addr.Port)) + "/",
				StartedAt: time.Now(),
			},
			server: srv,
			cancel: cancel,
			done:   done,
		}
		c.current = s
		c.logger.Info("app server started", "app", app, "url", s.info.URL)
		info := s.info
		return &info, nil
	case <-timer.C:
		cancel()
		return nil, domain.NewDomainError(op, domain.ErrServerStart, "failed to start within timeout")
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

func (c *Controller) listen(port int) (net.Listener, error) {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err == nil {
		return ln, nil
	}
	c.logger.Info("port unavailable, using an ephemeral port", "addr", addr, "error", err)
	ln, err2 := net.Listen("tcp", net.JoinHostPort(c.cfg.Host, "0"))
	if err2 != nil {
		return nil, fmt.Errorf("listen %s: %w; fallback: %w", addr, err, err2)
	}
	return ln, nil
}

// Stop shuts down the running session and reports whether there was one.
func (c *Controller) Stop(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked(ctx)
}

func (c *Controller) stopLocked(ctx context.Context) (bool, error) {
	s := c.current
	if s == nil {
		return false, nil
	}
	c.current = nil

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ShutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(sctx)
	if err != nil {
		// Force the listener and open connections closed.
		_ = s.server.Close()
	}
	s.cancel()
	<-s.done
	c.logger.Info("app server stopped", "app", s.info.App, "port", s.info.Port)
	return true, err
}

// Current returns the running session, or nil.
func (c *Controller) Current() *domain.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	info := c.current.info
	return &info
}

// Open shows the running session in the configured browser and returns its URL.
func (c *Controller) Open(ctx context.Context) (string, error) {
	info := c.Current()
	if info == nil {
		return "", domain.NewSubSystemError("server", "Controller.Open", domain.ErrNotFound, "no app is being served")
	}
	if c.opener == nil {
		return info.URL, nil
	}
	if err := c.opener.Open(ctx, info.URL); err != nil {
		return info.URL, fmt.Errorf("open %s with %s: %w", info.URL, c.opener.Name(), err)
	}
	return info.URL, nil
}
