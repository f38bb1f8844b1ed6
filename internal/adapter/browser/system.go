// Package browser opens served app URLs for the user.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"goose-tools/internal/adapter/shell"
)

// SystemOpener hands the URL to the operating system's default handler.
type SystemOpener struct {
	backend shell.Backend
	goos    string
}

// NewSystemOpener creates an opener for the current platform.
func NewSystemOpener(backend shell.Backend) *SystemOpener {
	return &SystemOpener{backend: backend, goos: runtime.GOOS}
}

func (o *SystemOpener) Name() string { return "system" }

// Open launches the platform URL handler.
func (o *SystemOpener) Open(ctx context.Context, url string) error {
	cmd, args := launcher(o.goos, url)
	if _, stderr, err := o.backend.Execute(ctx, cmd, args, ""); err != nil {
		if s := strings.TrimSpace(stderr); s != "" {
			return fmt.Errorf("%s: %w: %s", cmd, err, s)
		}
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func launcher(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
