package shell

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goose-tools/internal/domain"
)

func TestLocalBackendName(t *testing.T) {
	assert.Equal(t, "local", NewLocalBackend(time.Second).Name())
}

func TestLocalBackendCapturesOutput(t *testing.T) {
	b := NewLocalBackend(5 * time.Second)
	stdout, stderr, err := b.Execute(context.Background(), "sh", []string{"-c", "echo out; echo err >&2"}, "")
	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout)
	assert.Equal(t, "err\n", stderr)
}

func TestLocalBackendWorkDir(t *testing.T) {
	dir := t.TempDir()
	b := NewLocalBackend(5 * time.Second)
	stdout, _, err := b.Execute(context.Background(), "pwd", nil, dir)
	require.NoError(t, err)
	// macOS temp dirs resolve through /private.
	assert.True(t, strings.HasSuffix(strings.TrimSpace(stdout), strings.TrimPrefix(dir, "/private")))
}

func TestLocalBackendExitCode(t *testing.T) {
	b := NewLocalBackend(5 * time.Second)
	_, _, err := b.Execute(context.Background(), "sh", []string{"-c", "exit 3"}, "")
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, -1, ExitCode(errors.New("boom")))
}

func TestLocalBackendNotFound(t *testing.T) {
	b := NewLocalBackend(5 * time.Second)
	_, _, err := b.Execute(context.Background(), "definitely-not-a-real-binary-xyz", nil, "")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestLocalBackendTimeout(t *testing.T) {
	b := NewLocalBackend(50 * time.Millisecond)
	_, _, err := b.Execute(context.Background(), "sleep", []string{"5"}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
}
