package device

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goose-tools/internal/adapter/shell"
	"goose-tools/internal/domain"
	"goose-tools/internal/infra/config"
)

type call struct {
	command string
	args    []string
}

// fakeBackend answers adb invocations from a handler and records them.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []call
	handler func(args []string) (string, string, error)
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Execute(_ context.Context, command string, args []string, _ string) (string, string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{command: command, args: append([]string(nil), args...)})
	f.mu.Unlock()
	if f.handler == nil {
		return "", "", nil
	}
	return f.handler(args)
}

func (f *fakeBackend) joined() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = strings.Join(c.args, " ")
	}
	return out
}

// exitErr produces a real *exec.ExitError with the given status.
func exitErr(t *testing.T, code int) error {
	t.Helper()
	err := exec.Command("sh", "-c", fmt.Sprintf("exit %d", code)).Run()
	require.Error(t, err)
	return err
}

func newTestADB(b *fakeBackend) *ADB {
	return NewADB(b, config.Defaults().Device, nil)
}

func TestParseDevices(t *testing.T) {
	out := "* daemon not running; starting now at tcp:5037\n" +
		"* daemon started successfully\n" +
		"List of devices attached\n" +
		"emulator-5554\tdevice\n" +
		"R58M123ABC\tunauthorized\n" +
		"\n"
	devices := ParseDevices(out)
	require.Len(t, devices, 2)
	assert.Equal(t, domain.Device{Serial: "emulator-5554", State: domain.DeviceStateOnline}, devices[0])
	assert.Equal(t, domain.DeviceStateUnauthorized, devices[1].State)
}

func TestCheckConnection(t *testing.T) {
	tests := []struct {
		name      string
		stdout    string
		stderr    string
		err       error
		connected bool
		reason    string
	}{
		{"connected", "List of devices attached\nemulator-5554\tdevice\n", "", nil, true, ReasonConnected},
		{"header only", "List of devices attached\n\n", "", nil, false, ReasonNoDevices},
		{"offline only", "List of devices attached\nemulator-5554\toffline\n", "", nil, false, ReasonNoDevices},
		{"adb missing", "", "", &exec.Error{Name: "adb", Err: exec.ErrNotFound}, false, ReasonADBNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{handler: func([]string) (string, string, error) { return tt.stdout, tt.stderr, tt.err }}
			status := newTestADB(b).CheckConnection(context.Background())
			assert.Equal(t, tt.connected, status.Connected)
			assert.Equal(t, tt.reason, status.Reason)
			assert.Equal(t, []string{"devices"}, b.joined())
		})
	}
}

func TestCheckConnectionADBError(t *testing.T) {
	fail := exitErr(t, 1)
	b := &fakeBackend{handler: func([]string) (string, string, error) { return "", "cannot connect to daemon", fail }}
	status := newTestADB(b).CheckConnection(context.Background())
	assert.False(t, status.Connected)
	assert.True(t, strings.HasPrefix(status.Reason, "ADB error: "), status.Reason)
	assert.Contains(t, status.Reason, "cannot connect to daemon")
}

func TestCheckConnectionSerial(t *testing.T) {
	cfg := config.Defaults().Device
	cfg.Serial = "R58M123ABC"
	b := &fakeBackend{handler: func([]string) (string, string, error) {
		return "List of devices attached\nemulator-5554\tdevice\n", "", nil
	}}
	status := NewADB(b, cfg, nil).CheckConnection(context.Background())
	assert.False(t, status.Connected, "the configured serial is not attached")
	assert.Len(t, status.Devices, 1)
}

func TestStartCommandEscapesInstruction(t *testing.T) {
	b := &fakeBackend{}
	require.NoError(t, newTestADB(b).StartCommand(context.Background(), "find Bob's cart"))

	calls := b.joined()
	require.Len(t, calls, 1)
	want := "shell am start -a xyz.block.gosling.EXECUTE_COMMAND -n xyz.block.gosling/.features.agent.DebugActivity --es command 'find Bob'\\''s cart'"
	assert.Equal(t, want, calls[0])
}

func TestStartCommandFailure(t *testing.T) {
	fail := exitErr(t, 255)
	b := &fakeBackend{handler: func([]string) (string, string, error) { return "", "Error: Activity not started", fail }}
	err := newTestADB(b).StartCommand(context.Background(), "help")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDispatch)
	assert.Equal(t, "Error: Activity not started", domain.StderrOf(err))
	assert.Equal(t, domain.CodeDispatch, domain.ErrorCodeOf(err))

	var ee *domain.CommandError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 255, ee.ExitCode)
}

func TestSerialPrefix(t *testing.T) {
	cfg := config.Defaults().Device
	cfg.Serial = "emulator-5554"
	b := &fakeBackend{}
	a := NewADB(b, cfg, nil)
	a.ClearResult(context.Background())
	calls := b.joined()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0], "-s emulator-5554 shell rm -f "), calls[0])
}

func TestResultExists(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		b := &fakeBackend{handler: func([]string) (string, string, error) { return "exists\n", "", nil }}
		ok, err := newTestADB(b).ResultExists(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "shell [ -f '"+config.Defaults().Device.ResultPath+"' ] && echo exists", b.joined()[0])
	})
	t.Run("absent old adb", func(t *testing.T) {
		b := &fakeBackend{}
		ok, err := newTestADB(b).ResultExists(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("absent new adb", func(t *testing.T) {
		fail := exitErr(t, 1)
		b := &fakeBackend{handler: func([]string) (string, string, error) { return "", "", fail }}
		ok, err := newTestADB(b).ResultExists(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("device gone", func(t *testing.T) {
		fail := exitErr(t, 255)
		b := &fakeBackend{handler: func([]string) (string, string, error) { return "", "error: no devices/emulators found", fail }}
		ok, err := newTestADB(b).ResultExists(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, domain.ErrTransfer)
	})
}

type countingWaiter struct{ probes int }

func (w *countingWaiter) Wait(ctx context.Context, probe func(context.Context) (bool, error)) (bool, error) {
	for i := 0; i < 3; i++ {
		w.probes++
		if ok, _ := probe(ctx); ok {
			return true, nil
		}
	}
	return false, nil
}

func TestPollResult(t *testing.T) {
	n := 0
	b := &fakeBackend{handler: func([]string) (string, string, error) {
		n++
		if n == 2 {
			return "exists", "", nil
		}
		return "", "", nil
	}}
	w := &countingWaiter{}
	found, err := newTestADB(b).PollResult(context.Background(), w)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, w.probes)
}

func TestReadResult(t *testing.T) {
	content := "Line one\n  indented 'quoted' line\n"
	b := &fakeBackend{handler: func([]string) (string, string, error) { return content, "", nil }}
	got, err := newTestADB(b).ReadResult(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content, got)

	fail := exitErr(t, 1)
	b = &fakeBackend{handler: func([]string) (string, string, error) { return "", "No such file", fail }}
	_, err = newTestADB(b).ReadResult(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransfer)
	assert.Equal(t, "No such file", domain.StderrOf(err))
}

func TestCaptureScreenshot(t *testing.T) {
	cfg := config.Defaults().Device
	cfg.ScreenshotLocalPath = filepath.Join(t.TempDir(), "shots", "latest.png")
	b := &fakeBackend{}
	path, err := NewADB(b, cfg, nil).CaptureScreenshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.ScreenshotLocalPath, path)
	assert.Equal(t, []string{
		"shell screencap -p /sdcard/latest_command_result.png",
		"pull /sdcard/latest_command_result.png " + cfg.ScreenshotLocalPath,
	}, b.joined())
	assert.DirExists(t, filepath.Dir(cfg.ScreenshotLocalPath))
}

func TestCaptureScreenshotFailureStopsBeforePull(t *testing.T) {
	fail := exitErr(t, 1)
	b := &fakeBackend{handler: func([]string) (string, string, error) { return "", "screencap failed", fail }}
	_, err := newTestADB(b).CaptureScreenshot(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransfer)
	assert.Len(t, b.joined(), 1)
}

func TestShellQuoteRoundTrip(t *testing.T) {
	inputs := []string{
		"plain",
		"it's",
		"''",
		`a "double" and 'single' mix`,
		"semi; rm -rf / && echo $HOME `id`",
		"multi\nline",
		"",
	}
	for _, in := range inputs {
		out, err := exec.Command("sh", "-c", "printf %s "+ShellQuote(in)).Output()
		require.NoError(t, err, in)
		assert.Equal(t, in, string(out))
	}
}

func TestCheckConnectionADBMissingThroughBreaker(t *testing.T) {
	b := &fakeBackend{handler: func([]string) (string, string, error) {
		return "", "", &exec.Error{Name: "adb", Err: exec.ErrNotFound}
	}}
	breaker := shell.NewBreakerBackend(b, shell.BreakerConfig{MaxFailures: 3}, nil)
	adb := NewADB(breaker, config.Defaults().Device, nil)

	for i := 0; i < 5; i++ {
		status := adb.CheckConnection(context.Background())
		assert.False(t, status.Connected)
		assert.Equal(t, ReasonADBNotFound, status.Reason, "call %d", i+1)
	}
	assert.Len(t, b.calls, 3, "calls after the circuit opens must not reach adb")
}
