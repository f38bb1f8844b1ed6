package apps

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goose-tools/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "apps"), nil)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Todo List", "todo-list"},
		{"my_app!", "my-app-"},
		{"ABC123", "abc123"},
		{"../escape", "---escape"},
		{"café", "caf-"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeName(tt.in), "SanitizeName(%q)", tt.in)
	}
}

func TestSanitizeNameTotalAndIdempotent(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9-]*$`)
	inputs := []string{"Hello, World", "日本語", "a/b\\c", "  spaced  ", "MiXeD-Case_42", "\x00\xff"}
	for _, in := range inputs {
		once := SanitizeName(in)
		assert.Regexp(t, valid, once)
		assert.Equal(t, once, SanitizeName(once))
	}
}

func TestCreateScaffoldsTemplate(t *testing.T) {
	s := newTestStore(t)
	name, err := s.Create(context.Background(), "Todo List", "Tracks todos", nil)
	require.NoError(t, err)
	assert.Equal(t, "todo-list", name)

	dir := filepath.Join(s.Root(), name)
	for _, f := range TemplateFiles {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "Todo List", raw["name"])
	assert.Equal(t, "Tracks todos", raw["description"])
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["created"])
	assert.NotContains(t, raw, "updated")
	assert.Len(t, raw["files"], len(TemplateFiles))
}

func TestCreateTemplateSubset(t *testing.T) {
	s := newTestStore(t)
	name, err := s.Create(context.Background(), "api-only", "", []string{"goose_api.js", "index.html"})
	require.NoError(t, err)

	dir := filepath.Join(s.Root(), name)
	assert.FileExists(t, filepath.Join(dir, "goose_api.js"))
	assert.NoFileExists(t, filepath.Join(dir, "style.css"))
}

func TestCreateUnknownTemplateWritesNothing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), "bad", "", []string{"index.html", "nope.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NoDirExists(t, filepath.Join(s.Root(), "bad"))
}

func TestCreateFailedWriteRemovesPartialApp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	writes := 0
	s.writeFile = func(name string, data []byte, perm fs.FileMode) error {
		writes++
		if writes == 2 {
			return errors.New("disk full")
		}
		return os.WriteFile(name, data, perm)
	}

	_, err := s.Create(ctx, "todo", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoDirExists(t, filepath.Join(s.Root(), "todo"))

	s.writeFile = os.WriteFile
	name, err := s.Create(ctx, "todo", "", nil)
	require.NoError(t, err, "a failed create must not block the name")
	assert.Equal(t, "todo", name)
}

func TestCreateEmptyName(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.CodeAppNameInvalid, domain.ErrorCodeOf(err))
}

func TestCreateDuplicateLeavesFirstUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "My App", "first", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateFile(ctx, name, "index.html", "<h1>mine</h1>"))

	_, err = s.Create(ctx, "my app", "second", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Equal(t, domain.CodeAppExists, domain.ErrorCodeOf(err))

	got, err := s.ViewFile(ctx, name, "index.html")
	require.NoError(t, err)
	assert.Equal(t, "<h1>mine</h1>", got)
}

func TestUpdateFileCreatesParentsAndTracksManifest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "notes", "", nil)
	require.NoError(t, err)

	require.NoError(t, s.UpdateFile(ctx, name, "assets/img/logo.svg", "<svg/>"))
	require.NoError(t, s.UpdateFile(ctx, name, "assets/img/logo.svg", "<svg></svg>"))

	got, err := s.ViewFile(ctx, name, "assets/img/logo.svg")
	require.NoError(t, err)
	assert.Equal(t, "<svg></svg>", got)

	m, err := readManifest(filepath.Join(s.Root(), name))
	require.NoError(t, err)
	count := 0
	for _, f := range m.Files {
		if f == "assets/img/logo.svg" {
			count++
		}
	}
	assert.Equal(t, 1, count, "path appended once")
	require.NotNil(t, m.Updated)
}

func TestUpdateViewRoundTripIsByteExact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "roundtrip", "", nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		content string
	}{
		{"double quotes", `const msg = "say \"hi\"";`},
		{"single quotes", `it's 'quoted'`},
		{"shell escaped quote", `echo 'it'\''s'`},
		{"LF newlines", "line one\nline two\n"},
		{"CRLF newlines", "line one\r\nline two\r\n"},
		{"trailing newline", "body\n"},
		{"no trailing newline", "body"},
		{"empty", ""},
		{"multibyte UTF-8", "caf\u00e9 \u65e5\u672c\u8a9e \U0001F6D2"},
		{"mixed", "<p class=\"x\">'\"$GOOSE_PORT\"'</p>\r\n\t\\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.UpdateFile(ctx, name, "data.txt", tt.content))
			got, err := s.ViewFile(ctx, name, "data.txt")
			require.NoError(t, err)
			assert.Equal(t, []byte(tt.content), []byte(got))
		})
	}
}

func TestUpdateFileRejectsEscapes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "safe", "", nil)
	require.NoError(t, err)

	for _, p := range []string{"../outside.txt", "/etc/passwd", "a/../../b", ""} {
		err := s.UpdateFile(ctx, name, p, "x")
		assert.ErrorIs(t, err, domain.ErrPathOutsideSandbox, "path %q", p)
	}
	assert.NoFileExists(t, filepath.Join(s.Root(), "outside.txt"))
}

func TestUpdateFileBrokenManifestStillWrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "broken", "", nil)
	require.NoError(t, err)
	dir := filepath.Join(s.Root(), name)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0o644))

	require.NoError(t, s.UpdateFile(ctx, name, "index.html", "ok"))
	got, err := s.ViewFile(ctx, name, "index.html")
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestUpdateFileUsesExactName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Create(ctx, "Exact Name", "", nil)
	require.NoError(t, err)

	err = s.UpdateFile(ctx, "Exact Name", "index.html", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeAppNotFound, domain.ErrorCodeOf(err))
}

func TestViewFileMissing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "viewer", "", nil)
	require.NoError(t, err)

	_, err = s.ViewFile(ctx, name, "missing.js")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, domain.CodeFileNotFound, domain.ErrorCodeOf(err))

	_, err = s.ViewFile(ctx, "ghost", "index.html")
	assert.Equal(t, domain.CodeAppNotFound, domain.ErrorCodeOf(err))
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name, err := s.Create(ctx, "doomed", "", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, name))
	assert.NoDirExists(t, filepath.Join(s.Root(), name))

	err = s.Delete(ctx, name)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteRejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"..", ".", "a/b", ""} {
		assert.ErrorIs(t, s.Delete(context.Background(), name), domain.ErrNotFound, "name %q", name)
	}
	assert.DirExists(t, s.Root())
}

func TestListReportsFilesAndManifestErrors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	good, err := s.Create(ctx, "good", "fine", nil)
	require.NoError(t, err)
	require.NoError(t, s.UpdateFile(ctx, good, "lib/util.js", "//"))

	bad, err := s.Create(ctx, "bad", "", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), bad, ManifestFile), []byte("]["), 0o644))

	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "bare"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "stray.txt"), []byte("x"), 0o644))

	apps, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 3)

	byName := map[string]domain.AppInfo{}
	for _, a := range apps {
		byName[a.Name] = a
	}

	g := byName["good"]
	require.NotNil(t, g.Manifest)
	assert.Equal(t, "fine", g.Manifest.Description)
	assert.Contains(t, g.Files, "lib/util.js")
	assert.Contains(t, g.Files, "index.html")
	assert.IsNonDecreasing(t, g.Files)

	b := byName["bad"]
	assert.Nil(t, b.Manifest)
	assert.NotEmpty(t, b.ManifestError)

	bare := byName["bare"]
	assert.Nil(t, bare.Manifest)
	assert.Empty(t, bare.ManifestError)
	assert.Empty(t, bare.Files)
}

func TestDir(t *testing.T) {
	s := newTestStore(t)
	name, err := s.Create(context.Background(), "served", "", nil)
	require.NoError(t, err)

	dir, err := s.Dir(name)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), name), dir)

	_, err = s.Dir("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
