// Package apps manages small static web apps on disk and serves them over
// HTTP with runtime environment values injected into their scripts.
package apps

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"goose-tools/internal/domain"
)

//go:embed template
var templateFS embed.FS

// TemplateFiles are the starter files copied into a new app, in copy order.
var TemplateFiles = []string{"index.html", "style.css", "script.js", "goose_api.js"}

// ManifestFile is the per-app metadata file name.
const ManifestFile = "manifest.json"

// Store keeps one directory per app under root.
// Directory structure: <root>/<app>/{index.html, ..., manifest.json}
type Store struct {
	root      string
	logger    *slog.Logger
	now       func() time.Time
	writeFile func(name string, data []byte, perm fs.FileMode) error
}

// NewStore creates a store rooted at the given directory, creating it if needed.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve apps root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create apps root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: abs, logger: logger, now: time.Now, writeFile: os.WriteFile}, nil
}

// Root returns the absolute apps directory.
func (s *Store) Root() string { return s.root }

// SanitizeName keeps ASCII letters and digits, replaces every other rune
// with '-' and lower-cases the result.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Dir resolves an existing app's directory by exact name.
func (s *Store) Dir(app string) (string, error) {
	return s.appDir("Store.Dir", app)
}

func (s *Store) appDir(op, app string) (string, error) {
	notFound := domain.NewSubSystemError("app", op, domain.ErrNotFound, fmt.Sprintf("app %q", app))
	if app == "" || app == "." || app == ".." || strings.ContainsAny(app, `/\`) {
		return "", notFound
	}
	dir := filepath.Join(s.root, app)
	fi, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", notFound
		}
		return "", fmt.Errorf("stat app dir: %w", err)
	}
	if !fi.IsDir() {
		return "", notFound
	}
	return dir, nil
}

// List returns every app directory with its file list and manifest.
// A malformed manifest is reported on the entry, not as an error.
func (s *Store) List(_ context.Context) ([]domain.AppInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list apps: %w", err)
	}

	apps := make([]domain.AppInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, entry.Name())
		info := domain.AppInfo{Name: entry.Name(), Path: dir}

		files, err := scanFiles(dir)
		if err != nil {
			s.logger.Warn("scan app files failed", "app", entry.Name(), "error", err)
		}
		info.Files = files

		m, err := readManifest(dir)
		switch {
		case err == nil:
			info.Manifest = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			info.ManifestError = err.Error()
		}
		apps = append(apps, info)
	}
	return apps, nil
}

// Create scaffolds a new app from the starter template and returns its
// sanitized name. files selects a subset of TemplateFiles; empty means all.
func (s *Store) Create(_ context.Context, name, description string, files []string) (string, error) {
	const op = "Store.Create"
	clean := SanitizeName(name)
	if clean == "" {
		return "", domain.NewSubSystemError("app", op, domain.ErrInvalidInput,
			fmt.Sprintf("name %q has no usable characters", name))
	}

	selected, err := selectTemplates(files)
	if err != nil {
		return "", domain.NewSubSystemError("app", op, domain.ErrInvalidInput, err.Error())
	}

	dir := filepath.Join(s.root, clean)
	if _, err := os.Stat(dir); err == nil {
		return "", domain.NewSubSystemError("app", op, domain.ErrDuplicate,
			fmt.Sprintf("app %q", clean))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create app dir: %w", err)
	}

	if err := s.scaffold(dir, name, description, selected); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			s.logger.Warn("remove partial app", "app", clean, "error", rmErr)
		}
		return "", err
	}
	s.logger.Info("app created", "app", clean, "files", len(selected))
	return clean, nil
}

// scaffold writes the selected templates and the manifest into dir.
func (s *Store) scaffold(dir, name, description string, selected []string) error {
	for _, f := range selected {
		data, err := templateFS.ReadFile(path.Join("template", f))
		if err != nil {
			return fmt.Errorf("read template %s: %w", f, err)
		}
		if err := s.writeFile(filepath.Join(dir, f), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f, err)
		}
	}

	m := &domain.Manifest{
		Name:        name,
		Description: description,
		Created:     s.now().UTC().Truncate(time.Second),
		Files:       selected,
	}
	return writeManifest(dir, m)
}

func selectTemplates(files []string) ([]string, error) {
	if len(files) == 0 {
		return append([]string(nil), TemplateFiles...), nil
	}
	known := make(map[string]bool, len(TemplateFiles))
	for _, f := range TemplateFiles {
		known[f] = true
	}
	seen := make(map[string]bool, len(files))
	var out []string
	for _, f := range files {
		if !known[f] {
			return nil, fmt.Errorf("unknown template file %q (available: %s)", f, strings.Join(TemplateFiles, ", "))
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// UpdateFile writes content to a file inside the app, creating parent
// directories. The manifest bookkeeping is best effort.
func (s *Store) UpdateFile(_ context.Context, app, rel, content string) error {
	const op = "Store.UpdateFile"
	dir, err := s.appDir(op, app)
	if err != nil {
		return err
	}
	target, err := resolveInApp(op, dir, rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dirs: %w", err)
	}
	if err := s.writeFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}

	if err := s.touchManifest(dir, filepath.ToSlash(filepath.Clean(filepath.FromSlash(rel)))); err != nil {
		s.logger.Warn("manifest update failed", "app", app, "error", err)
	}
	return nil
}

func (s *Store) touchManifest(dir, rel string) error {
	m, err := readManifest(dir)
	if err != nil {
		return err
	}
	found := false
	for _, f := range m.Files {
		if f == rel {
			found = true
			break
		}
	}
	if !found {
		m.Files = append(m.Files, rel)
	}
	now := s.now().UTC().Truncate(time.Second)
	m.Updated = &now
	return writeManifest(dir, m)
}

// ViewFile returns the raw text of a file inside the app.
func (s *Store) ViewFile(_ context.Context, app, rel string) (string, error) {
	const op = "Store.ViewFile"
	dir, err := s.appDir(op, app)
	if err != nil {
		return "", err
	}
	target, err := resolveInApp(op, dir, rel)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if os.IsNotExist(err) {
			return "", domain.NewSubSystemError("file", op, domain.ErrNotFound,
				fmt.Sprintf("file %q in app %q", rel, app))
		}
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	return string(data), nil
}

// Delete removes an app directory and everything in it.
func (s *Store) Delete(_ context.Context, app string) error {
	dir, err := s.appDir("Store.Delete", app)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete app: %w", err)
	}
	s.logger.Info("app deleted", "app", app)
	return nil
}

// resolveInApp joins a slash-separated relative path onto dir, rejecting
// anything that would land outside it.
func resolveInApp(op, dir, rel string) (string, error) {
	local := filepath.FromSlash(rel)
	if rel == "" || !filepath.IsLocal(local) {
		return "", domain.NewDomainError(op, domain.ErrPathOutsideSandbox, rel)
	}
	return filepath.Join(dir, local), nil
}

func scanFiles(dir string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(files)
	return files, err
}

func readManifest(dir string) (*domain.Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func writeManifest(dir string, m *domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
