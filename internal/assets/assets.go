// Package assets resolves the raster assets card jobs draw with.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ErrAssetMissing is returned when no asset exists for a request.
var ErrAssetMissing = errors.New("asset missing")

// Category groups related assets on disk.
type Category string

const (
	CategoryBackground Category = "backgrounds"
	CategoryEmblem     Category = "emblems"
	CategoryChampion   Category = "champions"
)

// Resolver returns raw asset bytes. Locale may be empty; a localized lookup
// falls back to the unlocalized asset.
type Resolver interface {
	Resolve(ctx context.Context, category Category, name, locale string) ([]byte, error)
}

// Dir resolves assets from <root>/<category>/[<locale>/]<name>.
type Dir struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewDir creates a resolver rooted at dir.
func NewDir(dir string, logger *slog.Logger) (*Dir, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("asset dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset dir %s is not a directory", dir)
	}
	return NewFS(os.DirFS(filepath.Clean(dir)), logger), nil
}

// NewFS creates a resolver over an fs.FS with the same layout as NewDir.
func NewFS(fsys fs.FS, logger *slog.Logger) *Dir {
	return &Dir{fsys: fsys, logger: logger.With("component", "assets")}
}

func (d *Dir) Resolve(ctx context.Context, category Category, name, locale string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validName(name) || !validName(string(category)) || (locale != "" && !validName(locale)) {
		return nil, fmt.Errorf("%w: invalid asset reference %s/%s", ErrAssetMissing, category, name)
	}

	candidates := make([]string, 0, 2)
	if locale != "" {
		candidates = append(candidates, path.Join(string(category), locale, name))
	}
	candidates = append(candidates, path.Join(string(category), name))

	for _, p := range candidates {
		data, err := fs.ReadFile(d.fsys, p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read asset %s: %w", p, err)
		}
	}

	d.logger.Warn("asset not found", "category", category, "name", name, "locale", locale)
	return nil, fmt.Errorf("%w: %s/%s", ErrAssetMissing, category, name)
}

// validName rejects anything that could escape its category directory.
func validName(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

// Map is an in-memory Resolver keyed by "<category>/[<locale>/]<name>".
type Map struct {
	mu     sync.RWMutex
	assets map[string][]byte
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{assets: make(map[string][]byte)}
}

// Put stores an asset. An empty locale stores the fallback.
func (m *Map) Put(category Category, name, locale string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[mapKey(category, name, locale)] = data
}

func (m *Map) Resolve(ctx context.Context, category Category, name, locale string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if locale != "" {
		if data, ok := m.assets[mapKey(category, name, locale)]; ok {
			return data, nil
		}
	}
	if data, ok := m.assets[mapKey(category, name, "")]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s/%s", ErrAssetMissing, category, name)
}

func mapKey(category Category, name, locale string) string {
	return path.Join(string(category), locale, name)
}
