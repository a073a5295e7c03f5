// Package fixture builds the scratch directories of placeholder files that the
// worker is pointed at for each file count in a sweep.
package fixture

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/banshee-data/loadsweep/internal/fsutil"
	"github.com/banshee-data/loadsweep/internal/monitoring"
	"github.com/banshee-data/loadsweep/internal/security"
)

// Defaults used when the corresponding Manager field is empty.
const (
	DefaultBaseDir = "."
	DefaultPrefix  = "org_"
	DefaultExt     = ".org"
)

// Manager creates and releases fixture directories.
type Manager struct {
	FS      fsutil.FileSystem
	BaseDir string
	Prefix  string
	Ext     string
}

// NewManager returns a Manager on the real filesystem with default naming.
func NewManager(baseDir string) *Manager {
	return &Manager{FS: fsutil.OSFileSystem{}, BaseDir: baseDir}
}

func (m *Manager) fs() fsutil.FileSystem {
	if m.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return m.FS
}

func (m *Manager) baseDir() string {
	if m.BaseDir == "" {
		return DefaultBaseDir
	}
	return m.BaseDir
}

func (m *Manager) prefix() string {
	if m.Prefix == "" {
		return DefaultPrefix
	}
	return m.Prefix
}

func (m *Manager) ext() string {
	if m.Ext == "" {
		return DefaultExt
	}
	return m.Ext
}

// Dir is a populated fixture directory. It must be released by its creator.
type Dir struct {
	Path  string
	Files int

	fs       fsutil.FileSystem
	base     string
	prefix   string
	released bool
}

// Create makes a fresh, uniquely named directory under BaseDir holding n empty
// files named 1<ext> through n<ext>. n may be zero.
func (m *Manager) Create(n int) (*Dir, error) {
	if n < 0 {
		return nil, fmt.Errorf("fixture file count must be non-negative, got %d", n)
	}
	fsys := m.fs()
	base := m.baseDir()

	if err := fsys.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("failed to create fixture base %s: %w", base, err)
	}
	path, err := fsys.MkdirTemp(base, m.prefix()+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to create fixture directory: %w", err)
	}

	d := &Dir{Path: path, Files: n, fs: fsys, base: base, prefix: m.prefix()}
	ext := m.ext()
	for i := 1; i <= n; i++ {
		name := filepath.Join(path, strconv.Itoa(i)+ext)
		if err := fsys.WriteFile(name, nil, 0644); err != nil {
			if rerr := d.Release(); rerr != nil {
				monitoring.Logf("fixture cleanup after failed write: %v", rerr)
			}
			return nil, fmt.Errorf("failed to write fixture file %s: %w", name, err)
		}
	}
	return d, nil
}

// Release removes the directory and everything in it. Releasing twice is a no-op.
func (d *Dir) Release() error {
	if d == nil || d.released {
		return nil
	}
	if err := security.ValidateScratchDir(d.Path, d.base, d.prefix); err != nil {
		return fmt.Errorf("refusing to release fixture: %w", err)
	}
	if err := d.fs.RemoveAll(d.Path); err != nil {
		return fmt.Errorf("failed to remove fixture %s: %w", d.Path, err)
	}
	d.released = true
	return nil
}
