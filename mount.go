package docview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidMountName is returned when a mount name is empty or climbs out
// of the namespace
var ErrInvalidMountName = errors.New("invalid mount name")

// Mounts lays several document stores out in one namespace. Each store is
// mounted under a name such as "archive" or "cases/2024"; its documents
// appear below that directory. Paths outside every mount go to the root
// store, if there is one. Nested mounts are matched by longest prefix.
type Mounts struct {
	mu     sync.RWMutex
	root   FileReader
	mounts map[string]FileReader
	// names sorted longest first
	sorted []string
}

// NewMounts creates a mount table over root. root may be nil, in which
// case only mounted paths exist.
func NewMounts(root FileReader) *Mounts {
	return &Mounts{
		root:   root,
		mounts: make(map[string]FileReader),
	}
}

// Mount attaches store under name
func (m *Mounts) Mount(name string, store FileReader) error {
	if store == nil {
		return errors.New("store cannot be nil")
	}
	clean, ok := normalizeMountName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMountName, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[clean]; exists {
		return fmt.Errorf("mount %q: %w", clean, ErrExist)
	}
	m.mounts[clean] = store
	m.updateSorted()
	return nil
}

// Unmount detaches the store mounted under name
func (m *Mounts) Unmount(name string) error {
	clean, _ := normalizeMountName(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.mounts[clean]; !exists {
		return fmt.Errorf("mount %q: %w", clean, ErrNotExist)
	}
	delete(m.mounts, clean)
	m.updateSorted()
	return nil
}

// Names returns the mount names, longest first
func (m *Mounts) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.sorted))
	copy(names, m.sorted)
	return names
}

func (m *Mounts) updateSorted() {
	names := make([]string, 0, len(m.mounts))
	for name := range m.mounts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	m.sorted = names
}

// resolve returns the store owning p, the path relative to that store and
// the mount name. The root store has the empty mount name.
func (m *Mounts) resolve(p string) (FileReader, string, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, name := range m.sorted {
		if p == name {
			return m.mounts[name], "", name, true
		}
		if rest, found := strings.CutPrefix(p, name+"/"); found {
			return m.mounts[name], rest, name, true
		}
	}
	if m.root != nil {
		return m.root, p, "", true
	}
	return nil, "", "", false
}

// mountsBelow returns the mount names strictly below dir
func (m *Mounts) mountsBelow(dir string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for _, name := range m.sorted {
		if dir == "" || strings.HasPrefix(name, dir+"/") {
			names = append(names, name)
		}
	}
	return names
}

// Read implements FileReader
func (m *Mounts) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	p := cleanStorePath(filePath)
	store, rel, _, ok := m.resolve(p)
	if !ok {
		return nil, WrapPathErr("read", filePath, ErrNotExist)
	}
	return store.Read(ctx, rel)
}

// ReadAll implements FileReader
func (m *Mounts) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	p := cleanStorePath(filePath)
	store, rel, _, ok := m.resolve(p)
	if !ok {
		return nil, WrapPathErr("read", filePath, ErrNotExist)
	}
	return store.ReadAll(ctx, rel)
}

// Stat implements FileReader. Mount points and their parents are reported
// as directories.
func (m *Mounts) Stat(ctx context.Context, filePath string) (*FileInfo, error) {
	p := cleanStorePath(filePath)
	if p == "" {
		return &FileInfo{Name: "/", IsDir: true}, nil
	}

	store, rel, name, ok := m.resolve(p)
	if ok && rel == "" && name != "" {
		return &FileInfo{Name: path.Base(p), Path: p, IsDir: true}, nil
	}
	if len(m.mountsBelow(p)) > 0 {
		return &FileInfo{Name: path.Base(p), Path: p, IsDir: true}, nil
	}
	if !ok {
		return nil, WrapPathErr("stat", filePath, ErrNotExist)
	}

	info, err := store.Stat(ctx, rel)
	if err != nil {
		return nil, err
	}
	out := *info
	out.Path = path.Join(name, info.Path)
	return &out, nil
}

// ListContents implements FileReader. Entries from every store that owns
// part of dir are merged and sorted by path; entries hidden by a mount are
// dropped.
func (m *Mounts) ListContents(ctx context.Context, dir string, recursive bool) ([]FileInfo, error) {
	d := cleanStorePath(dir)

	byPath := make(map[string]FileInfo)
	add := func(mountName string, infos []FileInfo) {
		for _, info := range infos {
			info.Path = path.Join(mountName, info.Path)
			if _, _, owner, _ := m.resolve(info.Path); owner != mountName {
				continue
			}
			if _, seen := byPath[info.Path]; !seen {
				byPath[info.Path] = info
			}
		}
	}

	below := m.mountsBelow(d)
	for _, name := range below {
		rest := strings.TrimPrefix(name, d)
		rest = strings.TrimPrefix(rest, "/")
		parts := strings.Split(rest, "/")
		if !recursive {
			parts = parts[:1]
		}
		for i := range parts {
			p := path.Join(d, strings.Join(parts[:i+1], "/"))
			byPath[p] = FileInfo{Name: path.Base(p), Path: p, IsDir: true}
		}
	}

	store, rel, owner, ok := m.resolve(d)
	if ok {
		infos, err := store.ListContents(ctx, rel, recursive)
		if err != nil && (len(below) == 0 || !IsNotExist(err)) {
			return nil, err
		}
		add(owner, infos)
	} else if len(below) == 0 {
		return nil, WrapPathErr("listcontents", dir, ErrNotExist)
	}

	if recursive {
		for _, name := range below {
			m.mu.RLock()
			mounted := m.mounts[name]
			m.mu.RUnlock()

			infos, err := mounted.ListContents(ctx, "", true)
			if err != nil {
				return nil, fmt.Errorf("mount %q: %w", name, err)
			}
			add(name, infos)
		}
	}

	entries := make([]FileInfo, 0, len(byPath))
	for _, info := range byPath {
		entries = append(entries, info)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}

// Watch implements CanWatch. A filter under a mount name watches that
// mount only; any other filter is handed to every watchable store and the
// tokens are combined.
func (m *Mounts) Watch(ctx context.Context, filter string) (ChangeToken, error) {
	m.mu.RLock()
	for _, name := range m.sorted {
		if rest, found := strings.CutPrefix(filter, name+"/"); found {
			store := m.mounts[name]
			m.mu.RUnlock()
			if w, ok := store.(CanWatch); ok {
				return w.Watch(ctx, rest)
			}
			return nil, WrapPathErr("watch", filter, ErrNotSupported)
		}
	}

	stores := make([]FileReader, 0, len(m.mounts)+1)
	if m.root != nil {
		stores = append(stores, m.root)
	}
	for _, name := range m.sorted {
		stores = append(stores, m.mounts[name])
	}
	m.mu.RUnlock()

	var tokens []ChangeToken
	for _, store := range stores {
		w, ok := store.(CanWatch)
		if !ok {
			continue
		}
		token, err := w.Watch(ctx, filter)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if len(tokens) == 0 {
		return nil, WrapPathErr("watch", filter, ErrNotSupported)
	}
	return NewCompositeChangeToken(tokens...), nil
}

// Close closes the root store and every mounted store that holds resources
func (m *Mounts) Close() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var errs []error
	if c, ok := m.root.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	for _, name := range m.sorted {
		if c, ok := m.mounts[name].(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// normalizeMountName cleans a mount name to a slash-separated path without
// leading or trailing slash
func normalizeMountName(name string) (string, bool) {
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return "", false
		}
	}
	clean := cleanStorePath(name)
	return clean, clean != ""
}

func cleanStorePath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

var (
	_ FileReader = (*Mounts)(nil)
	_ CanWatch   = (*Mounts)(nil)
)
