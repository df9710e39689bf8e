package memory

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/filetype"
)

// memoryFile represents a document stored in memory
type memoryFile struct {
	content     []byte
	contentType string
	metadata    map[string]string
	modTime     time.Time
}

// watchEntry represents a single watch subscription
type watchEntry struct {
	filter glob.Glob
	token  *docview.CallbackChangeToken
}

// Adapter is an in-memory document store. Directories exist implicitly as
// the parents of stored files. Useful for tests, demos and documents that
// arrive through an application rather than a disk or bucket.
type Adapter struct {
	mu      sync.RWMutex
	files   map[string]*memoryFile
	dirs    map[string]time.Time
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64

	watchMu sync.RWMutex
	watches []*watchEntry
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates an empty in-memory store
func New(cfg ...Config) *Adapter {
	a := &Adapter{
		files: make(map[string]*memoryFile),
		dirs:  map[string]time.Time{"": time.Now()},
	}
	if len(cfg) > 0 {
		a.maxSize = cfg[0].MaxSize
	}
	return a
}

// Write stores the content of r at p. Without WithContentType the declared
// type is derived from the extension, and stays empty for unknown ones.
func (a *Adapter) Write(ctx context.Context, p string, r io.Reader, options ...docview.WriteOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = normalizePath(p)
	if p == "" || !isValidPath(p) {
		return docview.WrapPathErr("write", p, docview.ErrNotAllowed)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return docview.WrapPathErr("write", p, err)
	}

	opts := docview.ApplyWriteOptions(options...)

	a.mu.Lock()
	if _, isDir := a.dirs[p]; isDir {
		a.mu.Unlock()
		return docview.WrapPathErr("write", p, docview.ErrIsDir)
	}

	newSize := a.size + int64(len(data))
	if existing, exists := a.files[p]; exists {
		if !opts.Overwrite {
			a.mu.Unlock()
			return docview.WrapPathErr("write", p, docview.ErrExist)
		}
		newSize -= int64(len(existing.content))
	}

	if a.maxSize > 0 && newSize > a.maxSize {
		a.mu.Unlock()
		return docview.WrapPathErr("write", p, docview.ErrTooLarge)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = filetype.MIMETypeForShortName(filetype.Extension(p))
	}

	a.ensureParentDirs(p)
	a.files[p] = &memoryFile{
		content:     data,
		contentType: contentType,
		metadata:    opts.Metadata,
		modTime:     time.Now(),
	}
	a.size = newSize
	a.mu.Unlock()

	a.notifyWatchers(p)
	return nil
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = normalizePath(p)

	a.mu.RLock()
	file, exists := a.files[p]
	a.mu.RUnlock()

	if !exists {
		return nil, docview.WrapPathErr("read", p, docview.ErrNotExist)
	}

	// content is never mutated after Write, so readers can share it
	return io.NopCloser(bytes.NewReader(file.content)), nil
}

// ReadAll implements docview.FileReader
func (a *Adapter) ReadAll(ctx context.Context, p string) ([]byte, error) {
	rc, err := a.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete implements docview.FileWriter
func (a *Adapter) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = normalizePath(p)

	a.mu.Lock()
	file, exists := a.files[p]
	if !exists {
		a.mu.Unlock()
		return docview.WrapPathErr("delete", p, docview.ErrNotExist)
	}
	a.size -= int64(len(file.content))
	delete(a.files, p)
	a.mu.Unlock()

	a.notifyWatchers(p)
	return nil
}

// Stat implements docview.FileReader
func (a *Adapter) Stat(ctx context.Context, p string) (*docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if file, exists := a.files[p]; exists {
		info := fileInfo(p, file)
		return &info, nil
	}
	if modTime, exists := a.dirs[p]; exists {
		info := dirInfo(p, modTime)
		return &info, nil
	}

	return nil, docview.WrapPathErr("stat", p, docview.ErrNotExist)
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, p string, recursive bool) ([]docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = normalizePath(p)

	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, exists := a.dirs[p]; !exists {
		if _, isFile := a.files[p]; isFile {
			return nil, docview.WrapPathErr("listcontents", p, docview.ErrNotDir)
		}
		return nil, docview.WrapPathErr("listcontents", p, docview.ErrNotExist)
	}

	var entries []docview.FileInfo
	for filePath, file := range a.files {
		if isListed(p, filePath, recursive) {
			entries = append(entries, fileInfo(filePath, file))
		}
	}
	for dirPath, modTime := range a.dirs {
		if dirPath != p && isListed(p, dirPath, recursive) {
			entries = append(entries, dirInfo(dirPath, modTime))
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

// isListed reports whether entry lies under dir, directly unless recursive
func isListed(dir, entry string, recursive bool) bool {
	rel := entry
	if dir != "" {
		if !strings.HasPrefix(entry, dir+"/") {
			return false
		}
		rel = strings.TrimPrefix(entry, dir+"/")
	}
	if rel == "" {
		return false
	}
	return recursive || !strings.Contains(rel, "/")
}

// Clear removes all documents
func (a *Adapter) Clear() {
	a.mu.Lock()
	a.files = make(map[string]*memoryFile)
	a.dirs = map[string]time.Time{"": time.Now()}
	a.size = 0
	a.mu.Unlock()
}

// Size returns the current total size of all stored documents
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// FileCount returns the number of stored documents
func (a *Adapter) FileCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// Watch implements docview.CanWatch. filter is a glob over store paths in
// which * stays within a directory and ** crosses them, e.g. "**.pdf" or
// "reports/*".
func (a *Adapter) Watch(ctx context.Context, filter string) (docview.ChangeToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g, err := glob.Compile(strings.TrimPrefix(filter, "/"), '/')
	if err != nil {
		return nil, docview.WrapPathErr("watch", filter, err)
	}

	token := docview.NewCallbackChangeToken()

	a.watchMu.Lock()
	a.watches = append(a.watches, &watchEntry{filter: g, token: token})
	a.watchMu.Unlock()

	fired := make(chan struct{})
	token.RegisterChangeCallback(func() { close(fired) })
	go func() {
		select {
		case <-ctx.Done():
			a.removeWatch(token)
		case <-fired:
		}
	}()

	return token, nil
}

// notifyWatchers signals and drops every watch whose filter matches p.
// Tokens are single-use, so a fired watch has nothing left to report.
func (a *Adapter) notifyWatchers(p string) {
	a.watchMu.Lock()
	var fired []*docview.CallbackChangeToken
	kept := a.watches[:0]
	for _, entry := range a.watches {
		if entry.filter.Match(p) {
			fired = append(fired, entry.token)
			continue
		}
		kept = append(kept, entry)
	}
	a.watches = kept
	a.watchMu.Unlock()

	for _, token := range fired {
		go token.SignalChange()
	}
}

func (a *Adapter) removeWatch(token *docview.CallbackChangeToken) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	for i, entry := range a.watches {
		if entry.token == token {
			a.watches = append(a.watches[:i], a.watches[i+1:]...)
			return
		}
	}
}

// ensureParentDirs records every parent directory of p.
// Must be called with lock held.
func (a *Adapter) ensureParentDirs(p string) {
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, exists := a.dirs[dir]; !exists {
			a.dirs[dir] = time.Now()
		}
	}
}

func fileInfo(p string, file *memoryFile) docview.FileInfo {
	return docview.FileInfo{
		Name:        path.Base(p),
		Path:        p,
		Size:        int64(len(file.content)),
		ModTime:     file.modTime,
		ContentType: file.contentType,
		Metadata:    file.metadata,
	}
}

func dirInfo(p string, modTime time.Time) docview.FileInfo {
	name := path.Base(p)
	if p == "" {
		name = "/"
	}
	return docview.FileInfo{
		Name:    name,
		Path:    p,
		ModTime: modTime,
		IsDir:   true,
	}
}

// normalizePath cleans p and strips the leading slash; the root is ""
func normalizePath(p string) string {
	p = strings.TrimPrefix(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

// isValidPath rejects directory traversal
func isValidPath(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

var (
	_ docview.FileSystem = (*Adapter)(nil)
	_ docview.CanWatch   = (*Adapter)(nil)
)
