package zip

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/filetype"
)

// Adapter serves the documents packed in a ZIP archive, such as an exported
// case file. It is read-only; the archive is indexed once when opened.
type Adapter struct {
	closer  io.Closer
	entries map[string]*entry
	modTime time.Time
}

type entry struct {
	file  *zip.File // nil for directories implied by file names
	isDir bool
}

// Open opens the archive at zipPath
func Open(zipPath string) (*Adapter, error) {
	rc, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open zip: %w", err)
	}
	a := newAdapter(&rc.Reader)
	a.closer = rc
	return a, nil
}

// NewFromReader indexes an archive held in r, such as an uploaded bundle
func NewFromReader(r io.ReaderAt, size int64) (*Adapter, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read zip: %w", err)
	}
	return newAdapter(zr), nil
}

func newAdapter(zr *zip.Reader) *Adapter {
	a := &Adapter{entries: make(map[string]*entry)}

	for _, f := range zr.File {
		name, ok := normalizePath(f.Name)
		if !ok || name == "" {
			continue
		}

		isDir := f.FileInfo().IsDir()
		if isDir {
			a.entries[name] = &entry{isDir: true}
		} else {
			a.entries[name] = &entry{file: f}
		}
		a.ensureParentDirs(name)

		if f.Modified.After(a.modTime) {
			a.modTime = f.Modified
		}
	}

	return a
}

// Close releases the archive file
func (a *Adapter) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *Adapter) ensureParentDirs(name string) {
	for dir := path.Dir(name); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if _, ok := a.entries[dir]; ok {
			continue
		}
		a.entries[dir] = &entry{isDir: true}
	}
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := a.lookup("read", filePath)
	if err != nil {
		return nil, err
	}
	if e.isDir {
		return nil, docview.WrapPathErr("read", filePath, docview.ErrIsDir)
	}

	rc, err := e.file.Open()
	if err != nil {
		return nil, docview.WrapPathErr("read", filePath, err)
	}
	return rc, nil
}

// ReadAll implements docview.FileReader
func (a *Adapter) ReadAll(ctx context.Context, filePath string) ([]byte, error) {
	rc, err := a.Read(ctx, filePath)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Stat implements docview.FileReader. ContentType is derived from the
// extension.
func (a *Adapter) Stat(ctx context.Context, filePath string) (*docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, ok := normalizePath(filePath)
	if !ok {
		return nil, docview.WrapPathErr("stat", filePath, docview.ErrNotAllowed)
	}
	if name == "" {
		return &docview.FileInfo{Name: "/", IsDir: true, ModTime: a.modTime}, nil
	}

	e, err := a.lookup("stat", filePath)
	if err != nil {
		return nil, err
	}
	info := a.fileInfo(name, e)
	return &info, nil
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, dir string, recursive bool) ([]docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, ok := normalizePath(dir)
	if !ok {
		return nil, docview.WrapPathErr("listcontents", dir, docview.ErrNotAllowed)
	}
	if name != "" {
		e, err := a.lookup("listcontents", dir)
		if err != nil {
			return nil, err
		}
		if !e.isDir {
			return nil, docview.WrapPathErr("listcontents", dir, docview.ErrNotDir)
		}
	}

	prefix := ""
	if name != "" {
		prefix = name + "/"
	}

	var entries []docview.FileInfo
	for p, e := range a.entries {
		rest, found := strings.CutPrefix(p, prefix)
		if !found || rest == "" {
			continue
		}
		if !recursive && strings.Contains(rest, "/") {
			continue
		}
		entries = append(entries, a.fileInfo(p, e))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

func (a *Adapter) lookup(op, filePath string) (*entry, error) {
	name, ok := normalizePath(filePath)
	if !ok {
		return nil, docview.WrapPathErr(op, filePath, docview.ErrNotAllowed)
	}
	e, exists := a.entries[name]
	if !exists {
		return nil, docview.WrapPathErr(op, filePath, docview.ErrNotExist)
	}
	return e, nil
}

func (a *Adapter) fileInfo(name string, e *entry) docview.FileInfo {
	fi := docview.FileInfo{
		Name:  path.Base(name),
		Path:  name,
		IsDir: e.isDir,
	}
	if e.file != nil {
		fi.Size = int64(e.file.UncompressedSize64)
		fi.ModTime = e.file.Modified
		fi.ContentType = filetype.MIMETypeForShortName(filetype.Extension(fi.Name))
		if e.file.Comment != "" {
			fi.Metadata = map[string]string{"comment": e.file.Comment}
		}
	}
	return fi
}

// normalizePath cleans p to an archive name without leading slash. Names
// that climb out of the archive root are rejected.
func normalizePath(p string) (string, bool) {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, part := range strings.Split(p, "/") {
		if part == ".." {
			return "", false
		}
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return p, true
}

var _ docview.FileReader = (*Adapter)(nil)
