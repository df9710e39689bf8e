package local

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/filetype"
)

// Adapter serves documents from a directory tree on the local disk.
// It is read-only; paths are slash-separated and relative to the root.
type Adapter struct {
	root string
}

// New creates a store rooted at root, creating the directory if needed
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, err
	}

	return &Adapter{root: absRoot}, nil
}

// Root returns the absolute root directory
func (a *Adapter) Root() string {
	return a.root
}

// resolve maps a store path to a path on disk, rejecting escapes from root
func (a *Adapter) resolve(op, p string) (string, error) {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if part == ".." {
			return "", docview.WrapPathErr(op, p, docview.ErrNotAllowed)
		}
	}

	full := filepath.Join(a.root, filepath.FromSlash(p))
	if !isPathUnderRoot(a.root, full) {
		return "", docview.WrapPathErr(op, p, docview.ErrNotAllowed)
	}
	return full, nil
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := a.resolve("read", p)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, wrapOSErr("read", p, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapOSErr("read", p, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, docview.WrapPathErr("read", p, docview.ErrIsDir)
	}

	return f, nil
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

// Stat implements docview.FileReader. ContentType is derived from the
// extension; disks declare nothing.
func (a *Adapter) Stat(ctx context.Context, p string) (*docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := a.resolve("stat", p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, wrapOSErr("stat", p, err)
	}

	fi := a.fileInfo(full, info)
	return &fi, nil
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, p string, recursive bool) ([]docview.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := a.resolve("listcontents", p)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, wrapOSErr("listcontents", p, err)
	}
	if !info.IsDir() {
		return nil, docview.WrapPathErr("listcontents", p, docview.ErrNotDir)
	}

	var entries []docview.FileInfo

	if recursive {
		err = filepath.WalkDir(full, func(walkPath string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if walkPath == full {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			info, err := d.Info()
			if err != nil {
				// removed while walking
				return nil
			}
			entries = append(entries, a.fileInfo(walkPath, info))
			return nil
		})
	} else {
		var dirEntries []fs.DirEntry
		dirEntries, err = os.ReadDir(full)
		for _, d := range dirEntries {
			info, ierr := d.Info()
			if ierr != nil {
				continue
			}
			entries = append(entries, a.fileInfo(filepath.Join(full, d.Name()), info))
		}
	}
	if err != nil {
		return nil, wrapOSErr("listcontents", p, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

func (a *Adapter) fileInfo(full string, info os.FileInfo) docview.FileInfo {
	rel, err := filepath.Rel(a.root, full)
	if err != nil || rel == "." {
		rel = ""
	}
	rel = filepath.ToSlash(rel)

	fi := docview.FileInfo{
		Name:    info.Name(),
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		IsDir:   info.IsDir(),
	}
	if !fi.IsDir {
		fi.ContentType = filetype.MIMETypeForShortName(filetype.Extension(fi.Name))
	} else {
		fi.Size = 0
	}
	return fi
}

// isPathUnderRoot checks if a path is under a given root directory
func isPathUnderRoot(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func wrapOSErr(op, p string, err error) error {
	switch {
	case os.IsNotExist(err):
		return docview.WrapPathErr(op, p, docview.ErrNotExist)
	case os.IsPermission(err):
		return docview.WrapPathErr(op, p, docview.ErrNotAllowed)
	default:
		return docview.WrapPathErr(op, p, err)
	}
}

var (
	_ docview.FileReader = (*Adapter)(nil)
	_ docview.CanWatch   = (*Adapter)(nil)
)
