package gcs

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/gobeaver/docview"
)

// DefaultPollInterval is how often Watch lists the bucket
const DefaultPollInterval = 30 * time.Second

// directoryContentType marks placeholder objects created by consoles and
// tools for empty folders
const directoryContentType = "application/x-directory"

// Adapter serves documents from a Google Cloud Storage bucket, optionally
// below an object prefix. It is read-only.
type Adapter struct {
	client       *storage.Client
	bucket       string
	prefix       string
	pollInterval time.Duration
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix restricts the store to objects below prefix
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		a.prefix = normalizePrefix(prefix)
	}
}

// WithPollInterval sets how often Watch checks for changes
func WithPollInterval(d time.Duration) AdapterOption {
	return func(a *Adapter) {
		if d > 0 {
			a.pollInterval = d
		}
	}
}

// New creates a store over bucket
func New(client *storage.Client, bucket string, options ...AdapterOption) *Adapter {
	a := &Adapter{
		client:       client,
		bucket:       bucket,
		pollInterval: DefaultPollInterval,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func normalizePrefix(prefix string) string {
	prefix = strings.TrimPrefix(prefix, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

func (a *Adapter) key(filePath string) string {
	return a.prefix + strings.TrimPrefix(path.Clean("/"+filePath), "/")
}

// relPath turns a full object name back into a store path
func (a *Adapter) relPath(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, a.prefix), "/")
}

// dirPrefix is the object prefix that lists the contents of dir
func (a *Adapter) dirPrefix(dir string) string {
	if rel := a.relPath(a.key(dir)); rel != "" {
		return a.prefix + rel + "/"
	}
	return a.prefix
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(a.bucket).Object(a.key(filePath)).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError("read", filePath, err)
	}
	return r, nil
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

// Stat implements docview.FileReader. ContentType is the object's
// Content-Type as stored in the bucket.
func (a *Adapter) Stat(ctx context.Context, filePath string) (*docview.FileInfo, error) {
	rel := a.relPath(a.key(filePath))
	if rel == "" {
		return &docview.FileInfo{Name: "/", IsDir: true}, nil
	}

	bkt := a.client.Bucket(a.bucket)
	attrs, err := bkt.Object(a.key(filePath)).Attrs(ctx)
	if err == nil && attrs.ContentType != directoryContentType {
		return objectInfo(rel, attrs), nil
	}
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return nil, mapGCSError("stat", filePath, err)
	}

	// a folder exists when any object lives below it
	it := bkt.Objects(ctx, &storage.Query{Prefix: a.dirPrefix(filePath)})
	if _, err := it.Next(); err != nil {
		if errors.Is(err, iterator.Done) {
			return nil, docview.WrapPathErr("stat", filePath, docview.ErrNotExist)
		}
		return nil, mapGCSError("stat", filePath, err)
	}
	return &docview.FileInfo{Name: path.Base(rel), Path: rel, IsDir: true}, nil
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, dir string, recursive bool) ([]docview.FileInfo, error) {
	listPrefix := a.dirPrefix(dir)

	query := &storage.Query{Prefix: listPrefix}
	if !recursive {
		query.Delimiter = "/"
	}
	if err := query.SetAttrSelection([]string{"Name", "Size", "Updated", "ContentType", "Metadata"}); err != nil {
		return nil, docview.WrapPathErr("listcontents", dir, err)
	}

	var entries []docview.FileInfo
	dirs := make(map[string]bool)
	addDir := func(rel string) {
		if rel != "" && !dirs[rel] {
			dirs[rel] = true
			entries = append(entries, docview.FileInfo{Name: path.Base(rel), Path: rel, IsDir: true})
		}
	}

	it := a.client.Bucket(a.bucket).Objects(ctx, query)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, mapGCSError("listcontents", dir, err)
		}

		// synthetic prefix entry, only with a delimiter
		if attrs.Prefix != "" {
			addDir(a.relPath(attrs.Prefix))
			continue
		}
		if attrs.Name == listPrefix {
			continue
		}

		rel := a.relPath(attrs.Name)
		if recursive {
			base := a.relPath(listPrefix)
			for d := path.Dir(rel); d != "." && d != base; d = path.Dir(d) {
				addDir(d)
			}
		}

		if strings.HasSuffix(attrs.Name, "/") || attrs.ContentType == directoryContentType {
			addDir(rel)
			continue
		}
		entries = append(entries, *objectInfo(rel, attrs))
	}

	if len(entries) == 0 && listPrefix != a.prefix {
		if _, err := a.Stat(ctx, dir); err != nil {
			return nil, docview.WrapPathErr("listcontents", dir, docview.ErrNotExist)
		}
		return nil, docview.WrapPathErr("listcontents", dir, docview.ErrNotDir)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	return entries, nil
}

// Watch implements docview.CanWatch by listing the bucket every poll
// interval. Cancel ctx to stop polling.
func (a *Adapter) Watch(ctx context.Context, filter string) (docview.ChangeToken, error) {
	return docview.WatchByListing(ctx, a, filter, a.pollInterval)
}

func objectInfo(rel string, attrs *storage.ObjectAttrs) *docview.FileInfo {
	return &docview.FileInfo{
		Name:        path.Base(rel),
		Path:        rel,
		Size:        attrs.Size,
		ModTime:     attrs.Updated,
		ContentType: attrs.ContentType,
		Metadata:    attrs.Metadata,
	}
}

// mapGCSError maps GCS errors to docview errors
func mapGCSError(op, filePath string, err error) error {
	switch {
	case errors.Is(err, storage.ErrObjectNotExist):
		return docview.WrapPathErr(op, filePath, docview.ErrNotExist)
	case errors.Is(err, storage.ErrBucketNotExist):
		return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotExist, err))
	default:
		return docview.WrapPathErr(op, filePath, err)
	}
}

var (
	_ docview.FileReader = (*Adapter)(nil)
	_ docview.CanWatch   = (*Adapter)(nil)
)
