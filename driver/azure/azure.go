package azure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/gobeaver/docview"
)

// DefaultPollInterval is how often Watch lists the container
const DefaultPollInterval = 30 * time.Second

const directoryContentType = "application/x-directory"

// Adapter serves documents from an Azure Blob Storage container, optionally
// below a blob name prefix. It is read-only.
type Adapter struct {
	client        *azblob.Client
	containerName string
	prefix        string
	pollInterval  time.Duration
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix restricts the store to blobs below prefix
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		prefix = strings.TrimPrefix(prefix, "/")
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
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

// New creates a store over containerName
func New(client *azblob.Client, containerName string, options ...AdapterOption) *Adapter {
	a := &Adapter{
		client:        client,
		containerName: containerName,
		pollInterval:  DefaultPollInterval,
	}
	for _, option := range options {
		option(a)
	}
	return a
}

func (a *Adapter) blobName(filePath string) string {
	return a.prefix + strings.TrimPrefix(path.Clean("/"+filePath), "/")
}

func (a *Adapter) relPath(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, a.prefix), "/")
}

func (a *Adapter) dirPrefix(dir string) string {
	if rel := a.relPath(a.blobName(dir)); rel != "" {
		return a.prefix + rel + "/"
	}
	return a.prefix
}

func (a *Adapter) container() *container.Client {
	return a.client.ServiceClient().NewContainerClient(a.containerName)
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.DownloadStream(ctx, a.containerName, a.blobName(filePath), nil)
	if err != nil {
		return nil, mapAzureError("read", filePath, err)
	}
	return resp.Body, nil
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

// Stat implements docview.FileReader. ContentType is the blob's
// Content-Type property.
func (a *Adapter) Stat(ctx context.Context, filePath string) (*docview.FileInfo, error) {
	rel := a.relPath(a.blobName(filePath))
	if rel == "" {
		return &docview.FileInfo{Name: "/", IsDir: true}, nil
	}

	cc := a.container()
	props, err := cc.NewBlobClient(a.blobName(filePath)).GetProperties(ctx, nil)
	if err == nil && deref(props.ContentType) != directoryContentType {
		metadata := make(map[string]string, len(props.Metadata))
		for k, v := range props.Metadata {
			if v != nil {
				metadata[k] = *v
			}
		}
		return &docview.FileInfo{
			Name:        path.Base(rel),
			Path:        rel,
			Size:        deref(props.ContentLength),
			ModTime:     deref(props.LastModified),
			ContentType: deref(props.ContentType),
			Metadata:    metadata,
		}, nil
	}
	if err != nil {
		if mapped := mapAzureError("stat", filePath, err); !docview.IsNotExist(mapped) {
			return nil, mapped
		}
	}

	// a virtual directory exists when any blob lives below it
	prefix := a.dirPrefix(filePath)
	maxResults := int32(1)
	pager := cc.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix:     &prefix,
		MaxResults: &maxResults,
	})
	if pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapAzureError("stat", filePath, err)
		}
		if len(resp.Segment.BlobItems) > 0 {
			return &docview.FileInfo{Name: path.Base(rel), Path: rel, IsDir: true}, nil
		}
	}
	return nil, docview.WrapPathErr("stat", filePath, docview.ErrNotExist)
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, dir string, recursive bool) ([]docview.FileInfo, error) {
	listPrefix := a.dirPrefix(dir)

	var entries []docview.FileInfo
	dirs := make(map[string]bool)
	addDir := func(rel string) {
		if rel != "" && !dirs[rel] {
			dirs[rel] = true
			entries = append(entries, docview.FileInfo{Name: path.Base(rel), Path: rel, IsDir: true})
		}
	}
	addBlob := func(item *container.BlobItem) {
		if item == nil || item.Name == nil || *item.Name == listPrefix {
			return
		}
		rel := a.relPath(*item.Name)

		if recursive {
			base := a.relPath(listPrefix)
			for d := path.Dir(rel); d != "." && d != base; d = path.Dir(d) {
				addDir(d)
			}
		}

		info := docview.FileInfo{Name: path.Base(rel), Path: rel}
		if p := item.Properties; p != nil {
			info.Size = deref(p.ContentLength)
			info.ModTime = deref(p.LastModified)
			info.ContentType = deref(p.ContentType)
		}
		if strings.HasSuffix(*item.Name, "/") || info.ContentType == directoryContentType {
			addDir(rel)
			return
		}
		entries = append(entries, info)
	}

	cc := a.container()
	if recursive {
		pager := cc.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{Prefix: &listPrefix})
		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				return nil, mapAzureError("listcontents", dir, err)
			}
			for _, item := range resp.Segment.BlobItems {
				addBlob(item)
			}
		}
	} else {
		pager := cc.NewListBlobsHierarchyPager("/", &container.ListBlobsHierarchyOptions{Prefix: &listPrefix})
		for pager.More() {
			resp, err := pager.NextPage(ctx)
			if err != nil {
				return nil, mapAzureError("listcontents", dir, err)
			}
			for _, p := range resp.Segment.BlobPrefixes {
				if p.Name != nil {
					addDir(a.relPath(*p.Name))
				}
			}
			for _, item := range resp.Segment.BlobItems {
				addBlob(item)
			}
		}
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

// Watch implements docview.CanWatch by listing the container every poll
// interval. Cancel ctx to stop polling.
func (a *Adapter) Watch(ctx context.Context, filter string) (docview.ChangeToken, error) {
	return docview.WatchByListing(ctx, a, filter, a.pollInterval)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// mapAzureError maps Azure errors to docview errors
func mapAzureError(op, filePath string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotExist, err))
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotExist, err))
		case http.StatusForbidden:
			return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotAllowed, err))
		}
	}

	return docview.WrapPathErr(op, filePath, err)
}

var (
	_ docview.FileReader = (*Adapter)(nil)
	_ docview.CanWatch   = (*Adapter)(nil)
)
