package s3

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gobwas/glob"

	"github.com/gobeaver/docview"
)

// API is the subset of the S3 client the store uses. *s3.Client
// satisfies it.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// DefaultPollInterval is how often Watch lists the bucket
const DefaultPollInterval = 30 * time.Second

// Adapter serves documents from an S3 bucket, optionally below a key
// prefix. It is read-only. Directories are key prefixes ending in "/".
type Adapter struct {
	client       API
	bucket       string
	prefix       string
	pollInterval time.Duration
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix restricts the store to keys below prefix
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

// New creates a store over bucket
func New(client API, bucket string, options ...AdapterOption) *Adapter {
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

func (a *Adapter) key(filePath string) string {
	return a.prefix + strings.TrimPrefix(path.Clean("/"+filePath), "/")
}

// relPath turns a full object key back into a store path
func (a *Adapter) relPath(key string) string {
	return strings.TrimSuffix(strings.TrimPrefix(key, a.prefix), "/")
}

// Read implements docview.FileReader
func (a *Adapter) Read(ctx context.Context, filePath string) (io.ReadCloser, error) {
	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err != nil {
		return nil, mapS3Error("read", filePath, err)
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

// Stat implements docview.FileReader. ContentType is the object's
// Content-Type as stored in the bucket.
func (a *Adapter) Stat(ctx context.Context, filePath string) (*docview.FileInfo, error) {
	rel := a.relPath(a.key(filePath))
	if rel == "" {
		return &docview.FileInfo{Name: "/", IsDir: true}, nil
	}

	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(filePath)),
	})
	if err == nil {
		metadata := make(map[string]string, len(resp.Metadata))
		for k, v := range resp.Metadata {
			metadata[k] = v
		}
		return &docview.FileInfo{
			Name:        path.Base(rel),
			Path:        rel,
			Size:        aws.ToInt64(resp.ContentLength),
			ModTime:     aws.ToTime(resp.LastModified),
			ContentType: aws.ToString(resp.ContentType),
			Metadata:    metadata,
		}, nil
	}

	mapped := mapS3Error("stat", filePath, err)
	if !docview.IsNotExist(mapped) {
		return nil, mapped
	}

	// no object, but keys below it make it a directory
	list, lerr := a.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(a.bucket),
		Prefix:  aws.String(a.key(filePath) + "/"),
		MaxKeys: aws.Int32(1),
	})
	if lerr != nil {
		return nil, mapS3Error("stat", filePath, lerr)
	}
	if len(list.Contents) == 0 {
		return nil, mapped
	}
	return &docview.FileInfo{Name: path.Base(rel), Path: rel, IsDir: true}, nil
}

// ListContents implements docview.FileReader. Entries are sorted by path.
func (a *Adapter) ListContents(ctx context.Context, dir string, recursive bool) ([]docview.FileInfo, error) {
	listPrefix := a.prefix
	if rel := a.relPath(a.key(dir)); rel != "" {
		listPrefix += rel + "/"
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(listPrefix),
	}
	if !recursive {
		input.Delimiter = aws.String("/")
	}

	var entries []docview.FileInfo
	dirs := make(map[string]bool)
	addDir := func(rel string) {
		if rel != "" && !dirs[rel] {
			dirs[rel] = true
			entries = append(entries, docview.FileInfo{Name: path.Base(rel), Path: rel, IsDir: true})
		}
	}

	paginator := s3.NewListObjectsV2Paginator(a.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapS3Error("listcontents", dir, err)
		}

		for _, p := range page.CommonPrefixes {
			addDir(a.relPath(aws.ToString(p.Prefix)))
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == listPrefix {
				continue
			}
			rel := a.relPath(key)

			if recursive {
				// intermediate prefixes have no object of their own
				base := a.relPath(listPrefix)
				for d := path.Dir(rel); d != "." && d != base; d = path.Dir(d) {
					addDir(d)
				}
			}

			if strings.HasSuffix(key, "/") {
				addDir(rel)
				continue
			}

			entries = append(entries, docview.FileInfo{
				Name:    path.Base(rel),
				Path:    rel,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	if len(entries) == 0 && listPrefix != a.prefix {
		// S3 has no empty directories; an empty listing means the path is
		// missing or names an object
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

// Watch implements docview.CanWatch by polling the bucket every poll
// interval. filter is a glob over store paths in which * stays within a
// directory and ** crosses them. Cancel ctx to stop polling.
func (a *Adapter) Watch(ctx context.Context, filter string) (docview.ChangeToken, error) {
	pattern, err := glob.Compile(strings.TrimPrefix(filter, "/"), '/')
	if err != nil {
		return nil, docview.WrapPathErr("watch", filter, err)
	}

	initial, err := a.snapshot(ctx, pattern)
	if err != nil {
		return nil, docview.WrapPathErr("watch", filter, err)
	}

	return docview.NewPollingChangeToken(ctx, docview.PollingConfig{
		Interval: a.pollInterval,
		CheckFunc: func() bool {
			current, err := a.snapshot(ctx, pattern)
			if err != nil {
				// unknown, try again next tick
				return false
			}
			return !statesEqual(initial, current)
		},
	}), nil
}

// objectState is what Watch compares between polls
type objectState struct {
	modTime time.Time
	size    int64
	etag    string
}

func (a *Adapter) snapshot(ctx context.Context, pattern glob.Glob) (map[string]objectState, error) {
	state := make(map[string]objectState)

	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			rel := a.relPath(aws.ToString(obj.Key))
			if rel == "" || !pattern.Match(rel) {
				continue
			}
			state[rel] = objectState{
				modTime: aws.ToTime(obj.LastModified),
				size:    aws.ToInt64(obj.Size),
				etag:    aws.ToString(obj.ETag),
			}
		}
	}

	return state, nil
}

func statesEqual(a, b map[string]objectState) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || !v.modTime.Equal(bv.modTime) || v.size != bv.size || v.etag != bv.etag {
			return false
		}
	}
	return true
}

// mapS3Error maps S3 errors to docview errors
func mapS3Error(op, filePath string, err error) error {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket

	switch {
	case errors.As(err, &nsk), errors.As(err, &notFound):
		return docview.WrapPathErr(op, filePath, docview.ErrNotExist)
	case errors.As(err, &noBucket):
		return docview.WrapPathErr(op, filePath, errors.Join(docview.ErrNotExist, err))
	default:
		return docview.WrapPathErr(op, filePath, err)
	}
}

var (
	_ docview.FileReader = (*Adapter)(nil)
	_ docview.CanWatch   = (*Adapter)(nil)
	_ API                = (*s3.Client)(nil)
)
