package docview

import (
	"context"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/gobeaver/docview/filetype"
)

// Source tells where a document came from
type Source string

// Document sources
const (
	SourceStore  Source = "store"
	SourceURL    Source = "url"
	SourceUpload Source = "upload"
	SourceBytes  Source = "bytes"
)

// Document is an opened document ready to hand to a viewer plugin
type Document struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Path        string            `json:"path,omitempty"`
	Source      Source            `json:"source"`
	Size        int64             `json:"size"`
	ModTime     time.Time         `json:"modTime,omitzero"`
	Type        filetype.FileType `json:"type"`
	Plugin      Plugin            `json:"plugin,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	PageCount   int               `json:"pageCount,omitempty"`
	// Sniffed is a best-effort MIME guess, set only when classification fails.
	Sniffed string `json:"sniffed,omitempty"`
	Data    []byte `json:"-"`
}

// Option configures a Viewer
type Option func(*Viewer)

// WithClassifier sets the classifier. The default has all heuristics off.
func WithClassifier(c *filetype.Classifier) Option {
	return func(v *Viewer) {
		if c != nil {
			v.classifier = c
		}
	}
}

// WithDownloader sets the downloader used by OpenURL
func WithDownloader(d *Downloader) Option {
	return func(v *Viewer) {
		if d != nil {
			v.downloader = d
		}
	}
}

// WithLogger sets the viewer's logger
func WithLogger(logger *slog.Logger) Option {
	return func(v *Viewer) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithDisabledPlugins turns plugins off
func WithDisabledPlugins(plugins ...Plugin) Option {
	return func(v *Viewer) {
		v.disabled = append([]Plugin(nil), plugins...)
	}
}

// WithMaxSize limits the size of documents read from a store or an upload.
// Zero means no limit.
func WithMaxSize(n int64) Option {
	return func(v *Viewer) {
		v.maxSize = n
	}
}

// WithIdentification selects IdentifyByContent or IdentifyByExtension
func WithIdentification(mode string) Option {
	return func(v *Viewer) {
		v.identification = mode
	}
}

// Viewer opens documents and decides how to show them. Its configuration
// is fixed at construction and all methods except Close are safe for
// concurrent use.
type Viewer struct {
	store          FileReader
	classifier     *filetype.Classifier
	downloader     *Downloader
	logger         *slog.Logger
	disabled       []Plugin
	maxSize        int64
	identification string
	closers        []func()
}

// NewViewer creates a Viewer over store. store may be nil when documents
// only arrive as uploads, URLs or buffers.
func NewViewer(store FileReader, opts ...Option) *Viewer {
	v := &Viewer{
		store:          store,
		classifier:     filetype.New(),
		logger:         discardLogger(),
		identification: IdentifyByContent,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.downloader == nil {
		v.downloader = NewDownloader(nil, DefaultDownloadTimeout, v.maxSize)
	}
	v.logger = v.logger.With("component", "viewer")
	return v
}

// Close stops background watchers started for the viewer
func (v *Viewer) Close() {
	for _, c := range v.closers {
		c()
	}
	v.closers = nil
}

// Store returns the document store, nil if none
func (v *Viewer) Store() FileReader {
	return v.store
}

// DisabledPlugins returns the disabled plugins
func (v *Viewer) DisabledPlugins() []Plugin {
	return append([]Plugin(nil), v.disabled...)
}

// Open reads and classifies the document at path in the store, using the
// content type the store declares for it.
//
// When the document is read but cannot be shown, Open returns the Document
// together with the classification or dispatch error, so that callers can
// pick a message with MessageFor.
func (v *Viewer) Open(ctx context.Context, path string) (*Document, error) {
	if path == "" {
		return nil, ErrNoFile
	}
	if v.store == nil {
		return nil, WrapPathErr("open", path, ErrNotSupported)
	}

	info, err := v.store.Stat(ctx, path)
	if err != nil {
		return nil, err
	}
	if info.IsDir {
		return nil, WrapPathErr("open", path, ErrIsDir)
	}
	if v.maxSize > 0 && info.Size > v.maxSize {
		return nil, WrapPathErr("open", path, ErrTooLarge)
	}

	rc, err := v.store.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readLimited(rc, v.maxSize)
	if err != nil {
		return nil, WrapPathErr("open", path, err)
	}

	doc, err := v.open(data, info.Name, info.ContentType, SourceStore)
	if doc != nil {
		doc.Path = path
		doc.ModTime = info.ModTime
	}
	return doc, err
}

// OpenURL downloads and classifies a remote document, using the response
// Content-Type as the declared MIME type.
func (v *Viewer) OpenURL(ctx context.Context, rawURL string) (*Document, error) {
	if rawURL == "" {
		return nil, ErrNoFile
	}

	dl, err := v.downloader.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := v.open(dl.Data, dl.Name, dl.MIMEType, SourceURL)
	if doc != nil {
		doc.Path = rawURL
	}
	return doc, err
}

// OpenBytes classifies a buffer the caller already holds, such as a file
// chosen in a file picker.
func (v *Viewer) OpenBytes(data []byte, name, mimeType string) (*Document, error) {
	if v.maxSize > 0 && int64(len(data)) > v.maxSize {
		return nil, WrapPathErr("open", name, ErrTooLarge)
	}
	return v.open(data, name, mimeType, SourceBytes)
}

// List returns the viewable documents under dir accepted by selector.
func (v *Viewer) List(ctx context.Context, dir string, selector FileSelector, recursive bool) ([]FileInfo, error) {
	if v.store == nil {
		return nil, WrapPathErr("list", dir, ErrNotSupported)
	}

	sel := Viewable()
	if selector != nil {
		sel = And(sel, selector)
	}
	return ListWithSelector(ctx, v.store, dir, sel, recursive)
}

// Classify runs the configured identification on a buffer
func (v *Viewer) Classify(data []byte, name, mimeType string) (filetype.FileType, error) {
	if v.identification == IdentifyByExtension {
		return filetype.IdentifyByExtension(name, mimeType)
	}
	return v.classifier.Classify(data, name, mimeType)
}

func (v *Viewer) open(data []byte, name, mimeType string, source Source) (*Document, error) {
	if name == "" && len(data) == 0 {
		return nil, ErrNoFile
	}

	doc := &Document{
		ID:          uuid.New().String(),
		Name:        name,
		Source:      source,
		Size:        int64(len(data)),
		Fingerprint: Fingerprint(data),
		Data:        data,
	}

	ft, err := v.Classify(data, name, mimeType)
	doc.Type = ft
	if err != nil {
		doc.Sniffed = mimetype.Detect(data).String()
		v.logger.Warn("document not identified",
			"name", name, "mime", mimeType, "source", source,
			"kind", filetype.GetErrorKind(err), "sniffed", doc.Sniffed)
		return doc, WrapPathErr("classify", name, err)
	}

	if ft.Ambiguous() {
		v.logger.Debug("container subtype is advisory",
			"name", name, "content", ft.ContentType, "simple", ft.SimpleType)
	}

	plugin, err := Dispatch(ft, v.disabled)
	if err != nil {
		v.logger.Info("document cannot be shown",
			"name", name, "simple", ft.SimpleType, "error", err)
		return doc, err
	}
	doc.Plugin = plugin

	if plugin == PluginPDF {
		if n, err := PageCount(data); err != nil {
			v.logger.Debug("pdf page count unavailable", "name", name, "error", err)
		} else {
			doc.PageCount = n
		}
	}

	v.logger.Debug("document opened",
		"id", doc.ID, "name", name, "source", source,
		"simple", ft.SimpleType, "plugin", plugin, "bytes", doc.Size)

	return doc, nil
}
