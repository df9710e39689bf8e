package filetype

import (
	"log/slog"
)

// Simple types reported in FileType.SimpleType
const (
	TypePDF   = "pdf"
	TypeXLSX  = "xlsx"
	TypeXLS   = "xls"
	TypeDOCX  = "docx"
	TypeDOC   = "doc"
	TypePPTX  = "pptx"
	TypePPT   = "ppt"
	TypeImage = "image"
	TypeEbook = "ebook"
)

// ebookShortNames are the e-book formats recognized by name alone; they have
// no magic number reliable enough to sniff.
var ebookShortNames = map[string]bool{
	"fb2":  true,
	"fb3":  true,
	"fbz":  true,
	"mobi": true,
}

var (
	ooxmlTypes = map[string]bool{TypeXLSX: true, TypeDOCX: true, TypePPTX: true}
	oleTypes   = map[string]bool{TypeDOC: true, TypeXLS: true, TypePPT: true}
)

// FileType describes a classified file. It is a value: classification
// builds a fresh one for every call and never modifies it afterwards.
type FileType struct {
	// MIMEType is the MIME type declared by the caller, unverified.
	MIMEType string `json:"mimeType"`

	// Extension is the lower-cased file name suffix, "" if none.
	Extension string `json:"extension"`

	// ContentType is the raw signature family before disambiguation.
	ContentType string `json:"contentType"`

	// SimpleType is the resolved category used to pick a viewer.
	SimpleType string `json:"simpleType"`

	// IsZip is true iff the buffer starts with PK\x03\x04.
	IsZip bool `json:"isZip"`

	// kept for the ambiguous-container diagnostic returned by Err
	fileName string
	header   string
}

// Ambiguous reports whether the buffer is an OLE or ZIP container whose
// subtype was not confirmed. SimpleType then holds the raw extension and is
// advisory only.
func (t FileType) Ambiguous() bool {
	switch t.ContentType {
	case ContentFile2007:
		return !ooxmlTypes[t.SimpleType]
	case ContentFile2003:
		return !oleTypes[t.SimpleType]
	}
	return false
}

// Err returns a KindAmbiguousLegacy error for an ambiguous descriptor and
// nil otherwise.
func (t FileType) Err() error {
	if !t.Ambiguous() {
		return nil
	}
	return &ClassificationError{
		Kind:     KindAmbiguousLegacy,
		MIMEType: t.MIMEType,
		FileName: t.fileName,
		Header:   []byte(t.header),
	}
}

// Identified reports whether classification produced a usable result.
func (t FileType) Identified() bool {
	return t.SimpleType != "" || t.ContentType != ""
}

// ServeMIMEType returns the MIME type to use when handing the bytes back to
// a client: the canonical type of the resolved category, then of the raw
// family, then the declared type, then text/plain.
func (t FileType) ServeMIMEType() string {
	if m := MIMETypeForShortName(t.SimpleType); m != "" {
		return m
	}
	if m := MIMETypeForShortName(t.ContentType); m != "" {
		return m
	}
	if m := NormalizeMIME(t.MIMEType); m != "" {
		return m
	}
	return MIMETypeForShortName("default")
}

// Option configures a Classifier
type Option func(*Classifier)

// WithTrailerHeuristics enables the legacy trailer scans for containers
// whose extension did not resolve the subtype.
func WithTrailerHeuristics() Option {
	return func(c *Classifier) {
		c.trailerHeuristics = true
	}
}

// WithContainerInspection enables reading the ZIP or OLE directory for
// containers whose extension did not resolve the subtype.
func WithContainerInspection() Option {
	return func(c *Classifier) {
		c.inspectContainers = true
	}
}

// WithLogger sets the logger used for diagnostics of ambiguous and failed
// classifications.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Classifier identifies file types from content, name and declared MIME
// type. A Classifier holds only its configuration and is safe for
// concurrent use.
type Classifier struct {
	trailerHeuristics bool
	inspectContainers bool
	logger            *slog.Logger
}

// New creates a Classifier. Without options it trusts the extension to
// resolve container subtypes and never scans beyond the fixed windows.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultClassifier = New()

// Classify identifies data using the default Classifier.
func Classify(data []byte, fileName, mimeType string) (FileType, error) {
	return defaultClassifier.Classify(data, fileName, mimeType)
}

// IdentifyByExtension resolves the type from the file name and declared
// MIME type only, without looking at content.
func IdentifyByExtension(fileName, mimeType string) (FileType, error) {
	ft := FileType{
		MIMEType:  mimeType,
		Extension: Extension(fileName),
	}

	if short := ebookShortName(ShortNameForMIME(mimeType), ft.Extension); short != "" {
		ft.ContentType = short
		ft.SimpleType = TypeEbook
		return ft, nil
	}

	ft.SimpleType = SimpleTypeForExtension(ft.Extension)
	if ft.SimpleType == "" {
		return ft, newClassificationError(KindUnidentified, nil, fileName, mimeType)
	}
	return ft, nil
}

// Classify identifies data. The returned FileType always carries the
// declared MIME type, the extension and the zip flag; on error its
// ContentType and SimpleType are empty.
func (c *Classifier) Classify(data []byte, fileName, mimeType string) (FileType, error) {
	ft := FileType{
		MIMEType:  mimeType,
		Extension: Extension(fileName),
		IsZip:     isZip(data),
	}
	mimeShort := ShortNameForMIME(mimeType)

	if short := ebookShortName(mimeShort, ft.Extension); short != "" {
		ft.ContentType = short
		ft.SimpleType = TypeEbook
		return ft, nil
	}

	ft.ContentType = detectByMagic(data)
	if ft.ContentType == ContentFile2007 || ft.ContentType == ContentFile2003 {
		ft.fileName = fileName
		ft.header = string(sample(data, 0, SampleSize))
	}

	switch {
	case ft.ContentType == ContentFile2007:
		if mimeShort == ContentEPUB {
			ft.ContentType = ContentEPUB
			ft.SimpleType = TypeEbook
			break
		}
		ft.SimpleType = c.resolveContainer(data, &ft, ooxmlTypes)

	case ft.ContentType == ContentFile2003:
		ft.SimpleType = c.resolveContainer(data, &ft, oleTypes)

	case ft.ContentType == ContentPDF:
		ft.SimpleType = TypePDF

	case isImageContent(ft.ContentType):
		ft.SimpleType = TypeImage

	case ft.ContentType == "" && isExcelHTML(data):
		ft.SimpleType = TypeXLS

	case ft.ContentType == "":
		kind := KindUnidentified
		if len(data) < SampleSize {
			kind = KindMalformed
		}
		err := newClassificationError(kind, data, fileName, mimeType)
		c.logger.Debug("file type not identified",
			"kind", kind, "name", fileName, "mime", mimeType, "header", err.Header)
		return ft, err
	}

	return ft, nil
}

// resolveContainer picks the subtype of a ZIP or OLE container. It tries the
// extension, then the enabled content heuristics, and finally falls back to
// the raw extension.
func (c *Classifier) resolveContainer(data []byte, ft *FileType, known map[string]bool) string {
	if known[ft.Extension] {
		return ft.Extension
	}

	if c.inspectContainers {
		if content, simple := inspectContainer(data, ft.ContentType); simple != "" {
			ft.ContentType = content
			return simple
		}
	}

	if c.trailerHeuristics {
		if simple := resolveByTrailer(data, ft.ContentType); simple != "" {
			return simple
		}
	}

	c.logger.Debug("container subtype not confirmed, using extension",
		"content", ft.ContentType, "extension", ft.Extension, "mime", ft.MIMEType)
	return ft.Extension
}

// ebookShortName returns the e-book short name flagged by the MIME type or,
// failing that, by the extension.
func ebookShortName(mimeShort, ext string) string {
	if ebookShortNames[mimeShort] {
		return mimeShort
	}
	if ebookShortNames[ext] {
		return ext
	}
	return ""
}
