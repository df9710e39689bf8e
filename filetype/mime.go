package filetype

import (
	"sort"
	"strings"
)

// mimeEntry binds a MIME type to the short name used by the classifier
type mimeEntry struct {
	MIME  string
	Short string
}

// mimeTable lists every MIME type the classifier recognizes. When a short
// name appears more than once the first entry is its canonical MIME type.
var mimeTable = []mimeEntry{
	{"application/pdf", "pdf"},
	{"application/vnd.ms-excel", "xls"},
	{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx"},
	{"application/msword", "doc"},
	{"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "docx"},
	{"application/vnd.ms-powerpoint", "ppt"},
	{"application/vnd.openxmlformats-officedocument.presentationml.presentation", "pptx"},
	{"application/epub+zip", "epub"},
	{"application/x-fictionbook+xml", "fb2"},
	{"application/x-fictionbook", "fb2"},
	{"text/fb2+xml", "fb2"},
	{"application/x-fb3", "fb3"},
	{"application/x-zip-compressed-fb2", "fbz"},
	{"application/x-mobipocket-ebook", "mobi"},
	{"text/plain", "default"},
	{"image/avif", "avif"},
	{"image/bmp", "bmp"},
	{"image/gif", "gif"},
	{"image/vnd.microsoft.icon", "ico"},
	{"image/jpeg", "jpg"},
	{"image/png", "png"},
	{"image/apng", "png"},
	{"image/svg+xml", "svg"},
	{"image/svg", "svg"},
	{"image/tiff", "tiff"},
	{"image/webp", "webp"},
	{"image/x-icon", "ico"},
	{"image/x-ms-bmp", "bmp"},
	{"image/x-png", "png"},
	{"image/x-ico", "ico"},
	{"image/x-tiff", "tiff"},
	{"image/x-webp", "webp"},
	{"image/x-bmp", "bmp"},
}

var (
	mimeToShort = make(map[string]string, len(mimeTable))
	shortToMIME = make(map[string]string, len(mimeTable))
)

func init() {
	for _, e := range mimeTable {
		mimeToShort[e.MIME] = e.Short
		if _, ok := shortToMIME[e.Short]; !ok {
			shortToMIME[e.Short] = e.MIME
		}
	}
}

// NormalizeMIME lower-cases a MIME type and strips any parameters
func NormalizeMIME(mimeType string) string {
	if idx := strings.Index(mimeType, ";"); idx != -1 {
		mimeType = mimeType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// ShortNameForMIME returns the short name for a MIME type, or "" if unknown
func ShortNameForMIME(mimeType string) string {
	return mimeToShort[NormalizeMIME(mimeType)]
}

// MIMETypeForShortName returns the canonical MIME type for a short name,
// or "" if unknown
func MIMETypeForShortName(short string) string {
	return shortToMIME[short]
}

// SupportedMIMETypes returns every MIME type the classifier recognizes,
// sorted, for use in upload dialog filters
func SupportedMIMETypes() []string {
	types := make([]string, 0, len(mimeTable))
	for _, e := range mimeTable {
		types = append(types, e.MIME)
	}
	sort.Strings(types)
	return types
}
