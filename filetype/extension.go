package filetype

import (
	"sort"
	"strings"
)

// extensionTypes maps the extensions the viewer can render to their simple type
var extensionTypes = map[string]string{
	"pdf":  TypePDF,
	"xlsx": TypeXLSX,
	"xls":  TypeXLS,
	"docx": TypeDOCX,
	"doc":  TypeDOC,
	"pptx": TypePPTX,
	"ppt":  TypePPT,

	"png":  TypeImage,
	"jpg":  TypeImage,
	"jpeg": TypeImage,
	"gif":  TypeImage,
	"bmp":  TypeImage,
	"tif":  TypeImage,
	"tiff": TypeImage,
	"webp": TypeImage,
	"avif": TypeImage,
	"ico":  TypeImage,

	"epub": TypeEbook,
	"fb2":  TypeEbook,
	"fb3":  TypeEbook,
	"fbz":  TypeEbook,
	"mobi": TypeEbook,
}

// Extension returns the lower-cased text after the last "." of the final
// path segment of name. Names without a dot, or whose only dot is the
// leading one (".profile"), have no extension.
func Extension(name string) string {
	if idx := strings.LastIndexAny(name, `/\`); idx != -1 {
		name = name[idx+1:]
	}
	idx := strings.LastIndex(name, ".")
	if idx <= 0 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// KnownExtension reports whether ext (without the dot) names a format the
// viewer can render
func KnownExtension(ext string) bool {
	_, ok := extensionTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return ok
}

// SimpleTypeForExtension returns the simple type implied by an extension,
// or "" if the extension is not known
func SimpleTypeForExtension(ext string) string {
	return extensionTypes[strings.ToLower(strings.TrimPrefix(ext, "."))]
}

// KnownExtensions returns the renderable extensions with a leading dot, sorted
func KnownExtensions() []string {
	exts := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		exts = append(exts, "."+ext)
	}
	sort.Strings(exts)
	return exts
}
