package filetype

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"

	"github.com/richardlehane/mscfb"
)

// maxContainerEntries bounds the directory walk of an inspected container.
const maxContainerEntries = 10000

const epubMimetype = "application/epub+zip"

// inspectContainer reads the directory of a ZIP or OLE container and
// returns the resolved content family and simple type. Empty strings mean
// the container did not identify itself.
func inspectContainer(data []byte, content string) (string, string) {
	switch content {
	case ContentFile2007:
		return inspectZip(data)
	case ContentFile2003:
		return content, inspectOLE(data)
	}
	return content, ""
}

// inspectZip looks for the part folders of an OOXML package or the
// mimetype entry of an EPUB.
func inspectZip(data []byte) (string, string) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ContentFile2007, ""
	}

	for i, f := range zr.File {
		if i >= maxContainerEntries {
			break
		}
		if f.Name == "mimetype" && isEPUBMimetype(f) {
			return ContentEPUB, TypeEbook
		}
		if docType := ooxmlDocType(f.Name); docType != "" {
			return ContentFile2007, docType
		}
	}
	return ContentFile2007, ""
}

func isEPUBMimetype(f *zip.File) bool {
	rc, err := f.Open()
	if err != nil {
		return false
	}
	defer rc.Close()

	buf := make([]byte, len(epubMimetype)+2)
	n, _ := io.ReadFull(rc, buf)
	return strings.TrimSpace(string(buf[:n])) == epubMimetype
}

// ooxmlDocType identifies the Office document type from an internal path
func ooxmlDocType(path string) string {
	switch {
	case strings.HasPrefix(path, "word/"):
		return TypeDOCX
	case strings.HasPrefix(path, "xl/"):
		return TypeXLSX
	case strings.HasPrefix(path, "ppt/"):
		return TypePPTX
	}
	return ""
}

// inspectOLE walks the compound file directory for the main stream of
// Word, Excel or PowerPoint.
func inspectOLE(data []byte) string {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	for i := 0; i < maxContainerEntries; i++ {
		entry, err := doc.Next()
		if err != nil {
			return ""
		}
		switch entry.Name {
		case "WordDocument":
			return TypeDOC
		case "Workbook", "Book":
			return TypeXLS
		case "PowerPoint Document":
			return TypePPT
		}
	}
	return ""
}
