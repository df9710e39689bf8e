package filetype

import (
	"encoding/hex"
	"strings"
)

// SampleSize is the number of leading bytes scanned for signatures.
const SampleSize = 8

// Raw signature families reported in FileType.ContentType
const (
	ContentPDF      = "pdf"
	ContentFile2003 = "file2003" // OLE compound file (doc, xls, ppt)
	ContentFile2007 = "file2007" // ZIP container (docx, xlsx, pptx, epub)
	ContentPNG      = "png"
	ContentGIF      = "gif"
	ContentJPG      = "jpg"
	ContentTIFF     = "tiff"
	ContentWebP     = "webp"
	ContentBMP      = "bmp"
	ContentAVIF     = "avif"
	ContentICO      = "ico"
	ContentEPUB     = "epub"
)

// MagicSignature maps a content family to its byte patterns, written as
// lowercase hex pairs.
type MagicSignature struct {
	Content  string
	Patterns []string
}

// magicSignatures is scanned in order and every match overwrites the previous
// one, so a later entry wins when two patterns occur in the same sample.
var magicSignatures = []MagicSignature{
	{Content: ContentPDF, Patterns: []string{"25504446"}},
	{Content: ContentFile2003, Patterns: []string{"d0cf11e0"}},
	{Content: ContentFile2007, Patterns: []string{
		"504b0304",
		"504b0506", // empty archive
		"504b0708", // spanned archive
	}},
	{Content: ContentPNG, Patterns: []string{"89504e47"}},
	{Content: ContentGIF, Patterns: []string{"474946383761", "474946383961"}},
	{Content: ContentJPG, Patterns: []string{"ffd8ffe0", "ffd8ffe1", "ffd8ffee", "ffd8ffe8"}},
	{Content: ContentTIFF, Patterns: []string{"49492a00", "4d4d002a"}},
	{Content: ContentWebP, Patterns: []string{"52494646"}}, // RIFF, subtype not checked
	{Content: ContentBMP, Patterns: []string{"424d"}},
}

// zipLocalHeader is the ZIP local file header magic, PK\x03\x04.
const zipLocalHeader = "504b0304"

// excelHTMLMarker is "office:excel", written by Excel into HTML/MHT exports.
var excelHTMLMarker = hex.EncodeToString([]byte("office:excel"))

// Signatures returns a copy of the signature table in scan order.
func Signatures() []MagicSignature {
	out := make([]MagicSignature, len(magicSignatures))
	for i, sig := range magicSignatures {
		out[i] = MagicSignature{
			Content:  sig.Content,
			Patterns: append([]string(nil), sig.Patterns...),
		}
	}
	return out
}

// sample returns data[start:end] clamped to the buffer bounds.
func sample(data []byte, start, end int) []byte {
	if start < 0 {
		start = 0
	}
	if end > len(data) {
		end = len(data)
	}
	if start >= end {
		return nil
	}
	return data[start:end]
}

// hexWindow encodes data[start:end] as lowercase hex pairs.
func hexWindow(data []byte, start, end int) string {
	return hex.EncodeToString(sample(data, start, end))
}

// tailWindow encodes the bytes between fromEnd and toEnd positions counted
// back from the end of the buffer (fromEnd > toEnd >= 0).
func tailWindow(data []byte, fromEnd, toEnd int) string {
	return hexWindow(data, len(data)-fromEnd, len(data)-toEnd)
}

// containsHex reports whether pattern occurs in s at a byte boundary.
func containsHex(s, pattern string) bool {
	if pattern == "" {
		return false
	}
	for i := 0; i+len(pattern) <= len(s); i += 2 {
		if strings.HasPrefix(s[i:], pattern) {
			return true
		}
	}
	return false
}

// detectByMagic scans the leading sample against the signature table and
// returns the last matching family, or "" when nothing matched.
func detectByMagic(data []byte) string {
	head := hexWindow(data, 0, SampleSize)

	var result string
	for _, sig := range magicSignatures {
		for _, pattern := range sig.Patterns {
			if containsHex(head, pattern) {
				result = sig.Content
			}
		}
	}
	return result
}

// isZip reports whether the buffer starts with a ZIP local file header.
func isZip(data []byte) bool {
	return hexWindow(data, 0, 4) == zipLocalHeader
}

// isExcelHTML probes bytes 50..150 for the office:excel namespace.
func isExcelHTML(data []byte) bool {
	return containsHex(hexWindow(data, 50, 150), excelHTMLMarker)
}

// isImageContent reports whether the family is a raster image.
func isImageContent(content string) bool {
	switch content {
	case ContentPNG, ContentJPG, ContentGIF, ContentBMP, ContentTIFF, ContentWebP, ContentAVIF, ContentICO:
		return true
	}
	return false
}
