package filetype

import (
	"encoding/hex"
	"strings"
)

// trailerMarker is a byte pattern searched near the end of a container
type trailerMarker struct {
	simpleType string
	pattern    string
}

// OOXML central directories list part names close to the end of the file.
var ooxmlTrailerMarkers = []trailerMarker{
	{TypeXLSX, hex.EncodeToString([]byte("worksheets/"))},
	{TypeDOCX, hex.EncodeToString([]byte("word/"))},
	{TypePPTX, hex.EncodeToString([]byte("ppt/"))},
}

// OLE files written by Office carry the product name in the summary stream,
// which usually lands 440..550 bytes before the end.
var oleTrailerMarkers = []trailerMarker{
	{TypeXLS, hex.EncodeToString([]byte("Microsoft Excel"))},
	{TypeDOC, hex.EncodeToString([]byte("Microsoft Word"))},
	{TypePPT, utf16Pattern("PowerPoint Document")},
}

const (
	ooxmlTrailerWindow = 500
	oleTrailerFrom     = 550
	oleTrailerTo       = 440
)

// utf16Pattern encodes s as UTF-16LE hex, without the trailing zero byte of
// the last character.
func utf16Pattern(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if i > 0 {
			b.WriteString("00")
		}
		b.WriteString(hex.EncodeToString([]byte{s[i]}))
	}
	return b.String()
}

// resolveByTrailer applies the legacy trailer heuristics for a container
// family and returns the simple type, or "" if no marker matched.
func resolveByTrailer(data []byte, content string) string {
	var (
		window  string
		markers []trailerMarker
	)
	switch content {
	case ContentFile2007:
		window = tailWindow(data, ooxmlTrailerWindow, 0)
		markers = ooxmlTrailerMarkers
	case ContentFile2003:
		window = tailWindow(data, oleTrailerFrom, oleTrailerTo)
		markers = oleTrailerMarkers
	default:
		return ""
	}

	for _, m := range markers {
		if containsHex(window, m.pattern) {
			return m.simpleType
		}
	}
	return ""
}
