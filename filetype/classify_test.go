package filetype

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

var (
	pdfHeader = []byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	zipHeader = []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00, 0x08, 0x00}
	oleHeader = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x00}
	pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	jpgHeader = []byte{0xFF, 0xD8, 0xFF, 0xE1, 0x00, 0x10, 0x45, 0x78, 0x69, 0x66}
	gifHeader = []byte("GIF89a\x01\x00\x01\x00")
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		fileName    string
		mimeType    string
		wantContent string
		wantSimple  string
		wantExt     string
		wantZip     bool
	}{
		{
			name:        "PDF",
			data:        pdfHeader,
			fileName:    "invoice.pdf",
			mimeType:    "application/pdf",
			wantContent: ContentPDF,
			wantSimple:  TypePDF,
			wantExt:     "pdf",
		},
		{
			name:        "PDF with misleading name",
			data:        pdfHeader,
			fileName:    "invoice.docx",
			mimeType:    "application/octet-stream",
			wantContent: ContentPDF,
			wantSimple:  TypePDF,
			wantExt:     "docx",
		},
		{
			name:        "xlsx",
			data:        zipHeader,
			fileName:    "budget.xlsx",
			wantContent: ContentFile2007,
			wantSimple:  TypeXLSX,
			wantExt:     "xlsx",
			wantZip:     true,
		},
		{
			name:        "docx",
			data:        zipHeader,
			fileName:    "letter.docx",
			wantContent: ContentFile2007,
			wantSimple:  TypeDOCX,
			wantExt:     "docx",
			wantZip:     true,
		},
		{
			name:        "pptx",
			data:        zipHeader,
			fileName:    "deck.pptx",
			wantContent: ContentFile2007,
			wantSimple:  TypePPTX,
			wantExt:     "pptx",
			wantZip:     true,
		},
		{
			name:        "docx with dotted upper case name",
			data:        zipHeader,
			fileName:    "Report.Final.DOCX",
			wantContent: ContentFile2007,
			wantSimple:  TypeDOCX,
			wantExt:     "docx",
			wantZip:     true,
		},
		{
			name:        "epub by MIME type beats extension",
			data:        zipHeader,
			fileName:    "book.docx",
			mimeType:    "application/epub+zip",
			wantContent: ContentEPUB,
			wantSimple:  TypeEbook,
			wantExt:     "docx",
			wantZip:     true,
		},
		{
			name:        "epub MIME type with parameters",
			data:        zipHeader,
			fileName:    "book",
			mimeType:    "Application/EPUB+zip; charset=binary",
			wantContent: ContentEPUB,
			wantSimple:  TypeEbook,
			wantZip:     true,
		},
		{
			name:        "epub name without epub MIME type stays advisory",
			data:        zipHeader,
			fileName:    "novel.epub",
			mimeType:    "application/octet-stream",
			wantContent: ContentFile2007,
			wantSimple:  "epub",
			wantExt:     "epub",
			wantZip:     true,
		},
		{
			name:        "zip without subtype keeps raw extension",
			data:        zipHeader,
			fileName:    "archive.zip",
			mimeType:    "application/zip",
			wantContent: ContentFile2007,
			wantSimple:  "zip",
			wantExt:     "zip",
			wantZip:     true,
		},
		{
			name:        "empty zip archive is not flagged as zip",
			data:        pad([]byte{0x50, 0x4B, 0x05, 0x06}, 22),
			fileName:    "empty.xlsx",
			wantContent: ContentFile2007,
			wantSimple:  TypeXLSX,
			wantExt:     "xlsx",
		},
		{
			name:        "xls",
			data:        oleHeader,
			fileName:    "legacy.xls",
			wantContent: ContentFile2003,
			wantSimple:  TypeXLS,
			wantExt:     "xls",
		},
		{
			name:        "doc",
			data:        oleHeader,
			fileName:    "legacy.DOC",
			wantContent: ContentFile2003,
			wantSimple:  TypeDOC,
			wantExt:     "doc",
		},
		{
			name:        "ppt",
			data:        oleHeader,
			fileName:    "legacy.ppt",
			wantContent: ContentFile2003,
			wantSimple:  TypePPT,
			wantExt:     "ppt",
		},
		{
			name:        "OLE with OOXML extension keeps raw extension",
			data:        oleHeader,
			fileName:    "renamed.docx",
			wantContent: ContentFile2003,
			wantSimple:  "docx",
			wantExt:     "docx",
		},
		{
			name:        "png",
			data:        pngHeader,
			fileName:    "photo.png",
			wantContent: ContentPNG,
			wantSimple:  TypeImage,
			wantExt:     "png",
		},
		{
			name:        "jpeg without extension",
			data:        jpgHeader,
			fileName:    "camera",
			wantContent: ContentJPG,
			wantSimple:  TypeImage,
		},
		{
			name:        "gif",
			data:        gifHeader,
			fileName:    "anim.gif",
			wantContent: ContentGIF,
			wantSimple:  TypeImage,
			wantExt:     "gif",
		},
		{
			name:        "mobi by MIME type ignores content",
			data:        pdfHeader,
			fileName:    "book.bin",
			mimeType:    "application/x-mobipocket-ebook",
			wantContent: "mobi",
			wantSimple:  TypeEbook,
			wantExt:     "bin",
		},
		{
			name:        "mobi by MIME type with no data",
			data:        nil,
			fileName:    "",
			mimeType:    "application/x-mobipocket-ebook",
			wantContent: "mobi",
			wantSimple:  TypeEbook,
		},
		{
			name:        "fb2 by extension",
			data:        []byte("<?xml version=\"1.0\"?><FictionBook>"),
			fileName:    "tale.fb2",
			wantContent: "fb2",
			wantSimple:  TypeEbook,
			wantExt:     "fb2",
		},
		{
			name:        "fbz keeps zip flag",
			data:        zipHeader,
			fileName:    "tale.fbz",
			wantContent: "fbz",
			wantSimple:  TypeEbook,
			wantExt:     "fbz",
			wantZip:     true,
		},
		{
			name:        "e-book MIME type beats e-book extension",
			data:        nil,
			fileName:    "tale.mobi",
			mimeType:    "text/fb2+xml",
			wantContent: "fb2",
			wantSimple:  TypeEbook,
			wantExt:     "mobi",
		},
		{
			name:        "short PDF marker",
			data:        []byte("%PDF"),
			fileName:    "tiny.pdf",
			wantContent: ContentPDF,
			wantSimple:  TypePDF,
			wantExt:     "pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, err := Classify(tt.data, tt.fileName, tt.mimeType)
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if ft.ContentType != tt.wantContent {
				t.Errorf("ContentType = %q, want %q", ft.ContentType, tt.wantContent)
			}
			if ft.SimpleType != tt.wantSimple {
				t.Errorf("SimpleType = %q, want %q", ft.SimpleType, tt.wantSimple)
			}
			if ft.Extension != tt.wantExt {
				t.Errorf("Extension = %q, want %q", ft.Extension, tt.wantExt)
			}
			if ft.IsZip != tt.wantZip {
				t.Errorf("IsZip = %v, want %v", ft.IsZip, tt.wantZip)
			}
			if ft.MIMEType != tt.mimeType {
				t.Errorf("MIMEType = %q, want %q", ft.MIMEType, tt.mimeType)
			}
		})
	}
}

func TestClassify_ExcelHTML(t *testing.T) {
	data := bytes.Repeat([]byte(" "), 200)
	copy(data, "<html")
	copy(data[60:], "office:excel")

	ft, err := Classify(data, "export.htm", "text/html")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if ft.SimpleType != TypeXLS {
		t.Errorf("SimpleType = %q, want %q", ft.SimpleType, TypeXLS)
	}
	if ft.ContentType != "" {
		t.Errorf("ContentType = %q, want empty", ft.ContentType)
	}
}

func TestClassify_Unidentified(t *testing.T) {
	data := []byte("plain text that matches no signature")

	ft, err := Classify(data, "notes.txt", "text/plain")
	if err == nil {
		t.Fatal("expected error for unidentified content")
	}
	if !errors.Is(err, ErrUnidentifiedFormat) {
		t.Errorf("errors.Is(err, ErrUnidentifiedFormat) = false, err = %v", err)
	}
	if errors.Is(err, ErrMalformedInput) {
		t.Error("full-length buffer reported as malformed")
	}
	if GetErrorKind(err) != KindUnidentified {
		t.Errorf("kind = %q, want %q", GetErrorKind(err), KindUnidentified)
	}
	if ft.ContentType != "" || ft.SimpleType != "" {
		t.Errorf("failed classification set types: %+v", ft)
	}
	if ft.Extension != "txt" {
		t.Errorf("Extension = %q, want txt", ft.Extension)
	}

	var classErr *ClassificationError
	if !errors.As(err, &classErr) {
		t.Fatal("expected *ClassificationError")
	}
	if !bytes.Equal(classErr.Header, data[:SampleSize]) {
		t.Errorf("Header = %x, want %x", classErr.Header, data[:SampleSize])
	}
	if classErr.FileName != "notes.txt" || classErr.MIMEType != "text/plain" {
		t.Errorf("error lost inputs: %+v", classErr)
	}
}

func TestClassify_ShortBuffer(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"two bytes", []byte{0x01, 0x02}},
		{"seven bytes", []byte("abcdefg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.data, "x.bin", "")
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("expected ErrMalformedInput, got %v", err)
			}
			if !errors.Is(err, ErrUnidentifiedFormat) {
				t.Error("malformed input should also match ErrUnidentifiedFormat")
			}
			var classErr *ClassificationError
			if errors.As(err, &classErr) && len(classErr.Header) != len(tt.data) {
				t.Errorf("Header length = %d, want %d", len(classErr.Header), len(tt.data))
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	inputs := []struct {
		data     []byte
		fileName string
		mimeType string
	}{
		{pdfHeader, "a.pdf", "application/pdf"},
		{zipHeader, "a.xlsx", ""},
		{zipHeader, "", "application/epub+zip"},
		{oleHeader, "a.bin", ""},
		{[]byte("no signature here"), "a.txt", ""},
	}

	for _, in := range inputs {
		first, err1 := Classify(in.data, in.fileName, in.mimeType)
		second, err2 := Classify(in.data, in.fileName, in.mimeType)
		if first != second {
			t.Errorf("Classify(%q) not idempotent: %+v vs %+v", in.fileName, first, second)
		}
		if (err1 == nil) != (err2 == nil) {
			t.Errorf("Classify(%q) error changed between calls: %v vs %v", in.fileName, err1, err2)
		}
	}
}

func TestClassify_DoesNotModifyInput(t *testing.T) {
	data := append([]byte(nil), zipHeader...)
	orig := append([]byte(nil), data...)

	if _, err := New(WithContainerInspection(), WithTrailerHeuristics()).Classify(data, "x", ""); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !bytes.Equal(data, orig) {
		t.Error("Classify modified the input buffer")
	}
}

func TestClassify_Concurrent(t *testing.T) {
	c := New(WithContainerInspection())
	docx := buildZip(t, "word/document.xml")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ft, err := c.Classify(docx, "", "")
			if err != nil || ft.SimpleType != TypeDOCX {
				t.Errorf("Classify() = %+v, %v", ft, err)
			}
		}()
	}
	wg.Wait()
}

func TestFileType_Ambiguous(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		fileName  string
		ambiguous bool
	}{
		{"xlsx resolved", zipHeader, "a.xlsx", false},
		{"zip unresolved", zipHeader, "a.zip", true},
		{"zip without name", zipHeader, "", true},
		{"xls resolved", oleHeader, "a.xls", false},
		{"OLE unresolved", oleHeader, "a.msg", true},
		{"pdf", pdfHeader, "a.pdf", false},
		{"epub name only", zipHeader, "a.epub", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, err := Classify(tt.data, tt.fileName, "")
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got := ft.Ambiguous(); got != tt.ambiguous {
				t.Errorf("Ambiguous() = %v, want %v", got, tt.ambiguous)
			}
			ambErr := ft.Err()
			if tt.ambiguous {
				if !errors.Is(ambErr, ErrAmbiguousLegacyFormat) {
					t.Errorf("Err() = %v, want ErrAmbiguousLegacyFormat", ambErr)
				}
				if errors.Is(ambErr, ErrUnidentifiedFormat) {
					t.Error("ambiguous error should not match ErrUnidentifiedFormat")
				}
			} else if ambErr != nil {
				t.Errorf("Err() = %v, want nil", ambErr)
			}
			if !ft.Identified() {
				t.Error("Identified() = false for a classified buffer")
			}
		})
	}
}

func TestFileType_ErrCarriesDiagnostics(t *testing.T) {
	ft, err := Classify(oleHeader, "notes.msg", "application/vnd.ms-outlook")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	var classErr *ClassificationError
	if !errors.As(ft.Err(), &classErr) {
		t.Fatalf("Err() = %v, want *ClassificationError", ft.Err())
	}
	if classErr.Kind != KindAmbiguousLegacy {
		t.Errorf("Kind = %v, want KindAmbiguousLegacy", classErr.Kind)
	}
	if classErr.FileName != "notes.msg" || classErr.MIMEType != "application/vnd.ms-outlook" {
		t.Errorf("unexpected name or MIME type: %+v", classErr)
	}
	if !bytes.Equal(classErr.Header, oleHeader[:SampleSize]) {
		t.Errorf("Header = % x, want % x", classErr.Header, oleHeader[:SampleSize])
	}

	resolved, _ := Classify(zipHeader, "a.xlsx", "")
	if resolved.Err() != nil {
		t.Errorf("Err() = %v for a resolved container", resolved.Err())
	}
}

func TestFileType_ServeMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		ft       FileType
		expected string
	}{
		{"pdf", FileType{ContentType: ContentPDF, SimpleType: TypePDF}, "application/pdf"},
		{"png", FileType{ContentType: ContentPNG, SimpleType: TypeImage}, "image/png"},
		{"jpg", FileType{ContentType: ContentJPG, SimpleType: TypeImage}, "image/jpeg"},
		{"xlsx", FileType{ContentType: ContentFile2007, SimpleType: TypeXLSX},
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"excel html", FileType{SimpleType: TypeXLS}, "application/vnd.ms-excel"},
		{"epub", FileType{ContentType: ContentEPUB, SimpleType: TypeEbook}, "application/epub+zip"},
		{"fb2", FileType{ContentType: "fb2", SimpleType: TypeEbook}, "application/x-fictionbook+xml"},
		{"ambiguous zip uses declared type", FileType{
			MIMEType: "Application/Zip; x=1", ContentType: ContentFile2007, SimpleType: "zip",
		}, "application/zip"},
		{"nothing known", FileType{}, "text/plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ft.ServeMIMEType(); got != tt.expected {
				t.Errorf("ServeMIMEType() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestIdentifyByExtension(t *testing.T) {
	tests := []struct {
		name        string
		fileName    string
		mimeType    string
		wantContent string
		wantSimple  string
		wantErr     bool
	}{
		{"pdf", "a.pdf", "", "", TypePDF, false},
		{"upper case image", "photo.JPEG", "", "", TypeImage, false},
		{"epub", "b.epub", "", "", TypeEbook, false},
		{"mobi extension", "b.mobi", "", "mobi", TypeEbook, false},
		{"fb3 MIME type", "b", "application/x-fb3", "fb3", TypeEbook, false},
		{"unknown", "a.bin", "", "", "", true},
		{"no extension", "README", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft, err := IdentifyByExtension(tt.fileName, tt.mimeType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IdentifyByExtension() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrUnidentifiedFormat) {
					t.Errorf("expected ErrUnidentifiedFormat, got %v", err)
				}
				return
			}
			if ft.ContentType != tt.wantContent {
				t.Errorf("ContentType = %q, want %q", ft.ContentType, tt.wantContent)
			}
			if ft.SimpleType != tt.wantSimple {
				t.Errorf("SimpleType = %q, want %q", ft.SimpleType, tt.wantSimple)
			}
		})
	}
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New(WithLogger(logger))

	if _, err := c.Classify([]byte("nothing to see here"), "x.txt", ""); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(buf.String(), "file type not identified") {
		t.Errorf("missing debug record, got %q", buf.String())
	}

	buf.Reset()
	if _, err := c.Classify(zipHeader, "a.zip", ""); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !strings.Contains(buf.String(), "container subtype not confirmed") {
		t.Errorf("missing ambiguity record, got %q", buf.String())
	}
}

func TestWithLogger_Nil(t *testing.T) {
	c := New(WithLogger(nil))
	if _, err := c.Classify([]byte("nothing to see here"), "x.txt", ""); err == nil {
		t.Fatal("expected error")
	}
}
