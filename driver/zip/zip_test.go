package zip

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gobeaver/docview"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create zip entry: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

var bundle = map[string]string{
	"cover.pdf":               "%PDF-1.4",
	"exhibits/":               "",
	"exhibits/budget.xlsx":    "PK\x03\x04\x14\x00\x06\x00",
	"exhibits/2019/notes.doc": "\xd0\xcf\x11\xe0",
}

func TestOpen(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "case.zip")
	if err := os.WriteFile(zipPath, buildZip(t, bundle), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("opens existing archive", func(t *testing.T) {
		a, err := Open(zipPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer a.Close()

		data, err := a.ReadAll(context.Background(), "cover.pdf")
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		if string(data) != "%PDF-1.4" {
			t.Errorf("unexpected content %q", data)
		}
	})

	t.Run("fails for missing archive", func(t *testing.T) {
		if _, err := Open(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
			t.Error("expected error for missing archive")
		}
	})
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	data := buildZip(t, bundle)
	a, err := NewFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}

	info, err := a.Stat(ctx, "/exhibits/budget.xlsx")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Path != "exhibits/budget.xlsx" || info.Size != 8 || info.IsDir {
		t.Errorf("unexpected info %+v", info)
	}
	if info.ContentType != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", info.ContentType)
	}

	implied, err := a.Stat(ctx, "exhibits/2019")
	if err != nil {
		t.Fatalf("Stat implied dir: %v", err)
	}
	if !implied.IsDir {
		t.Error("expected directory implied by a file name")
	}

	root, err := a.Stat(ctx, "")
	if err != nil || !root.IsDir {
		t.Errorf("expected root directory, got %+v, %v", root, err)
	}

	if _, err := a.Stat(ctx, "missing.pdf"); !docview.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
	if _, err := a.Stat(ctx, "../escape.pdf"); !errors.Is(err, docview.ErrNotAllowed) {
		t.Errorf("expected ErrNotAllowed, got %v", err)
	}
	if _, err := a.Read(ctx, "exhibits"); !errors.Is(err, docview.ErrIsDir) {
		t.Errorf("expected ErrIsDir, got %v", err)
	}
}

func TestListContents(t *testing.T) {
	ctx := context.Background()
	data := buildZip(t, bundle)
	a, err := NewFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}

	tests := []struct {
		name      string
		dir       string
		recursive bool
		want      []string
	}{
		{"root", "", false, []string{"cover.pdf", "exhibits"}},
		{"recursive", "/", true, []string{"cover.pdf", "exhibits", "exhibits/2019", "exhibits/2019/notes.doc", "exhibits/budget.xlsx"}},
		{"subdirectory", "exhibits", false, []string{"exhibits/2019", "exhibits/budget.xlsx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := a.ListContents(ctx, tt.dir, tt.recursive)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("got %d entries, want %v", len(entries), tt.want)
			}
			for i, e := range entries {
				if e.Path != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, e.Path, tt.want[i])
				}
			}
		})
	}

	if _, err := a.ListContents(ctx, "cover.pdf", false); !errors.Is(err, docview.ErrNotDir) {
		t.Errorf("expected ErrNotDir, got %v", err)
	}
	if _, err := a.ListContents(ctx, "nowhere", false); !docview.IsNotExist(err) {
		t.Errorf("expected not exist, got %v", err)
	}
}

func TestViewerOverArchive(t *testing.T) {
	data := buildZip(t, bundle)
	a, err := NewFromReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("NewFromReader: %v", err)
	}

	v := docview.NewViewer(a)
	doc, err := v.Open(context.Background(), "exhibits/budget.xlsx")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if doc.Plugin != docview.PluginMSExcel {
		t.Errorf("expected msexcel, got %q", doc.Plugin)
	}

	files, err := v.List(context.Background(), "", docview.Glob("*.doc"), true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 1 || files[0].Path != "exhibits/2019/notes.doc" {
		t.Errorf("unexpected listing %+v", files)
	}
}
