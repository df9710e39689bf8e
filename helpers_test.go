package docview

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Leading bytes of the formats the tests exercise
var (
	pdfHeader  = []byte("%PDF-1.4\n")
	zipHeader  = []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00}
	oleHeader  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	pngHeader  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	textSample = []byte("just some plain text")
)

// minimalPDF builds a well-formed PDF with the given number of empty pages
func minimalPDF(pages int) []byte {
	var objects []string
	kids := make([]string, pages)
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects,
		"<< /Type /Catalog /Pages 2 0 R >>",
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages),
	)
	for range pages {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

type testFile struct {
	data        []byte
	contentType string
	modTime     time.Time
}

// testStore is a flat in-package store for tests that must not import a
// driver package
type testStore struct {
	mu    sync.Mutex
	files map[string]testFile
	reads int
	stats int
	lists int

	token *CallbackChangeToken
}

func newTestStore() *testStore {
	return &testStore{files: make(map[string]testFile)}
}

func (s *testStore) put(p string, data []byte, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[strings.TrimPrefix(p, "/")] = testFile{data: data, contentType: contentType, modTime: time.Unix(1700000000, 0)}
}

func (s *testStore) Read(ctx context.Context, p string) (io.ReadCloser, error) {
	data, err := s.ReadAll(ctx, p)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *testStore) ReadAll(_ context.Context, p string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	f, ok := s.files[strings.TrimPrefix(p, "/")]
	if !ok {
		return nil, WrapPathErr("read", p, ErrNotExist)
	}
	return f.data, nil
}

func (s *testStore) Stat(_ context.Context, p string) (*FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats++
	p = strings.TrimPrefix(p, "/")
	if f, ok := s.files[p]; ok {
		return &FileInfo{
			Name:        path.Base(p),
			Path:        p,
			Size:        int64(len(f.data)),
			ModTime:     f.modTime,
			ContentType: f.contentType,
		}, nil
	}
	for name := range s.files {
		if strings.HasPrefix(name, p+"/") {
			return &FileInfo{Name: path.Base(p), Path: p, IsDir: true}, nil
		}
	}
	return nil, WrapPathErr("stat", p, ErrNotExist)
}

func (s *testStore) ListContents(_ context.Context, dir string, recursive bool) ([]FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++

	dir = strings.Trim(dir, "/")
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}

	seen := make(map[string]bool)
	var out []FileInfo
	for name, f := range s.files {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			sub := prefix + rest[:i]
			if !seen[sub] {
				seen[sub] = true
				out = append(out, FileInfo{Name: path.Base(sub), Path: sub, IsDir: true})
			}
			if !recursive {
				continue
			}
		}
		out = append(out, FileInfo{Name: path.Base(name), Path: name, Size: int64(len(f.data)), ContentType: f.contentType})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Watch hands out a token the test fires with signal
func (s *testStore) Watch(ctx context.Context, _ string) (ChangeToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = NewCallbackChangeToken()
	return s.token, nil
}

func (s *testStore) signal() bool {
	s.mu.Lock()
	token := s.token
	s.token = nil
	s.mu.Unlock()
	if token == nil {
		return false
	}
	token.SignalChange()
	return true
}

func (s *testStore) counts() (reads, stats, lists int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads, s.stats, s.lists
}

var (
	_ FileReader = (*testStore)(nil)
	_ CanWatch   = (*testStore)(nil)
)
