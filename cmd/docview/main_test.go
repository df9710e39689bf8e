package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/docview"
)

var (
	pdfBytes = []byte("%PDF-1.4\n%%EOF\n")
	zipBytes = []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x06, 0x00}
	oleBytes = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

func writeFiles(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, data, 0o644))
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("BEAVER_DOCVIEW_LOG_LEVEL", "error")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestClassifyCommand(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"report.pdf":  pdfBytes,
		"budget.xlsx": zipBytes,
	})

	stdout, _, err := runCLI(t, "classify", filepath.Join(dir, "report.pdf"), filepath.Join(dir, "budget.xlsx"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "RESULT")
	assert.Contains(t, lines[1], "report.pdf")
	assert.True(t, strings.HasSuffix(lines[1], "pdf"))
	assert.Contains(t, lines[2], "xlsx")
	assert.True(t, strings.HasSuffix(lines[2], "msexcel"))
}

func TestClassifyCommandUnviewable(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"minutes.doc": oleBytes,
		"notes.txt":   []byte("plain text notes"),
	})

	stdout, _, err := runCLI(t, "classify", "--json",
		filepath.Join(dir, "minutes.doc"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "missing.pdf"))

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.ExitCode())
	assert.Equal(t, "3 of 3 files cannot be shown", exit.Error())

	var results []classifyResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results))
	require.Len(t, results, 3)

	assert.Equal(t, "doc", results[0].SimpleType)
	assert.Equal(t, docview.MessageFormatInfoDocx, results[0].Message)
	assert.Len(t, results[0].Fingerprint, 16)

	assert.Empty(t, results[1].SimpleType)
	assert.Equal(t, docview.MessageSupportTypes, results[1].Message)

	assert.Equal(t, docview.MessageSomethingWrong, results[2].Message)
	assert.NotEmpty(t, results[2].Error)
}

func TestClassifyCommandFlags(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"scan.bin":  pdfBytes,
		"sheet.xls": []byte("not really a workbook"),
	})

	t.Run("declared mime", func(t *testing.T) {
		stdout, _, err := runCLI(t, "classify", "--json", "--mime", "application/epub+zip", filepath.Join(dir, "scan.bin"))
		require.NoError(t, err)

		var results []classifyResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &results))
		assert.Equal(t, "ebook", results[0].SimpleType)
		assert.Equal(t, docview.PluginEbook, results[0].Plugin)
	})

	t.Run("extension only", func(t *testing.T) {
		stdout, _, err := runCLI(t, "classify", "--json", "--extension-only", filepath.Join(dir, "sheet.xls"))
		require.NoError(t, err)

		var results []classifyResult
		require.NoError(t, json.Unmarshal([]byte(stdout), &results))
		assert.Equal(t, "xls", results[0].SimpleType)
		assert.Equal(t, docview.PluginExcel, results[0].Plugin)
	})

	t.Run("no files", func(t *testing.T) {
		_, _, err := runCLI(t, "classify")
		assert.ErrorIs(t, err, docview.ErrNoFile)
	})

	t.Run("help", func(t *testing.T) {
		_, stderr, err := runCLI(t, "classify", "--help")
		require.NoError(t, err)
		assert.Contains(t, stderr, "--extension-only")
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, _, err := runCLI(t, "classify", "--bogus", "x")
		assert.Error(t, err)
	})
}

func TestListCommand(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"a.pdf":              pdfBytes,
		"notes.txt":          []byte("skip me"),
		"reports/q1.xlsx":    zipBytes,
		"reports/old/q4.xls": oleBytes,
	})
	t.Setenv("BEAVER_DOCVIEW_DRIVER", "local")
	t.Setenv("BEAVER_DOCVIEW_LOCAL_BASE_PATH", dir)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"root", nil, []string{"a.pdf"}},
		{"recursive", []string{"-r"}, []string{"a.pdf", "reports/old/q4.xls", "reports/q1.xlsx"}},
		{"dir and pattern", []string{"reports", "--recursive", "--pattern", "*.xlsx"}, []string{"reports/q1.xlsx"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := runCLI(t, append([]string{"list"}, tt.args...)...)
			require.NoError(t, err)

			var got []string
			for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
				if fields := strings.Fields(line); len(fields) > 0 {
					got = append(got, fields[0])
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("json", func(t *testing.T) {
		stdout, _, err := runCLI(t, "list", "--json", "--pattern", "*.epub")
		require.NoError(t, err)
		assert.Equal(t, "[]", strings.TrimSpace(stdout))
	})

	t.Run("missing dir", func(t *testing.T) {
		_, _, err := runCLI(t, "list", "nowhere")
		assert.True(t, docview.IsNotExist(err), "got %v", err)
	})

	t.Run("extra argument", func(t *testing.T) {
		_, _, err := runCLI(t, "list", "a", "b")
		assert.ErrorContains(t, err, "unexpected argument: b")
	})
}

func TestListCommandMounts(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string][]byte{"a.pdf": pdfBytes})

	archive := t.TempDir()
	writeFiles(t, archive, map[string][]byte{"minutes.doc": oleBytes})

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	fw, err := zw.Create("exhibits/budget.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(zipBytes)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	bundle := filepath.Join(t.TempDir(), "case.zip")
	require.NoError(t, os.WriteFile(bundle, buf.Bytes(), 0o644))

	t.Setenv("BEAVER_DOCVIEW_DRIVER", "local")
	t.Setenv("BEAVER_DOCVIEW_LOCAL_BASE_PATH", root)
	t.Setenv("BEAVER_DOCVIEW_MOUNTS", "archive="+archive+",bundle="+bundle)

	stdout, _, err := runCLI(t, "list", "-r", "--json")
	require.NoError(t, err)

	var entries []docview.FileInfo
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	var got []string
	for _, e := range entries {
		got = append(got, e.Path)
	}
	assert.Equal(t, []string{"a.pdf", "archive/minutes.doc", "bundle/exhibits/budget.xlsx"}, got)

	t.Run("bad mount", func(t *testing.T) {
		t.Setenv("BEAVER_DOCVIEW_MOUNTS", "missing="+filepath.Join(root, "nowhere.zip"))
		_, _, err := runCLI(t, "list")
		assert.ErrorContains(t, err, "failed to mount missing")
	})
}

func TestMIMETypesCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "mime-types")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(stdout, "\n"), "application/pdf")

	stdout, _, err = runCLI(t, "mime-types", "--extensions")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(stdout, "\n"), ".xlsx")

	stdout, _, err = runCLI(t, "mime-types", "--json")
	require.NoError(t, err)
	var accept docview.Accept
	require.NoError(t, json.Unmarshal([]byte(stdout), &accept))
	assert.Equal(t, docview.AcceptList(), accept)
}

func TestRunUsage(t *testing.T) {
	_, stderr, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, stderr, "classify")
	assert.Contains(t, stderr, "serve")

	_, _, err = runCLI(t, "render")
	assert.ErrorContains(t, err, `unknown command "render"`)
}

func TestUploadLimit(t *testing.T) {
	tests := []struct {
		name    string
		maxDoc  string
		flag    string
		want    int64
		wantErr bool
	}{
		{"from document limit", "20MB", "", 21 * units.MB, false},
		{"flag wins", "20MB", "5MB", 5 * units.MB, false},
		{"no limit", "", "", 0, false},
		{"bad flag", "20MB", "lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uploadLimit(&docview.Config{MaxDocumentSize: tt.maxDoc}, tt.flag)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServeCommand(t *testing.T) {
	t.Setenv("BEAVER_DOCVIEW_DRIVER", "memory")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	err := run(ctx, []string{"serve", "--addr", "127.0.0.1:0"}, &stdout, &stderr)
	assert.NoError(t, err)
	assert.Contains(t, stderr.String(), "starting docview")
}
