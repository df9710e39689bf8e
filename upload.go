package docview

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gobeaver/docview/filetype"
)

// ProgressFunc reports transfer progress. totalBytes is -1 when unknown.
type ProgressFunc func(bytesTransferred int64, totalBytes int64)

// Accept lists what the upload dialog should offer
type Accept struct {
	MIMETypes  []string `json:"mimeTypes"`
	Extensions []string `json:"extensions"`
}

// AcceptList returns the MIME types and dotted extensions the classifier
// recognises, for an <input type="file" accept="..."> filter.
func AcceptList() Accept {
	return Accept{
		MIMETypes:  filetype.SupportedMIMETypes(),
		Extensions: filetype.KnownExtensions(),
	}
}

// OpenUpload opens a document received as a multipart file part, using the
// part's Content-Type as the declared MIME type.
func (v *Viewer) OpenUpload(ctx context.Context, fh *multipart.FileHeader) (*Document, error) {
	if fh == nil || (fh.Filename == "" && fh.Size == 0) {
		return nil, ErrNoFile
	}
	if v.maxSize > 0 && fh.Size > v.maxSize {
		return nil, WrapPathErr("upload", fh.Filename, ErrTooLarge)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, WrapPathErr("upload", fh.Filename, err)
	}
	defer f.Close()

	data, err := readLimited(f, v.maxSize)
	if err != nil {
		return nil, WrapPathErr("upload", fh.Filename, err)
	}

	return v.open(data, fh.Filename, fh.Header.Get("Content-Type"), SourceUpload)
}

// readLimited reads r to the end, failing with ErrTooLarge once more than
// maxSize bytes arrive. maxSize <= 0 means no limit.
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		return io.ReadAll(r)
	}

	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, maxSize)
	}
	return data, nil
}

// progressReader reports progress every reportingStep bytes and once more
// at EOF if the last report is stale
type progressReader struct {
	reader        io.Reader
	progress      ProgressFunc
	size          int64
	bytesRead     int64
	lastReported  int64
	reportingStep int64
	reported      bool
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.bytesRead += int64(n)
	if r.progress == nil {
		return n, err
	}

	due := n > 0 && r.bytesRead-r.lastReported >= r.reportingStep
	if err == io.EOF && (!r.reported || r.bytesRead != r.lastReported) {
		due = true
	}
	if due {
		r.progress(r.bytesRead, r.size)
		r.lastReported = r.bytesRead
		r.reported = true
	}
	return n, err
}
