package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gobeaver/docview"
	"github.com/gobeaver/docview/filetype"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files
const multipartMemory = 32 << 20

// documentResponse describes an opened document. Message is set when the
// document was identified but no plugin can show it.
type documentResponse struct {
	*docview.Document
	Ambiguous   bool               `json:"ambiguous"`
	Message     docview.MessageKey `json:"message,omitempty"`
	MessageText string             `json:"messageText,omitempty"`
}

type listResponse struct {
	Dir       string             `json:"dir"`
	Documents []docview.FileInfo `json:"documents"`
}

type urlRequest struct {
	URL string `json:"url"`
}

// Classify handles POST /classify with the document in the "file" part.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadSize > 0 {
		if r.ContentLength > s.maxUploadSize {
			respondError(w, s.logger, http.StatusRequestEntityTooLarge,
				fmt.Errorf("%w: %d bytes", docview.ErrTooLarge, r.ContentLength))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, s.logger, http.StatusRequestEntityTooLarge, fmt.Errorf("%w: %w", docview.ErrTooLarge, err))
			return
		}
		respondError(w, s.logger, http.StatusBadRequest, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = docview.ErrNoFile
		}
		respondError(w, s.logger, http.StatusBadRequest, err)
		return
	}
	file.Close()

	doc, err := s.viewer.OpenUpload(r.Context(), header)
	s.respondDocument(w, doc, err)
}

// ClassifyURL handles POST /classify/url with a {"url": "..."} body.
func (s *Server) ClassifyURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, s.logger, http.StatusBadRequest, err)
		return
	}

	doc, err := s.viewer.OpenURL(r.Context(), req.URL)
	s.respondDocument(w, doc, err)
}

// MIMETypes handles GET /mime-types.
func (s *Server) MIMETypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, docview.AcceptList())
}

// ListDocuments handles GET /documents?dir=&pattern=&recursive=.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dir := q.Get("dir")

	recursive := false
	if v := q.Get("recursive"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, s.logger, http.StatusBadRequest, fmt.Errorf("invalid recursive flag %q", v))
			return
		}
		recursive = b
	}

	var selector docview.FileSelector
	if pattern := q.Get("pattern"); pattern != "" {
		selector = docview.Glob(pattern)
	}

	files, err := s.viewer.List(r.Context(), dir, selector, recursive)
	if err != nil {
		respondError(w, s.logger, statusFor(err), err)
		return
	}
	if files == nil {
		files = []docview.FileInfo{}
	}

	respondJSON(w, http.StatusOK, listResponse{Dir: dir, Documents: files})
}

// GetDocument handles GET /documents/{path...}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.viewer.Open(r.Context(), r.PathValue("path"))
	s.respondDocument(w, doc, err)
}

// Raw handles GET /raw/{path...}. The bytes are served even when no plugin
// can show them, with the canonical MIME type of the classified type and
// the fingerprint as ETag.
func (s *Server) Raw(w http.ResponseWriter, r *http.Request) {
	doc, err := s.viewer.Open(r.Context(), r.PathValue("path"))
	if doc == nil {
		respondError(w, s.logger, statusFor(err), err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", doc.Type.ServeMIMEType())
	h.Set("ETag", strconv.Quote(doc.Fingerprint))
	h.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Name}))
	if doc.Plugin != "" {
		h.Set("X-Docview-Plugin", string(doc.Plugin))
	}

	http.ServeContent(w, r, doc.Name, doc.ModTime, bytes.NewReader(doc.Data))
}

// respondDocument writes the outcome of opening a document. Documents
// that were identified but cannot be shown are a success carrying the
// overlay message; unidentified ones are 422 with the sniffed type.
func (s *Server) respondDocument(w http.ResponseWriter, doc *docview.Document, err error) {
	if err == nil {
		respondJSON(w, http.StatusOK, documentResponse{Document: doc, Ambiguous: doc.Type.Ambiguous()})
		return
	}

	if doc == nil {
		respondError(w, s.logger, statusFor(err), err)
		return
	}

	key := docview.MessageFor(err)

	var de *docview.DispatchError
	if errors.As(err, &de) {
		respondJSON(w, http.StatusOK, documentResponse{
			Document:    doc,
			Ambiguous:   doc.Type.Ambiguous(),
			Message:     key,
			MessageText: key.Text(),
		})
		return
	}

	if filetype.IsClassificationError(err) {
		s.logger.Info("unidentified document", "name", doc.Name, "sniffed", doc.Sniffed)
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:       err.Error(),
			Message:     key,
			MessageText: key.Text(),
			Sniffed:     doc.Sniffed,
		})
		return
	}

	respondError(w, s.logger, statusFor(err), err)
}
