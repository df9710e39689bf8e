// Package filetype identifies the documents a viewer can render: PDF,
// spreadsheets (xlsx, xls), Word files (docx, doc), presentations,
// raster images and e-books (epub, fb2, fb3, fbz, mobi).
//
// Identification works on a fully loaded buffer plus the file name and the
// MIME type reported by the browser or the HTTP response. Only small fixed
// windows of the buffer are read, so the cost does not grow with file size.
//
// # Quick Start
//
//	ft, err := filetype.Classify(data, "report.xlsx", header.Get("Content-Type"))
//	if err != nil {
//	    // unidentified: show "unsupported file type", never guess
//	}
//	switch ft.SimpleType {
//	case filetype.TypePDF:
//	case filetype.TypeXLSX, filetype.TypeXLS:
//	case filetype.TypeImage:
//	}
//
// # Rules
//
// Rules are applied in a fixed order and the first conclusive one wins:
//
//	1. fb2, fb3, fbz and mobi are recognized from the MIME type or extension
//	2. the first 8 bytes are matched against the signature table; the table
//	   is scanned in full and the last matching entry wins
//	3. IsZip is set when the buffer starts with PK\x03\x04
//	4. ZIP containers resolve to epub (by MIME type) or to xlsx, docx or pptx
//	   by extension; OLE containers resolve to xls, doc or ppt by extension;
//	   buffers with no signature are probed for Excel HTML exports
//	5. anything else fails with a *ClassificationError
//
// A container whose extension does not name its subtype keeps the raw
// extension as SimpleType. [FileType.Ambiguous] reports this case and callers
// should treat the value as advisory.
//
// # Container Heuristics
//
// Two opt-in fallbacks resolve containers that arrive without a useful
// extension:
//
//	c := filetype.New(
//	    filetype.WithContainerInspection(), // read the ZIP / OLE directory
//	    filetype.WithTrailerHeuristics(),   // scan the file tail for product names
//	)
//	ft, err := c.Classify(data, "", "application/octet-stream")
//
// # Error Handling
//
//	ft, err := filetype.Classify(data, name, mimeType)
//	switch {
//	case errors.Is(err, filetype.ErrMalformedInput):
//	    // buffer shorter than the sample window
//	case errors.Is(err, filetype.ErrUnidentifiedFormat):
//	    // no rule matched
//	case ft.Err() != nil:
//	    // ambiguous legacy container, SimpleType is a guess
//	}
package filetype
