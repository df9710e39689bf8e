package docview

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount returns the number of pages of a PDF document.
func PageCount(data []byte) (n int, err error) {
	// pdfcpu panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("read pdf: %v", r)
		}
	}()

	return api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
}
