// Package pdfinfo reads cheap facts about an uploaded PDF.
package pdfinfo

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNotPDF = errors.New("pdfinfo: not a PDF")

// Magic is the header every PDF starts with.
var Magic = []byte("%PDF-")

// LooksLikePDF checks the file header only.
func LooksLikePDF(b []byte) bool {
	return bytes.HasPrefix(b, Magic)
}

// PageCount parses data with relaxed validation and returns its page count.
// pdfcpu can panic on some truncated files; that is reported as an error.
func PageCount(data []byte) (n int, err error) {
	if !LooksLikePDF(data) {
		return 0, ErrNotPDF
	}
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdfinfo: count pages: %v", r)
		}
	}()
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	n, err = api.PageCount(bytes.NewReader(data), cfg)
	if err != nil {
		return 0, fmt.Errorf("pdfinfo: count pages: %w", err)
	}
	return n, nil
}
