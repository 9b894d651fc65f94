package pdfinfo

import (
	"testing"

	"github.com/pdfscan/pdfscan/internal/pdfinfo/pdfinfotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikePDF(t *testing.T) {
	assert.True(t, LooksLikePDF([]byte("%PDF-1.7\n...")))
	assert.False(t, LooksLikePDF([]byte("hello")))
	assert.False(t, LooksLikePDF(nil))
}

func TestPageCountRejectsNonPDF(t *testing.T) {
	_, err := PageCount([]byte("plain text"))
	require.ErrorIs(t, err, ErrNotPDF)
}

func TestPageCountBrokenPDF(t *testing.T) {
	_, err := PageCount([]byte("%PDF-1.4\nthis is not really a pdf"))
	require.Error(t, err)
}

func TestPageCountOnePage(t *testing.T) {
	n, err := PageCount(pdfinfotest.OnePage())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPageCountTruncatedPDFDoesNotPanic(t *testing.T) {
	var n int
	var err error
	require.NotPanics(t, func() { n, err = PageCount(pdfinfotest.Truncated) })
	require.Error(t, err)
	assert.Zero(t, n)
}
