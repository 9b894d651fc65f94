package service

import "errors"

var (
	ErrNotFound             = errors.New("document not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNoFile               = errors.New("no file uploaded")
	ErrUnsupportedType      = errors.New("unsupported type: only PDF files are allowed")
	ErrTooLarge             = errors.New("file too large")
	ErrExtractionInProgress = errors.New("extraction already in progress")
	ErrExtractionFailed     = errors.New("extraction failed")
	ErrDownloadUnsupported  = errors.New("download links are not supported by the configured object store")
)
