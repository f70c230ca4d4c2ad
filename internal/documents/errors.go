package documents

import "errors"

var (
	// ErrNotFound is returned by repositories for a missing row.
	ErrNotFound = errors.New("not found")

	ErrDocumentNotFound    = errors.New("document not found")
	ErrPropertyNotFound    = errors.New("property not found")
	ErrPropertyRequired    = errors.New("property id is required")
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrInvalidStatus       = errors.New("invalid document status")
	ErrEmptyFile           = errors.New("file is empty")
	ErrPersistence         = errors.New("failed to persist document")
	ErrProcessing          = errors.New("failed to process documents")
	ErrStore               = errors.New("object store failure")
	ErrReconcile           = errors.New("failed to reconcile property status")
)
