package ingest

import "errors"

var (
	// ErrResetDeclined is returned when the operator does not confirm a reset.
	ErrResetDeclined = errors.New("reset not confirmed")
	// ErrNoFiles is returned when no PDF matches the selection.
	ErrNoFiles = errors.New("no PDF files to process")
)
