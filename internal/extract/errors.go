package extract

import "errors"

var (
	// ErrUnreadablePDF is returned when no reader can open the file as a PDF.
	ErrUnreadablePDF = errors.New("unreadable pdf")
	// ErrInsufficientText is returned when a document yields less text than the configured minimum.
	ErrInsufficientText = errors.New("insufficient text")
	// ErrOCRUnavailable is returned by the OCR backend when the binary was built without OCR support.
	ErrOCRUnavailable = errors.New("ocr unavailable")
	// ErrBackendUnavailable is returned by a backend that cannot serve the current source.
	ErrBackendUnavailable = errors.New("backend unavailable")
)
