package core

import "errors"

var (
	ErrUnsupportedEvent    = errors.New("unsupported event")
	ErrLanguageNotDetected = errors.New("language not detected")
	ErrNoPatch             = errors.New("file has no patch")
	ErrFileNotFound        = errors.New("file not found")
	ErrEmptyReview         = errors.New("generated review is empty")
)
