package domain

import "errors"

var (
	ErrMissingImage      = errors.New("missing image")
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrDecodeFailed      = errors.New("image decode failed")
)
