package ocr

import "errors"

var (
	// ErrUnsupportedFormat is returned when the declared media type is not an allowed image type.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrCorruptImage is returned when the image bytes cannot be decoded.
	ErrCorruptImage = errors.New("corrupt image")
	// ErrRecognition is returned when every recognition attempt failed.
	ErrRecognition = errors.New("recognition service error")
	// ErrNoText is returned when recognition succeeded but found no text in any orientation.
	ErrNoText = errors.New("no text detected")
	// ErrTimeout is returned when the request deadline expired before recognition finished.
	ErrTimeout = errors.New("recognition timed out")
)
