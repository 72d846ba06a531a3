package ocr

import "errors"

// ErrImageProcessing is returned when no usable variant can be produced
// from the input bytes (corrupt or undecodable image).
var ErrImageProcessing = errors.New("image processing failed")

// ErrRecognition is returned when every recognition backend errored.
var ErrRecognition = errors.New("recognition unavailable")
