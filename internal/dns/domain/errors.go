package domain

import "errors"

// Sentinel errors. Callers wrap them with context and match with errors.Is.
var (
	// ErrMalformedName is returned when a wire-format name cannot be decoded.
	ErrMalformedName = errors.New("malformed name")

	// ErrInvalidName is returned when a dotted name cannot be encoded.
	ErrInvalidName = errors.New("invalid name")

	// ErrMalformedMessage is returned when a datagram header or question cannot be parsed.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnsupportedQuestion marks a question other than A/IN.
	ErrUnsupportedQuestion = errors.New("unsupported question")

	// ErrEncodingOverflow is returned when not even the header and question fit the datagram capacity.
	ErrEncodingOverflow = errors.New("encoding overflow")
)
