package gonarrate

import "errors"

var (
	// ErrNotFound is returned when a document ID does not exist.
	ErrNotFound = errors.New("gonarrate: not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("gonarrate: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("gonarrate: parsing failed")

	// ErrStoreClosed is returned when operating on a closed engine.
	ErrStoreClosed = errors.New("gonarrate: store is closed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("gonarrate: invalid configuration")

	// ErrNoStore is returned by operations that need the store when it is
	// disabled (StorageDir "none").
	ErrNoStore = errors.New("gonarrate: storage disabled")

	// ErrLexiconLoad is returned when a lexicon override file cannot be
	// read or does not fit the built-in taxonomies.
	ErrLexiconLoad = errors.New("gonarrate: loading lexicons failed")
)
