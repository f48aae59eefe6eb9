package config

import "errors"

// Sentinel errors returned (wrapped) by the loader. Match with errors.Is.
var (
	// ErrMissingSource means a required configuration document was not found.
	ErrMissingSource = errors.New("configuration source missing")

	// ErrParseFailure means a document could not be parsed.
	ErrParseFailure = errors.New("configuration parse failure")

	// ErrMissingField means a required key is absent after all layers merged.
	ErrMissingField = errors.New("configuration field missing")

	// ErrTypeMismatch means a value could not be decoded into its field type.
	ErrTypeMismatch = errors.New("configuration type mismatch")

	// ErrInvalidEnvironment means the environment selector named an unknown environment.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidValue means a decoded value failed validation.
	ErrInvalidValue = errors.New("invalid configuration value")
)
