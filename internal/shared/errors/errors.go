package errors

import "errors"

// Domain errors
var (
	// Scan errors
	ErrScanNotFound  = errors.New("scan not found")
	ErrInvalidDomain = errors.New("invalid domain name")
	ErrEmptyDomain   = errors.New("domain cannot be empty")

	// Signature table errors
	ErrAmbiguousSignature = errors.New("signature table contains overlapping CNAME markers")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
