package registry

import "errors"

// Sentinel errors returned by registry operations. The API layer maps these
// to HTTP statuses; everything else is a 500.
var (
	ErrNotFound           = errors.New("not found")
	ErrSlugTaken          = errors.New("slug already taken")
	ErrMissingField       = errors.New("missing required field")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidSemver      = errors.New("version number is not valid semver")
	ErrUnrecognizedImage  = errors.New("unrecognized image format")
	ErrVerificationFailed = errors.New("artifact failed verification")
	ErrNotAuthorized      = errors.New("not authorized")
)
