package registry

import "bytes"

// Verifier checks uploaded artifact bytes before anything is written. A
// failed verification rejects the upload with no blob and no rows.
type Verifier interface {
	Verify(data []byte) bool
}

// ZipVerifier accepts zip-framed artifacts (jar files are zips). Only the
// container framing is checked, not the archive contents.
type ZipVerifier struct{}

var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// Verify reports whether data starts with the zip local-file-header magic
func (ZipVerifier) Verify(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// AcceptAllVerifier performs no artifact checks. Used where deployments host
// artifact types with no common container format.
type AcceptAllVerifier struct{}

// Verify always reports success
func (AcceptAllVerifier) Verify([]byte) bool { return true }
