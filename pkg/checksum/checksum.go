// Package checksum provides the content-identifier hashing used throughout the
// registry. Uploaded artifacts and gallery images are stored under their SHA-1
// digest, which makes the blob store content-addressed: byte-identical payloads
// always map to the same key, so duplicate uploads never store a second copy.
// SHA-1 here is a stable fingerprint and deduplication key, not a
// collision-resistant security primitive. SHA-256 helpers are kept alongside
// for integrity checks that are not part of the blob keyspace.
package checksum

import (
	"crypto/sha1" // #nosec G505 -- content addressing, not signature verification
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// SHA1Hex returns the lowercase hex-encoded SHA-1 digest of data.
// The result is always 40 characters and the function never fails.
func SHA1Hex(data []byte) string {
	sum := sha1.Sum(data) // #nosec G401
	return hex.EncodeToString(sum[:])
}

// SHA256Hex returns the lowercase hex-encoded SHA-256 digest of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CalculateSHA256 calculates the SHA-256 checksum of data from a reader.
func CalculateSHA256(reader io.Reader) (string, error) {
	hasher := sha256.New()

	if _, err := io.Copy(hasher, reader); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// VerifySHA256 verifies that the checksum of data matches the expected checksum.
func VerifySHA256(reader io.Reader, expectedChecksum string) (bool, error) {
	actualChecksum, err := CalculateSHA256(reader)
	if err != nil {
		return false, err
	}

	return actualChecksum == expectedChecksum, nil
}
