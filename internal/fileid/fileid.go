// Package fileid derives stable identifiers for uploaded content and inbox files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const (
	prefix        = "file:"
	contentPrefix = "sha256:"
)

// ContentHash returns the SHA-256 digest of content. Audit records store this
// instead of the document itself.
func ContentHash(content []byte) string {
	hash := sha256.Sum256(content)
	return contentPrefix + hex.EncodeToString(hash[:])
}

// SourceID returns a stable ID for the given absolute path. Same path always
// yields the same ID. Logs use it in place of file names, which often carry
// patient names.
func SourceID(absolutePath string) string {
	normalized := filepath.Clean(absolutePath)
	hash := sha256.Sum256([]byte(normalized))
	return prefix + hex.EncodeToString(hash[:])
}
