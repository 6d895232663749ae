// Package ledger computes the content fingerprints that all drift
// detection is built on. Digests have the fixed shape "sha256:<hex>".
package ledger

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"
)

// Algorithm is the digest algorithm name embedded in every fingerprint.
const Algorithm = "sha256"

// Fingerprint returns the content digest for a byte slice.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", Algorithm, sum)
}

// HashFile computes the fingerprint of a file without loading it whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("cannot hash %s: %w", path, err)
	}
	return fmt.Sprintf("%s:%x", Algorithm, h.Sum(nil)), nil
}

// Valid reports whether a digest string has the expected shape.
func Valid(digest string) bool {
	prefix := Algorithm + ":"
	if !strings.HasPrefix(digest, prefix) {
		return false
	}
	hex := digest[len(prefix):]
	if len(hex) != sha256.Size*2 {
		return false
	}
	for _, c := range hex {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
