// Package knol derives stable identifiers and fingerprints from deck content.
package knol

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// Normalize cleans each value and joins them. It trims whitespace,
// lowercases and normalizes line endings for each value before joining.
func Normalize(values ...string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		p := strings.ToLower(v)
		p = strings.TrimSpace(p)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		parts[i] = p
	}

	// We join with a newline to ensure separation between fields,
	// preventing accidental joining of words. e.g. "question" and "answer"
	// becoming "questionanswer".
	return strings.Join(parts, "\n")
}

// Fingerprint normalizes the values of the named fields, in the given order,
// and returns their SHA-256 hash as a hex string. Missing fields hash as
// empty values.
func Fingerprint(content map[string]string, fields []string) string {
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = content[f]
	}
	sum := sha256.Sum256([]byte(Normalize(values...)))
	return fmt.Sprintf("%x", sum)
}

// NumericID maps a string identifier to a positive int64, for exporters that
// need numeric ids. It is not a security hash; distinct ids may collide, but
// only with the odds of a 63-bit hash.
func NumericID(id string) int64 {
	sum := sha256.Sum256([]byte(id))
	n := int64(binary.BigEndian.Uint64(sum[:8]) & math.MaxInt64)
	if n == 0 {
		return 1
	}
	return n
}
