// Package hash implements the content hasher on xxhash.
package hash

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/grain/internal/core/ports"
)

var _ ports.ContentHasher = (*Hasher)(nil)

// emptyLineHash is the fixed sentinel for lines that are empty after
// trimming, so runs of blank lines align cheaply in the diff.
const emptyLineHash = "empty"

// Hasher implements ports.ContentHasher using 64-bit xxhash. The hash is fast
// and non-cryptographic; colliding inputs would be treated as unchanged, which
// is an accepted tradeoff for trusted source trees.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// HashContent hashes an arbitrary blob to a 16-character hex digest.
func (h *Hasher) HashContent(content string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(content))
}

// HashLine hashes a line after trimming leading/trailing whitespace, so
// indentation and trailing-space edits do not register as changes.
func (h *Hasher) HashLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return emptyLineHash
	}
	return h.HashContent(trimmed)
}
