// Package ports defines the core interfaces for the application.
package ports

// ContentHasher computes the content fingerprints the engine works with.
//
// Implementations use a fast non-cryptographic 64-bit hash. Collisions are
// accepted as a performance/correctness tradeoff: a colliding edit would be
// reported as unchanged. Do not rely on these hashes for adversarial input.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type ContentHasher interface {
	// HashContent hashes an arbitrary blob and returns a 16-character hex digest.
	HashContent(content string) string

	// HashLine hashes a single source line after trimming leading and trailing
	// whitespace, so whitespace-only edits do not register as changes. Lines
	// that are empty after trimming hash to a fixed sentinel.
	HashLine(line string) string
}
