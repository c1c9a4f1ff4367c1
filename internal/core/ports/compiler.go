package ports

import (
	"context"

	"go.trai.ch/grain/internal/core/domain"
)

// UnitCompiler is the boundary to the external compiler driver. The engine
// hands it unit records and receives opaque artifacts back; it never
// interprets the output.
//
//go:generate go run go.uber.org/mock/mockgen -source=compiler.go -destination=mocks/mock_compiler.go -package=mocks
type UnitCompiler interface {
	// Compile produces the artifact for a single unit given its source text.
	// The returned string is treated as an uninterpreted blob.
	Compile(ctx context.Context, unit *domain.CompilationUnit, content string) (string, error)
}
