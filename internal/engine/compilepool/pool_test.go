package compilepool_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/grain/internal/adapters/cache"
	"go.trai.ch/grain/internal/adapters/hash"
	"go.trai.ch/grain/internal/adapters/telemetry"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/engine/compilepool"
	"go.trai.ch/grain/internal/engine/detect"
	"go.trai.ch/grain/internal/engine/incremental"
	"go.trai.ch/grain/internal/engine/units"
	"go.trai.ch/zerr"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

// fakeCompiler records which units it was asked to compile.
type fakeCompiler struct {
	mu       sync.Mutex
	compiled []string
	fail     map[string]error
}

func (c *fakeCompiler) Compile(_ context.Context, unit *domain.CompilationUnit, content string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err, ok := c.fail[unit.ID]; ok {
		return "", err
	}
	c.compiled = append(c.compiled, unit.ID)
	return "obj:" + content, nil
}

type harness struct {
	engine    *incremental.Engine
	artifacts *cache.Cache
	compiler  *fakeCompiler
	hasher    *hash.Hasher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	hasher := hash.NewHasher()
	artifacts := cache.New(t.TempDir(), nopLogger{})
	engine := incremental.New(units.NewManager(), detect.NewDetector(hasher), artifacts, hasher, nopLogger{}, t.TempDir())
	return &harness{
		engine:    engine,
		artifacts: artifacts,
		compiler:  &fakeCompiler{fail: map[string]error{}},
		hasher:    hasher,
	}
}

func (h *harness) pool(workers int) *compilepool.Pool {
	return compilepool.New(h.engine, h.compiler, telemetry.NewNoOpTracer(), h.artifacts, workers)
}

func (h *harness) register(t *testing.T, path, content string, specs ...[3]int) []string {
	t.Helper()
	p := domain.NewInternedString(path)
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	var ids []string
	var us []*domain.CompilationUnit
	for _, s := range specs {
		start, end := s[0], s[1]
		text := strings.Join(lines[start-1:end], "\n")
		ch := h.hasher.HashContent(text)
		u := &domain.CompilationUnit{
			ID:          domain.UnitID(path, start, end, ch),
			FilePath:    p,
			StartLine:   start,
			EndLine:     end,
			Type:        domain.UnitType(s[2]),
			ContentHash: ch,
		}
		us = append(us, u)
		ids = append(ids, u.ID)
	}
	require.NoError(t, h.engine.RegisterUnits(p, us))
	h.engine.UpdateSource(p, content)
	return ids
}

func TestPool_CompilesAllPending(t *testing.T) {
	h := newHarness(t)
	content := "a = 1\nb = 2\nc = 3\n"
	ids := h.register(t, "app.py", content,
		[3]int{1, 1, int(domain.UnitTypeStatement)},
		[3]int{2, 2, int(domain.UnitTypeStatement)},
		[3]int{3, 3, int(domain.UnitTypeStatement)},
	)

	require.NoError(t, h.pool(2).Run(context.Background()))

	require.ElementsMatch(t, ids, h.compiler.compiled)
	require.Zero(t, h.engine.PendingCount())
	require.Equal(t, "obj:a = 1\nobj:b = 2\nobj:c = 3", h.engine.CombinedOutput(domain.NewInternedString("app.py")))
}

func TestPool_EmptyPendingIsANoOp(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.pool(1).Run(context.Background()))
	require.Empty(t, h.compiler.compiled)
}

func TestPool_ReusesValidCacheEntries(t *testing.T) {
	h := newHarness(t)
	content := "a = 1\n"
	ids := h.register(t, "app.py", content, [3]int{1, 1, int(domain.UnitTypeStatement)})

	// Seed the cache as a previous run would have.
	pending := h.engine.UnitsToCompile()
	require.Len(t, pending, 1)
	h.artifacts.Put(ids[0], "obj:from-cache", pending[0].ContentHash)

	require.NoError(t, h.pool(1).Run(context.Background()))

	require.Empty(t, h.compiler.compiled, "hash-valid entries must not recompile")
	require.Zero(t, h.engine.PendingCount())
	require.Equal(t, "obj:from-cache", h.engine.CombinedOutput(domain.NewInternedString("app.py")))
}

func TestPool_FailedUnitStaysPending(t *testing.T) {
	h := newHarness(t)
	content := "a = 1\n"
	ids := h.register(t, "app.py", content, [3]int{1, 1, int(domain.UnitTypeStatement)})

	wantErr := zerr.New("syntax error")
	h.compiler.fail[ids[0]] = wantErr

	err := h.pool(1).Run(context.Background())
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 1, h.engine.PendingCount())
}

func TestPool_SingleWorkerKeepsOrder(t *testing.T) {
	h := newHarness(t)
	content := "a = 1\nb = 2\n"
	ids := h.register(t, "app.py", content,
		[3]int{1, 1, int(domain.UnitTypeStatement)},
		[3]int{2, 2, int(domain.UnitTypeStatement)},
	)

	require.NoError(t, h.pool(1).Run(context.Background()))
	require.Equal(t, ids, h.compiler.compiled)
}
