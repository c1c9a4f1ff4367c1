package incremental_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/grain/internal/adapters/cache"
	"go.trai.ch/grain/internal/adapters/hash"
	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/engine/detect"
	"go.trai.ch/grain/internal/engine/incremental"
	"go.trai.ch/grain/internal/engine/units"
)

type nopLogger struct{}

func (nopLogger) Info(string) {}
func (nopLogger) Warn(string) {}
func (nopLogger) Error(error) {}

type fixture struct {
	engine  *incremental.Engine
	manager *units.Manager
	cache   *cache.Cache
	hasher  *hash.Hasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := hash.NewHasher()
	manager := units.NewManager()
	artifacts := cache.New(t.TempDir(), nopLogger{})
	engine := incremental.New(manager, detect.NewDetector(hasher), artifacts, hasher, nopLogger{}, t.TempDir())
	return &fixture{engine: engine, manager: manager, cache: artifacts, hasher: hasher}
}

// unit builds a CompilationUnit whose hash is derived from the given source
// lines, the way registration from a manifest would.
func (f *fixture) unit(path string, typ domain.UnitType, name string, start, end int, content string) *domain.CompilationUnit {
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	text := strings.Join(lines[start-1:end], "\n")
	h := f.hasher.HashContent(text)
	return &domain.CompilationUnit{
		ID:          domain.UnitID(path, start, end, h),
		FilePath:    domain.NewInternedString(path),
		StartLine:   start,
		EndLine:     end,
		Type:        typ,
		Name:        name,
		ContentHash: h,
	}
}

func pendingIDs(e *incremental.Engine) []string {
	var ids []string
	for _, u := range e.UnitsToCompile() {
		ids = append(ids, u.ID)
	}
	return ids
}

func TestEngine_FirstBuildMarksEverythingAdded(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	content := "import os\n\nx = 1\n"

	a := f.unit("app.py", domain.UnitTypeImport, "imports", 1, 1, content)
	b := f.unit("app.py", domain.UnitTypeStatement, "x", 3, 3, content)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{a, b}))

	records := f.engine.UpdateSource(path, content)
	require.Len(t, records, 2)
	for _, rec := range records {
		require.Equal(t, domain.UnitStateAdded, rec.ChangeType)
	}
	require.Equal(t, []string{a.ID, b.ID}, pendingIDs(f.engine))
}

func TestEngine_OnlyChangedUnitRecompiles(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	v1 := "def a():\n    return 1\n\ndef b():\n    return 2\n"

	ua := f.unit("app.py", domain.UnitTypeFunction, "a", 1, 2, v1)
	ub := f.unit("app.py", domain.UnitTypeFunction, "b", 4, 5, v1)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ua, ub}))

	f.engine.UpdateSource(path, v1)
	for _, u := range f.engine.UnitsToCompile() {
		f.engine.MarkCompiled(u.ID, "obj:"+u.Name)
	}
	require.Zero(t, f.engine.PendingCount())

	// Edit only the body of a.
	v2 := "def a():\n    return 42\n\ndef b():\n    return 2\n"
	records := f.engine.UpdateSource(path, v2)

	require.Len(t, records, 1)
	require.Equal(t, ua.ID, records[0].UnitID)
	require.Equal(t, domain.UnitStateModified, records[0].ChangeType)
	require.Equal(t, []string{ua.ID}, pendingIDs(f.engine))

	// b's artifact survives untouched.
	require.True(t, f.cache.IsValid(ub.ID, ub.ContentHash))
	require.False(t, f.cache.Has(ua.ID))
}

func TestEngine_DependentsBecomeAffected(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	v1 := "def f():\n    return 1\n\ndef e():\n    return f()\n"

	uf := f.unit("app.py", domain.UnitTypeFunction, "f", 1, 2, v1)
	ue := f.unit("app.py", domain.UnitTypeFunction, "e", 4, 5, v1)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{uf, ue}))
	f.manager.AddDependency(ue.ID, uf.ID)

	f.engine.UpdateSource(path, v1)
	for _, u := range f.engine.UnitsToCompile() {
		f.engine.MarkCompiled(u.ID, "obj:"+u.Name)
	}

	v2 := "def f():\n    return 99\n\ndef e():\n    return f()\n"
	records := f.engine.UpdateSource(path, v2)

	require.Len(t, records, 2)
	require.Equal(t, uf.ID, records[0].UnitID)
	require.Equal(t, domain.UnitStateModified, records[0].ChangeType)
	require.Equal(t, ue.ID, records[1].UnitID)
	require.Equal(t, domain.UnitStateAffected, records[1].ChangeType)

	// e's artifact was invalidated even though its text is unchanged.
	require.False(t, f.cache.Has(ue.ID))
}

func TestEngine_ChangeInsideFunctionRecompilesWholeFunction(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	v1 := "x = 1\n\ndef d():\n    y = 2\n    return y\n"

	ux := f.unit("app.py", domain.UnitTypeStatement, "x", 1, 1, v1)
	ud := f.unit("app.py", domain.UnitTypeFunction, "d", 3, 5, v1)
	uc := f.unit("app.py", domain.UnitTypeStatement, "c", 4, 4, v1)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ux, ud, uc}))

	f.engine.UpdateSource(path, v1)
	for _, u := range f.engine.UnitsToCompile() {
		f.engine.MarkCompiled(u.ID, "obj:"+u.Name)
	}

	// Edit the statement inside d's body.
	v2 := "x = 1\n\ndef d():\n    y = 3\n    return y\n"
	records := f.engine.UpdateSource(path, v2)

	byID := map[string]domain.UnitState{}
	for _, rec := range records {
		byID[rec.UnitID] = rec.ChangeType
	}
	require.Contains(t, byID, uc.ID)
	require.Contains(t, byID, ud.ID, "enclosing function must recompile")
	require.NotContains(t, byID, ux.ID)
	require.ElementsMatch(t, []string{uc.ID, ud.ID}, pendingIDs(f.engine))
}

func TestEngine_AffectedStatementExpandsToEnclosingFunction(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	v1 := "x = 1\n\ndef d():\n    y = x\n    return y\n"

	ux := f.unit("app.py", domain.UnitTypeStatement, "x", 1, 1, v1)
	ud := f.unit("app.py", domain.UnitTypeFunction, "d", 3, 5, v1)
	uc := f.unit("app.py", domain.UnitTypeStatement, "c", 4, 4, v1)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ux, ud, uc}))
	f.manager.AddDependency(uc.ID, ux.ID)

	f.engine.UpdateSource(path, v1)
	for _, u := range f.engine.UnitsToCompile() {
		f.engine.MarkCompiled(u.ID, "obj:"+u.Name)
	}

	// Only line 1 changes; d's own lines are untouched.
	v2 := "x = 2\n\ndef d():\n    y = x\n    return y\n"
	records := f.engine.UpdateSource(path, v2)

	byID := map[string]domain.UnitState{}
	for _, rec := range records {
		byID[rec.UnitID] = rec.ChangeType
	}
	require.Equal(t, domain.UnitStateModified, byID[ux.ID])
	require.Equal(t, domain.UnitStateAffected, byID[uc.ID])
	require.Equal(t, domain.UnitStateAffected, byID[ud.ID], "affected statement expands to enclosing function")
}

func TestEngine_StructuralUnitDoesNotExpandFurther(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	v1 := "class C:\n    def m(self):\n        return 1\n"

	ucls := f.unit("app.py", domain.UnitTypeClass, "C", 1, 3, v1)
	um := f.unit("app.py", domain.UnitTypeFunction, "m", 2, 3, v1)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ucls, um}))

	f.engine.UpdateSource(path, v1)
	for _, u := range f.engine.UnitsToCompile() {
		f.engine.MarkCompiled(u.ID, "obj:"+u.Name)
	}

	v2 := "class C:\n    def m(self):\n        return 2\n"
	f.engine.UpdateSource(path, v2)

	// Both overlap the changed line directly; the function being structural
	// must not drag the class in through expansion twice.
	ids := pendingIDs(f.engine)
	require.ElementsMatch(t, []string{ucls.ID, um.ID}, ids)
}

func TestEngine_UnchangedContentIsANoOp(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	content := "x = 1\n"

	ux := f.unit("app.py", domain.UnitTypeStatement, "x", 1, 1, content)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ux}))

	f.engine.UpdateSource(path, content)
	f.engine.MarkCompiled(ux.ID, "obj:x")

	records := f.engine.UpdateSource(path, content)
	require.Empty(t, records)
	require.Zero(t, f.engine.PendingCount())
}

func TestEngine_MarkCompiledUnknownUnitIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.engine.MarkCompiled("ghost", "out")
	require.Zero(t, f.engine.PendingCount())
}

func TestEngine_CombinedOutputFollowsLineOrder(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	content := "a = 1\nb = 2\n"

	ua := f.unit("app.py", domain.UnitTypeStatement, "a", 1, 1, content)
	ub := f.unit("app.py", domain.UnitTypeStatement, "b", 2, 2, content)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ub, ua}))

	f.engine.UpdateSource(path, content)
	f.engine.MarkCompiled(ub.ID, "obj:b")
	f.engine.MarkCompiled(ua.ID, "obj:a")

	require.Equal(t, "obj:a\nobj:b", f.engine.CombinedOutput(path))
}

func TestEngine_CombinedOutputSkipsStaleUnits(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	content := "a = 1\nb = 2\n"

	ua := f.unit("app.py", domain.UnitTypeStatement, "a", 1, 1, content)
	ub := f.unit("app.py", domain.UnitTypeStatement, "b", 2, 2, content)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ua, ub}))

	f.engine.UpdateSource(path, content)
	f.engine.MarkCompiled(ua.ID, "obj:a")
	// b never compiled.

	require.Equal(t, "obj:a", f.engine.CombinedOutput(path))
}

func TestEngine_UnitContent(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	content := "def a():\n    return 1\n\nx = 2\n"

	ua := f.unit("app.py", domain.UnitTypeFunction, "a", 1, 2, content)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ua}))
	f.engine.UpdateSource(path, content)

	text, ok := f.engine.UnitContent(ua.ID)
	require.True(t, ok)
	require.Equal(t, "def a():\n    return 1", text)

	_, ok = f.engine.UnitContent("ghost")
	require.False(t, ok)
}

func TestEngine_ReregisterInvalidatesRemovedUnits(t *testing.T) {
	f := newFixture(t)
	path := domain.NewInternedString("app.py")
	v1 := "a = 1\nb = 2\n"

	ua := f.unit("app.py", domain.UnitTypeStatement, "a", 1, 1, v1)
	ub := f.unit("app.py", domain.UnitTypeStatement, "b", 2, 2, v1)
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{ua, ub}))

	f.engine.UpdateSource(path, v1)
	f.engine.MarkCompiled(ua.ID, "obj:a")
	f.engine.MarkCompiled(ub.ID, "obj:b")

	// b disappears from the manifest.
	uaCopy := ua.Clone()
	require.NoError(t, f.engine.RegisterUnits(path, []*domain.CompilationUnit{&uaCopy}))
	require.False(t, f.cache.Has(ub.ID))
	require.True(t, f.cache.Has(ua.ID))
}

func TestEngine_SaveAndLoadState(t *testing.T) {
	hasher := hash.NewHasher()
	stateDir := t.TempDir()
	cacheDir := t.TempDir()

	manager := units.NewManager()
	artifacts := cache.New(cacheDir, nopLogger{})
	engine := incremental.New(manager, detect.NewDetector(hasher), artifacts, hasher, nopLogger{}, stateDir)

	path := domain.NewInternedString("app.py")
	content := "x = 1\n"
	h := hasher.HashContent("x = 1")
	ux := &domain.CompilationUnit{
		ID:          domain.UnitID("app.py", 1, 1, h),
		FilePath:    path,
		StartLine:   1,
		EndLine:     1,
		Type:        domain.UnitTypeStatement,
		Name:        "x",
		ContentHash: h,
	}
	require.NoError(t, engine.RegisterUnits(path, []*domain.CompilationUnit{ux}))
	engine.UpdateSource(path, content)
	engine.MarkCompiled(ux.ID, "obj:x")
	require.NoError(t, engine.SaveState())

	restoredManager := units.NewManager()
	restoredCache := cache.New(cacheDir, nopLogger{})
	restored := incremental.New(restoredManager, detect.NewDetector(hasher), restoredCache, hasher, nopLogger{}, stateDir)
	require.NoError(t, restored.LoadState())

	require.Equal(t, 1, restoredManager.Len())
	got, ok := restoredManager.Get(ux.ID)
	require.True(t, ok)
	require.Equal(t, h, got.ContentHash)
	require.True(t, restoredCache.IsValid(ux.ID, h))
}

func TestEngine_LoadStateMissingFileIsCleanStart(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.LoadState())
	require.Zero(t, f.manager.Len())
}

func TestEngine_LoadStateCorruptFileDegrades(t *testing.T) {
	hasher := hash.NewHasher()
	stateDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(stateDir, "grain_state.dat"), []byte("not a count\n"), 0o644))

	manager := units.NewManager()
	engine := incremental.New(manager, detect.NewDetector(hasher), cache.New(t.TempDir(), nopLogger{}), hasher, nopLogger{}, stateDir)

	require.NoError(t, engine.LoadState())
	require.Zero(t, manager.Len())
}
