// Package detect implements change detection between file revisions: snapshot
// fingerprinting, LCS-based changed-line localization, and unit-level diffing.
package detect

import (
	"slices"
	"strings"
	"time"

	"go.trai.ch/grain/internal/core/domain"
	"go.trai.ch/grain/internal/core/ports"
)

// Detector turns two snapshots of the same file into the set of changed line
// numbers and unit-level change records.
type Detector struct {
	hasher ports.ContentHasher
}

// NewDetector creates a Detector using the given content hasher.
func NewDetector(hasher ports.ContentHasher) *Detector {
	return &Detector{hasher: hasher}
}

// Snapshot fingerprints a file revision: one hash for the whole content and
// one per line, whitespace-trimmed so formatting-only edits do not register.
func (d *Detector) Snapshot(path, content string) *domain.Snapshot {
	lines := splitLines(content)
	lineHashes := make([]string, len(lines))
	for i, line := range lines {
		lineHashes[i] = d.hasher.HashLine(line)
	}

	return &domain.Snapshot{
		FilePath:    domain.NewInternedString(path),
		ContentHash: d.hasher.HashContent(content),
		LineHashes:  lineHashes,
		Units:       make(map[string]domain.CompilationUnit),
		Timestamp:   domain.TimestampMillis(time.Now()),
	}
}

// ChangedLines reports the 1-based line numbers of the new snapshot that are
// not part of the LCS alignment with the old snapshot. Identical snapshots
// always produce an empty result.
func (d *Detector) ChangedLines(oldSnap, newSnap *domain.Snapshot) []int {
	aligned := make(map[int]bool, len(newSnap.LineHashes))
	for _, pair := range longestCommonSubsequence(oldSnap.LineHashes, newSnap.LineHashes) {
		aligned[pair.newIdx] = true
	}

	var changed []int
	for i := range newSnap.LineHashes {
		if !aligned[i] {
			changed = append(changed, i+1)
		}
	}
	return changed
}

// DetectUnitChanges diffs the unit sets of two snapshots by ID: IDs only in
// the old snapshot are deleted, only in the new are added, present in both
// with differing content hashes are modified. Unchanged units are omitted.
// Records are ordered deleted, added, modified, each sorted by unit ID.
func (d *Detector) DetectUnitChanges(oldSnap, newSnap *domain.Snapshot) []domain.ChangeRecord {
	var records []domain.ChangeRecord

	for _, id := range sortedIDs(oldSnap.Units) {
		if _, ok := newSnap.Units[id]; ok {
			continue
		}
		oldUnit := oldSnap.Units[id]
		records = append(records, domain.ChangeRecord{
			UnitID:     id,
			ChangeType: domain.UnitStateDeleted,
			OldStart:   oldUnit.StartLine,
			OldEnd:     oldUnit.EndLine,
			Reason:     "unit deleted",
		})
	}

	var modified []domain.ChangeRecord
	for _, id := range sortedIDs(newSnap.Units) {
		newUnit := newSnap.Units[id]
		oldUnit, ok := oldSnap.Units[id]
		if !ok {
			records = append(records, domain.ChangeRecord{
				UnitID:     id,
				ChangeType: domain.UnitStateAdded,
				NewStart:   newUnit.StartLine,
				NewEnd:     newUnit.EndLine,
				Reason:     "unit added",
			})
			continue
		}
		if oldUnit.ContentHash != newUnit.ContentHash {
			modified = append(modified, domain.ChangeRecord{
				UnitID:     id,
				ChangeType: domain.UnitStateModified,
				OldStart:   oldUnit.StartLine,
				OldEnd:     oldUnit.EndLine,
				NewStart:   newUnit.StartLine,
				NewEnd:     newUnit.EndLine,
				Reason:     "content changed",
			})
		}
	}

	return append(records, modified...)
}

func sortedIDs(units map[string]domain.CompilationUnit) []string {
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// splitLines splits content into lines without a phantom trailing line for
// content ending in a newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
