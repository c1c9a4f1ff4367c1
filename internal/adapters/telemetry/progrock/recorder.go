// Package progrock provides the Progrock implementation of the tracer
// adapter.
package progrock

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/grain/internal/core/ports"
)

// Recorder implements ports.Tracer using the progrock library. Each span
// becomes a vertex on the tape, so a wired-up UI can render per-unit
// compilation progress.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a new Recorder with a default tape.
func New() ports.Tracer {
	tape := progrock.NewTape()
	return NewRecorder(tape)
}

// NewRecorder creates a new Recorder with the given writer.
func NewRecorder(w progrock.Writer) *Recorder {
	rec := progrock.NewRecorder(w)
	return &Recorder{
		w:   w,
		rec: rec,
	}
}

// Start begins recording a new vertex for the named operation.
func (r *Recorder) Start(ctx context.Context, name string, _ ...ports.SpanOption) (context.Context, ports.Span) {
	d := digest.FromString(name)
	v := r.rec.Vertex(d, name)
	return ctx, &Span{vertex: v}
}

// EmitPlan records the set of units queued for compilation as a single
// vertex so the pending work is visible before any compile starts.
func (r *Recorder) EmitPlan(_ context.Context, unitIDs []string) {
	d := digest.FromString(fmt.Sprintf("plan:%d", len(unitIDs)))
	v := r.rec.Vertex(d, fmt.Sprintf("plan (%d units)", len(unitIDs)))
	for _, id := range unitIDs {
		_, _ = fmt.Fprintln(v.Stdout(), id)
	}
	v.Done(nil)
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
