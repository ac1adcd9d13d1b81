// Package partition orchestrates the offload pipeline: constant
// binding, type inference, composite merging, target annotation and the
// final graph split, in that strict order. Each stage consumes what the
// previous stage annotated, so no stage is skipped or reordered.
package partition

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/born-ml/relay/internal/graph"
	"github.com/born-ml/relay/internal/pass"
	"github.com/born-ml/relay/internal/pattern"
	"github.com/born-ml/relay/internal/registry"
)

// ErrDuplicateTable is reported when a backend registers two pattern
// tables in one session.
var ErrDuplicateTable = errors.New("pattern table already registered")

// Partitioner bundles the per-session configuration: the operator
// support registry and one pattern table per backend. Build it during
// single-threaded setup; afterwards it is read-only and may be shared
// by concurrent Partition calls on distinct graphs.
type Partitioner struct {
	reg    *registry.Registry
	tables map[string]*pattern.Table
}

// New creates a partitioner over a populated registry.
func New(reg *registry.Registry) *Partitioner {
	return &Partitioner{reg: reg, tables: make(map[string]*pattern.Table)}
}

// RegisterPatternTable attaches a backend's composite pattern table.
// A backend gets at most one table per session.
func (p *Partitioner) RegisterPatternTable(backend string, table *pattern.Table) error {
	if _, ok := p.tables[backend]; ok {
		return fmt.Errorf("backend %q: %w", backend, ErrDuplicateTable)
	}
	p.tables[backend] = table
	return nil
}

// PartitionForBackend runs the pipeline and returns the partitioned
// program. The caller's graph is never mutated: the pipeline works on a
// private clone, so a failing stage leaves the original untouched. A
// graph is mutated in place across stages only within that clone, which
// is why one invocation owns it exclusively for the duration.
func (p *Partitioner) PartitionForBackend(g *graph.Graph, backend string, consts map[string]*graph.Tensor) (*graph.Program, error) {
	log := logrus.WithField("backend", backend)
	work := g.Clone()

	if len(consts) > 0 {
		var err error
		work, err = pass.BindConstants(work, consts)
		if err != nil {
			return nil, fmt.Errorf("bind constants: %w", err)
		}
		log.Debugf("bound %d constants", len(consts))
	}

	work, err := pass.InferTypes(work)
	if err != nil {
		return nil, fmt.Errorf("infer types: %w", err)
	}

	before := work.NumNodes()
	work, err = pass.MergeComposite(work, p.tables[backend])
	if err != nil {
		return nil, fmt.Errorf("merge composite: %w", err)
	}
	log.Debugf("composite merge: %d nodes -> %d", before, work.NumNodes())

	work, err = pass.AnnotateTarget(work, backend, p.reg)
	if err != nil {
		return nil, fmt.Errorf("annotate target: %w", err)
	}

	prog, err := pass.PartitionGraph(work, backend)
	if err != nil {
		return nil, fmt.Errorf("partition graph: %w", err)
	}
	log.Debugf("extracted %d regions", len(prog.Functions))
	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		logrus.Tracef("partitioned graph: %s", prog.Main.DumpGraphviz())
	}
	return prog, nil
}
