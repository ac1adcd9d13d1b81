package pattern

import (
	"errors"
	"fmt"

	"github.com/born-ml/relay/internal/graph"
)

// Configuration errors reported when a table is built.
var (
	ErrDuplicateName    = errors.New("duplicate composite name")
	ErrMalformedPattern = errors.New("malformed pattern")
)

// Check inspects a structurally matched fragment and decides whether
// merging it is legal for the backend (shape and dtype constraints,
// typically). A nil Check accepts every structural match.
type Check func(g *graph.Graph, m *Match) bool

// Entry associates a composite name with a pattern and a validation
// predicate.
type Entry struct {
	Name    string
	Pattern MatchNode
	Check   Check
}

// Table is an ordered collection of pattern entries. Order is the
// matching precedence: the first entry whose pattern matches a node
// wins, so more specific composites must be declared before general
// ones that would also match.
type Table struct {
	entries []Entry
}

// NewTable validates the entries and builds a table. Validation failures
// reject the whole call; nothing is retained from a failed build.
func NewTable(entries ...Entry) (*Table, error) {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("entry %d: empty composite name: %w", i, ErrMalformedPattern)
		}
		if seen[e.Name] {
			return nil, fmt.Errorf("entry %q: %w", e.Name, ErrDuplicateName)
		}
		seen[e.Name] = true
		if err := validate(e.Pattern, true); err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Name, err)
		}
	}
	return &Table{entries: append([]Entry(nil), entries...)}, nil
}

// Entries returns the entries in declaration order.
func (t *Table) Entries() []Entry { return t.entries }

// validate walks a pattern tree. The root must name an operator (bare
// wildcard or constant roots would match everything and are treated as
// configuration errors).
func validate(p MatchNode, root bool) error {
	switch n := p.(type) {
	case nil:
		return fmt.Errorf("nil pattern node: %w", ErrMalformedPattern)
	case *OpMatch:
		if n.OpName == "" {
			return fmt.Errorf("empty operator name: %w", ErrMalformedPattern)
		}
		for _, arg := range n.Args {
			if err := validate(arg, false); err != nil {
				return err
			}
		}
		return nil
	case *OptionalMatch:
		if n.Inner == nil || len(n.Inner.Args) == 0 {
			return fmt.Errorf("optional wrapper without continuation: %w", ErrMalformedPattern)
		}
		if root {
			// When the optional consumer is absent, its first argument
			// becomes the effective root and must still name an operator.
			switch n.Inner.Args[0].(type) {
			case *OpMatch, *OptionalMatch:
			default:
				return fmt.Errorf("optional fallback root must match an operator: %w", ErrMalformedPattern)
			}
		}
		return validate(n.Inner, root)
	case *WildcardMatch, *ConstantMatch:
		if root {
			return fmt.Errorf("pattern root must match an operator: %w", ErrMalformedPattern)
		}
		return nil
	default:
		return fmt.Errorf("unknown pattern node %T: %w", p, ErrMalformedPattern)
	}
}
