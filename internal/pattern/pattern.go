// Package pattern describes composite operator patterns and matches
// them against graph fragments. A pattern is a tree of match nodes: the
// root names an operator, arguments are wildcards, constants or nested
// patterns, and an optional wrapper lets one pattern cover both "op X
// alone" and "op X immediately feeding op Y".
package pattern

// MatchNode is one node of a pattern tree. Implementations are the
// closed set OpMatch, WildcardMatch, ConstantMatch and OptionalMatch,
// so matchers can switch exhaustively.
type MatchNode interface {
	matchNode()
}

// OpMatch matches an operator application by name. Args are matched
// against the node's operands positionally and must cover all of them.
type OpMatch struct {
	OpName string
	Args   []MatchNode
}

// WildcardMatch matches any node without consuming it.
type WildcardMatch struct{}

// ConstantMatch matches a constant node without consuming it.
type ConstantMatch struct{}

// OptionalMatch matches Inner if it is present in the graph, and
// otherwise falls back to matching Inner's first argument, the chain
// built before the optional continuation was attached.
type OptionalMatch struct {
	Inner *OpMatch
}

func (*OpMatch) matchNode()       {}
func (*WildcardMatch) matchNode() {}
func (*ConstantMatch) matchNode() {}
func (*OptionalMatch) matchNode() {}

// Op builds a pattern node matching the named operator.
func Op(name string, args ...MatchNode) *OpMatch {
	return &OpMatch{OpName: name, Args: args}
}

// Wildcard builds a pattern node matching anything.
func Wildcard() MatchNode { return &WildcardMatch{} }

// IsConstant builds a pattern node matching a constant.
func IsConstant() MatchNode { return &ConstantMatch{} }

// Optional extends prev with an optional consumer op: the result matches
// "prev feeding name" when that consumer exists, and just prev when it
// does not. Extra arguments follow prev in the consumer's operand list.
func Optional(prev MatchNode, name string, extra ...MatchNode) MatchNode {
	args := append([]MatchNode{prev}, extra...)
	return &OptionalMatch{Inner: &OpMatch{OpName: name, Args: args}}
}
