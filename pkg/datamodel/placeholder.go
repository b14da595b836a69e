// Package datamodel holds the declarative join-graph types shared by the
// Matchmaker and FastProp: Placeholder (the data model tree), Match,
// Condition, and AbstractFeature (§3).
package datamodel

import "fastprop/pkg/errs"

// Relationship names the cardinality of a placeholder edge.
type Relationship int

const (
	OneToOne Relationship = iota
	OneToMany
	ManyToOne
	ManyToMany
	Propositionalization
)

func (r Relationship) String() string {
	switch r {
	case OneToOne:
		return "one-to-one"
	case OneToMany:
		return "one-to-many"
	case ManyToOne:
		return "many-to-one"
	case ManyToMany:
		return "many-to-many"
	case Propositionalization:
		return "propositionalization"
	default:
		return "unknown"
	}
}

// JoinSpec is the per-child quintuple of a Placeholder edge: the join keys
// and time stamps used on both sides, the relationship cardinality, and the
// memory/horizon lag window (§3).
type JoinSpec struct {
	JoinKeysUsed             []string
	OtherJoinKeysUsed        []string
	TimeStampsUsed           []string
	OtherTimeStampsUsed      []string
	UpperTimeStampsUsed      []string
	AllowLaggedTargets       bool
	PropositionalizationFlag bool
	Relationship             Relationship
	Memory                   float64 // >= 0; +Inf means unbounded
	Horizon                  float64 // >= 0
}

// Placeholder is a tree node naming a relation, with one JoinSpec per child
// (§3). Children and JoinSpecs are parallel vectors; NewPlaceholder
// enforces the length-equality invariant at construction.
type Placeholder struct {
	Name      string
	Children  []*Placeholder
	JoinSpecs []JoinSpec
}

// NewPlaceholder validates the child-parallel-vector invariant.
func NewPlaceholder(name string, children []*Placeholder, joinSpecs []JoinSpec) (*Placeholder, error) {
	if len(children) != len(joinSpecs) {
		return nil, errs.New(errs.UserInput, "PLACEHOLDER_ARITY_MISMATCH",
			"children and join specs must have equal length")
	}
	return &Placeholder{Name: name, Children: children, JoinSpecs: joinSpecs}, nil
}

// Walk visits this placeholder and every descendant depth-first, passing
// the JoinSpec that reached each non-root node (zero value at the root).
func (p *Placeholder) Walk(visit func(node *Placeholder, spec JoinSpec, depth int)) {
	var rec func(node *Placeholder, spec JoinSpec, depth int)
	rec = func(node *Placeholder, spec JoinSpec, depth int) {
		visit(node, spec, depth)
		for i, child := range node.Children {
			rec(child, node.JoinSpecs[i], depth+1)
		}
	}
	rec(p, JoinSpec{}, 0)
}

// IsLeaf reports whether the placeholder has no children.
func (p *Placeholder) IsLeaf() bool { return len(p.Children) == 0 }
