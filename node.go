package arbor

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// NodeID identifies a node within a single graph.
type NodeID string

// RootID is the sentinel id of every graph's root node.
const RootID NodeID = "root"

// RootContent is the placeholder content carried by the root node.
const RootContent = "problem start"

// Operation tags how a node was produced.
type Operation string

// Operations.
const (
	OpInitial   Operation = "initial"
	OpSeed      Operation = "seed"
	OpRefine    Operation = "refine"
	OpAggregate Operation = "aggregate"
)

// Lineage is the parent reference of a node. Each Operation has exactly one
// Lineage shape: NoParent for the root, RootParent for seeds, SingleParent for
// refinements and PairParent for aggregations.
//
// Lineage exists for auditing and debugging; scoring never traverses it.
type Lineage interface {
	// IDs returns the referenced node ids in declaration order.
	IDs() []NodeID
	operation() Operation
}

// NoParent is the lineage of the root node.
type NoParent struct{}

// IDs implements Lineage.
func (NoParent) IDs() []NodeID { return nil }

func (NoParent) operation() Operation { return OpInitial }

// RootParent is the lineage of a seed thought.
type RootParent struct{}

// IDs implements Lineage.
func (RootParent) IDs() []NodeID { return []NodeID{RootID} }

func (RootParent) operation() Operation { return OpSeed }

// SingleParent is the lineage of a refined thought.
type SingleParent struct {
	ID NodeID
}

// IDs implements Lineage.
func (p SingleParent) IDs() []NodeID { return []NodeID{p.ID} }

func (SingleParent) operation() Operation { return OpRefine }

// PairParent is the lineage of an aggregated thought.
// The pair is unordered; A and B keep the order they were ranked in.
type PairParent struct {
	A NodeID
	B NodeID
}

// IDs implements Lineage.
func (p PairParent) IDs() []NodeID { return []NodeID{p.A, p.B} }

func (PairParent) operation() Operation { return OpAggregate }

// Contains reports whether id is one of the pair.
func (p PairParent) Contains(id NodeID) bool {
	return p.A == id || p.B == id
}

// ThoughtNode is a single thought in the graph.
// Nodes are values; the graph never hands out a reference to its own copy.
type ThoughtNode struct {
	ID      NodeID
	Content string
	Score   float64
	Op      Operation
	Lineage Lineage
	Seq     int // insertion order, root is 0
	Created time.Time
}

// IsRoot reports whether the node is the graph's root.
func (n ThoughtNode) IsRoot() bool {
	return n.ID == RootID
}

// Preview returns the content truncated to at most limit runes,
// with an ellipsis when anything was cut.
func (n ThoughtNode) Preview(limit int) string {
	return truncate(n.Content, limit)
}

// String renders the node as a single trace line.
func (n ThoughtNode) String() string {
	return fmt.Sprintf("%s [%s] score=%.2f %q", n.ID, n.Op, n.Score, n.Preview(previewLength))
}

// joinIDs renders ids as a comma-separated list.
func joinIDs(ids []NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}
