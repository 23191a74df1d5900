package arbor

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Graph errors.
var (
	ErrUnknownParent   = errors.New("parent node does not exist")
	ErrLineageMismatch = errors.New("lineage does not match operation")
	ErrDuplicateParent = errors.New("aggregation requires two distinct parents")
)

// Graph is an append-only store of thoughts rooted at a sentinel node.
//
// # Invariants
//
// The graph always contains exactly one root (RootID, OpInitial, score 0).
// Every other node's lineage references nodes that existed when it was
// inserted. Ids are assigned at insertion from a counter owned by the graph
// and are never reused. No node is ever removed or modified.
//
// # Concurrency
//
// Graph is safe for concurrent use. The reasoner is its only writer; hooks and
// exporters may read while a run is in progress.
type Graph struct {
	nodes   map[NodeID]ThoughtNode
	order   []NodeID
	counter int
	mu      sync.RWMutex
}

// NewGraph creates a graph containing only the root node.
func NewGraph() *Graph {
	root := ThoughtNode{
		ID:      RootID,
		Content: RootContent,
		Op:      OpInitial,
		Lineage: NoParent{},
		Created: time.Now(),
	}
	return &Graph{
		nodes: map[NodeID]ThoughtNode{RootID: root},
		order: []NodeID{RootID},
	}
}

// Insert appends a new thought and returns it with its assigned id.
// The lineage must be the shape belonging to op and every id it references
// must already be in the graph.
func (g *Graph) Insert(op Operation, lineage Lineage, content string, score float64) (ThoughtNode, error) {
	if lineage == nil || op == OpInitial || lineage.operation() != op {
		return ThoughtNode{}, fmt.Errorf("insert %s: %w", op, ErrLineageMismatch)
	}
	if pair, ok := lineage.(PairParent); ok && pair.A == pair.B {
		return ThoughtNode{}, fmt.Errorf("insert %s: %w", op, ErrDuplicateParent)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range lineage.IDs() {
		if _, ok := g.nodes[id]; !ok {
			return ThoughtNode{}, fmt.Errorf("insert %s: %w: %s", op, ErrUnknownParent, id)
		}
	}

	node := ThoughtNode{
		ID:      NodeID(fmt.Sprintf("node_%d", g.counter)),
		Content: content,
		Score:   score,
		Op:      op,
		Lineage: lineage,
		Seq:     len(g.order),
		Created: time.Now(),
	}
	g.counter++

	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)

	return node, nil
}

// Get returns the node with the given id.
func (g *Graph) Get(id NodeID) (ThoughtNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node, ok := g.nodes[id]
	return node, ok
}

// Root returns the root node.
func (g *Graph) Root() ThoughtNode {
	node, _ := g.Get(RootID)
	return node
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// Nodes returns every node in insertion order, root first.
func (g *Graph) Nodes() []ThoughtNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]ThoughtNode, len(g.order))
	for i, id := range g.order {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Ranked returns every node, root included, ordered by score descending.
// Ties keep insertion order, so the earlier node ranks higher.
func (g *Graph) Ranked() []ThoughtNode {
	nodes := g.Nodes()
	slices.SortStableFunc(nodes, func(a, b ThoughtNode) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return nodes
}

// Best returns the highest-scoring non-root node. Among equal scores the
// earliest inserted node wins. ok is false when the graph holds only the root.
func (g *Graph) Best() (ThoughtNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var best ThoughtNode
	found := false
	for _, id := range g.order {
		if id == RootID {
			continue
		}
		node := g.nodes[id]
		if !found || node.Score > best.Score {
			best = node
			found = true
		}
	}
	return best, found
}
