package ir

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gomlx/exceptions"
)

// NodeId is a unique node id within a Graph.
type NodeId int

// InvalidNodeId is returned for nodes not registered in a graph.
const InvalidNodeId = NodeId(-1)

// Graph is the arena that owns the nodes reachable from a computation's
// output Values: nodes live for the lifetime of the Graph that interned
// them, and operand edges always point to already-interned (hence earlier)
// nodes, so a Graph's node list is also a topological order of the DAG.
//
// Intern also performs structural deduplication (common-subexpression
// elimination): interning a node structurally identical to an existing one
// returns the existing node instead, so equal subexpressions are built only
// once and shared by all consumers.
//
// Construction is single-threaded: a Graph must not be used concurrently
// while nodes are being added. Once constructed, nodes are immutable and can
// be read (and lowered) concurrently.
type Graph struct {
	name  string
	nodes []Node
	ids   map[Node]NodeId

	// dedup indexes interned nodes by structural hash; candidates are
	// verified field by field before being reused.
	dedup map[uint64][]Node
}

// AttrComparable is implemented by operations that carry scalar attributes
// and support deduplication: AttrsEqual reports whether the attributes are
// semantically equivalent to other's. The other parameter is guaranteed by
// the caller to have the same concrete type.
//
// Nodes that don't implement AttrComparable are never deduplicated --
// correct for operations where every instance is distinct (e.g. graph
// inputs), and the safe default for new operations.
type AttrComparable interface {
	AttrsEqual(other Node) bool
}

// NewGraph creates an empty named Graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name:  name,
		ids:   make(map[Node]NodeId),
		dedup: make(map[uint64][]Node),
	}
}

// Name of the computation this Graph defines.
func (g *Graph) Name() string { return g.name }

// NumNodes returns how many nodes have been interned.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NodeById returns the node registered with the given id.
func (g *Graph) NodeById(id NodeId) Node {
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): there are only %d nodes", id, len(g.nodes))
	}
	return g.nodes[id]
}

// IdOf returns the id of a node within the graph, or InvalidNodeId if the
// node was not interned here.
func (g *Graph) IdOf(node Node) NodeId {
	if id, found := g.ids[node]; found {
		return id
	}
	return InvalidNodeId
}

// Intern registers the node in the graph's arena and returns it -- or, if a
// structurally-identical node was already interned, returns that node
// instead and discards the new one. Operation factories call Intern on every
// node they build, so deduplication is transparent to graph-building code.
//
// The node's operands must reference nodes already interned in this graph
// (factories build bottom-up, so this holds naturally).
func (g *Graph) Intern(node Node) Node {
	if node == nil {
		exceptions.Panicf("Graph(%q).Intern: node is nil", g.name)
	}
	if _, found := g.ids[node]; found {
		return node
	}
	if existing := g.findDuplicate(node); existing != nil {
		return existing
	}
	id := NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
	g.ids[node] = id
	g.dedup[node.StructuralHash()] = append(g.dedup[node.StructuralHash()], node)
	return node
}

// findDuplicate searches interned nodes for one structurally identical to
// node. The hash narrows the candidates; equality is then verified on kind,
// output count, operand identity and scalar attributes -- a hash collision
// must never cause an incorrect merge.
func (g *Graph) findDuplicate(node Node) Node {
	attrs, ok := node.(AttrComparable)
	if !ok {
		return nil
	}
	for _, candidate := range g.dedup[node.StructuralHash()] {
		if candidate.Kind() != node.Kind() || candidate.NumOutputs() != node.NumOutputs() {
			continue
		}
		if reflect.TypeOf(candidate) != reflect.TypeOf(node) {
			continue
		}
		if !operandsEqual(candidate.Operands(), node.Operands()) {
			continue
		}
		if attrs.AttrsEqual(candidate) {
			return candidate
		}
	}
	return nil
}

// operandsEqual reports whether two operand lists reference the same node
// outputs (same node identity, same output index, same order).
func operandsEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for ii := range a {
		if a[ii] != b[ii] {
			return false
		}
	}
	return true
}

// String converts the Graph to a multi-line listing of its nodes in
// topological order.
func (g *Graph) String() string {
	parts := []string{fmt.Sprintf("Graph %q: %d nodes", g.name, len(g.nodes))}
	for ii, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("#%d\t%s", ii, node))
	}
	return strings.Join(parts, "\n")
}
