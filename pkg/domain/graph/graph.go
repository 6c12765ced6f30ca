package graph

import (
	"errors"
	"fmt"
)

// ErrInvalidGraph is returned for structurally invalid graphs
var ErrInvalidGraph = errors.New("invalid graph")

// Node is a graph vertex carrying an integer value
type Node struct {
	ID         int   `json:"id" yaml:"id"`
	Value      int   `json:"value" yaml:"value"`
	Neighbours []int `json:"neighbours,omitempty" yaml:"neighbours,omitempty"`
}

// Graph is an undirected graph whose node IDs are their indices
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
}

// New creates a graph with one node per value and no edges
func New(values []int) *Graph {
	g := &Graph{Nodes: make([]Node, len(values))}
	for i, v := range values {
		g.Nodes[i] = Node{ID: i, Value: v}
	}
	return g
}

// Len returns the number of nodes
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// AddEdge links a and b in both directions. Self-loops are kept once.
func (g *Graph) AddEdge(a, b int) error {
	if a < 0 || a >= len(g.Nodes) || b < 0 || b >= len(g.Nodes) {
		return fmt.Errorf("%w: edge %d-%d out of range [0,%d)", ErrInvalidGraph, a, b, len(g.Nodes))
	}
	g.Nodes[a].Neighbours = append(g.Nodes[a].Neighbours, b)
	if a != b {
		g.Nodes[b].Neighbours = append(g.Nodes[b].Neighbours, a)
	}
	return nil
}

// Neighbours returns the neighbour indices of node i
func (g *Graph) Neighbours(i int) []int {
	return g.Nodes[i].Neighbours
}

// Sum returns the sum of all node values
func (g *Graph) Sum() int64 {
	var sum int64
	for _, n := range g.Nodes {
		sum += int64(n.Value)
	}
	return sum
}

// Reachable returns the set of nodes reachable from the given seeds,
// seeds included.
func (g *Graph) Reachable(seeds ...int) []bool {
	seen := make([]bool, len(g.Nodes))
	stack := make([]int, 0, len(seeds))
	for _, s := range seeds {
		if s >= 0 && s < len(g.Nodes) && !seen[s] {
			seen[s] = true
			stack = append(stack, s)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, m := range g.Nodes[n].Neighbours {
			if !seen[m] {
				seen[m] = true
				stack = append(stack, m)
			}
		}
	}
	return seen
}

// Validate checks that node IDs match their position and that every
// neighbour reference is in range
func (g *Graph) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: graph is nil", ErrInvalidGraph)
	}
	if len(g.Nodes) == 0 {
		return fmt.Errorf("%w: graph must have at least one node", ErrInvalidGraph)
	}

	for i, n := range g.Nodes {
		if n.ID != i {
			return fmt.Errorf("%w: node at index %d has id %d", ErrInvalidGraph, i, n.ID)
		}
		for _, m := range n.Neighbours {
			if m < 0 || m >= len(g.Nodes) {
				return fmt.Errorf("%w: node %d references non-existent neighbour %d", ErrInvalidGraph, i, m)
			}
		}
	}

	return nil
}
