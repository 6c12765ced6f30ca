package graph

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the YAML/JSON graph file layout. Edges are added on top of any
// neighbours listed on the nodes.
type Document struct {
	Nodes []DocumentNode `yaml:"nodes" json:"nodes"`
	Edges [][2]int       `yaml:"edges" json:"edges"`
}

// DocumentNode is a node entry in a Document
type DocumentNode struct {
	Value      int   `yaml:"value" json:"value"`
	Neighbours []int `yaml:"neighbours" json:"neighbours"`
}

// LoadFile reads a graph file, picking the format from its extension
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".in", ".txt", "":
		return ParseText(bytes.NewReader(data))
	case ".yaml", ".yml":
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		return doc.Graph()
	case ".json":
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		return doc.Graph()
	default:
		return nil, fmt.Errorf("unsupported graph format: %s", ext)
	}
}

const maxPreallocNodes = 1 << 16

// ParseText reads the whitespace-separated text format: the node and edge
// counts, the node values, then one "a b" pair per undirected edge.
func ParseText(r io.Reader) (*Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)

	next := func(what string) (int, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return 0, fmt.Errorf("failed to read %s: %w", what, err)
			}
			return 0, fmt.Errorf("%w: unexpected end of input reading %s", ErrInvalidGraph, what)
		}
		v, err := strconv.Atoi(sc.Text())
		if err != nil {
			return 0, fmt.Errorf("%w: invalid %s %q", ErrInvalidGraph, what, sc.Text())
		}
		return v, nil
	}

	nodes, err := next("node count")
	if err != nil {
		return nil, err
	}
	edges, err := next("edge count")
	if err != nil {
		return nil, err
	}
	if nodes < 0 || edges < 0 {
		return nil, fmt.Errorf("%w: negative counts %d %d", ErrInvalidGraph, nodes, edges)
	}

	// The counts are untrusted, so values grows only as values are read
	values := make([]int, 0, min(nodes, maxPreallocNodes))
	for i := 0; i < nodes; i++ {
		v, err := next("node value")
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	g := New(values)
	for i := 0; i < edges; i++ {
		a, err := next("edge endpoint")
		if err != nil {
			return nil, err
		}
		b, err := next("edge endpoint")
		if err != nil {
			return nil, err
		}
		if err := g.AddEdge(a, b); err != nil {
			return nil, err
		}
	}

	return g, nil
}

// Graph converts the document into a validated graph
func (d *Document) Graph() (*Graph, error) {
	g := &Graph{Nodes: make([]Node, len(d.Nodes))}
	for i, n := range d.Nodes {
		g.Nodes[i] = Node{
			ID:         i,
			Value:      n.Value,
			Neighbours: append([]int(nil), n.Neighbours...),
		}
	}
	for _, e := range d.Edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
