// Package graph provides the undirected, integer-valued graph that the
// traversal workload runs over, and loaders for its file formats.
//
// Supported formats, chosen by file extension:
//   - .in, .txt: "N M", then N node values, then M edges "a b"
//   - .yaml, .yml, .json: a document with a nodes list and optional edges
package graph
