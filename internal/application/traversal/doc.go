// Package traversal implements the graph workload run on the worker pool:
// one task per node that adds the node's value to a shared sum and submits
// its unvisited neighbours.
//
// Traversal.Done is the completion check handed to the pool's Stop. It
// separates "the queue is momentarily empty" from "every reachable node has
// been visited"; when it reports false, Resume resubmits what is missing.
package traversal
