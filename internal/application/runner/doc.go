// Package runner drives graph traversals on the worker pool.
//
// For each run the runner:
//   - Validates the graph
//   - Creates a pool and seeds it with one task per node
//   - Waits for quiescence, then stops the pool only if the traversal
//     confirms every reachable node was visited, resubmitting otherwise
//   - Stores the result and publishes run events
//
// Run blocks until the traversal finishes; Submit runs it in the background.
package runner
