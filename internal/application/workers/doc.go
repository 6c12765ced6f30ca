// Package workers implements a fixed-size worker pool over a shared, bounded
// task queue, with quiescence detection and predicate-gated shutdown.
//
// A Pool starts its workers in NewPool. Workers block until a task is queued,
// run it outside the pool lock and may submit follow-up tasks from inside
// the action. The driver waits for quiescence and then asks Stop to tear the
// pool down:
//
//	pool, err := workers.NewPool(1000, 4, workers.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	for _, item := range seed {
//	    _ = pool.Submit(visit, item)
//	}
//	for {
//	    pool.WaitUntilIdle()
//	    if pool.Stop(allVisited) {
//	        break
//	    }
//	    resubmitMissing(pool)
//	}
//
// Quiescence (empty queue and no running task) is necessary but not
// sufficient for completion, which is why Stop consults a CompletionCheck.
//
// The health monitor tracks worker status and logs metrics.
package workers
