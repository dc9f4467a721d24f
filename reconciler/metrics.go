package reconciler

import (
	"github.com/rallyscore/go-rallysync/metrics"
)

const namespace = "reconciler"

var (
	applied = metrics.NewCounter(
		"applied",
		namespace,
		"snapshots and deltas applied to projections",
		[]string{"kind"},
	)
	appliedSnapshots = applied.WithLabelValues("snapshot")
	appliedDeltas    = applied.WithLabelValues("delta")

	discarded = metrics.NewCounter(
		"discarded",
		namespace,
		"deltas discarded without effect",
		[]string{"reason"},
	)
	discardedReplays = discarded.WithLabelValues("replay")
	discardedStale   = discarded.WithLabelValues("stale")
	corruptDeltas    = discarded.WithLabelValues("corrupt")

	needsSnapshot = metrics.NewCounter(
		"needs_snapshot",
		namespace,
		"deltas rejected because no projection existed for the game",
		nil,
	).WithLabelValues()
)
