package roster

import (
	"github.com/rallyscore/go-rallysync/metrics"
)

const namespace = "roster"

var (
	appliedEntities = metrics.NewCounter(
		"applied_entities",
		namespace,
		"roster entities written or pruned by incoming messages",
		[]string{"kind"},
	)
	upsertsApplied = appliedEntities.WithLabelValues("upsert")
	prunesApplied  = appliedEntities.WithLabelValues("prune")
)
