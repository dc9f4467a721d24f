package events

import (
	"github.com/rallyscore/go-rallysync/metrics"
)

const namespace = "events"

var droppedEvents = metrics.NewCounter(
	"dropped",
	namespace,
	"events dropped because a subscriber buffer was full",
	nil,
).WithLabelValues()
