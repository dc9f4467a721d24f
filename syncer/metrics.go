package syncer

import (
	"github.com/rallyscore/go-rallysync/metrics"
)

const namespace = "syncer"

var (
	reachabilityState = metrics.NewGauge(
		"reachability",
		namespace,
		"peer reachability in [unavailable, connecting, reachable]",
		[]string{"state"},
	)
	stateUnavailable = reachabilityState.WithLabelValues("unavailable")
	stateConnecting  = reachabilityState.WithLabelValues("connecting")
	stateReachable   = reachabilityState.WithLabelValues("reachable")

	outbound = metrics.NewCounter(
		"outbound",
		namespace,
		"outbound messages by disposition",
		[]string{"disposition"},
	)
	sentDirect       = outbound.WithLabelValues("sent")
	sentQueued       = outbound.WithLabelValues("queued")
	droppedEphemeral = outbound.WithLabelValues("dropped_ephemeral")
	droppedOverflow  = outbound.WithLabelValues("dropped_overflow")

	catchupRuns = metrics.NewCounter(
		"catchup_runs",
		namespace,
		"catch-up protocol runs on reconnect",
		nil,
	).WithLabelValues()

	requestTimeouts = metrics.NewCounter(
		"request_timeouts",
		namespace,
		"requests that expired awaiting a reply",
		nil,
	).WithLabelValues()

	peerErrors = metrics.NewCounter(
		"peer_errors",
		namespace,
		"error envelopes by direction",
		[]string{"direction"},
	)
	errorsSent     = peerErrors.WithLabelValues("sent")
	errorsReceived = peerErrors.WithLabelValues("received")
)
