// Package server serves the listdiff HTTP API and staged apply sessions.
//
// # Routes
//
//	GET  /healthz    liveness check
//	GET  /metrics    Prometheus metrics (when a Gatherer is configured)
//	POST /v1/diff    diff two documents, answer every stage as JSON
//	GET  /v1/kinds   registered element and section kinds
//	GET  /v1/apply   websocket staged apply session
//
// # Staged Apply Sessions
//
// A session speaks the binary protocol of package protocol. The client
// sends a Hello with both documents; the server computes the changeset and
// answers with a Welcome carrying the session ID and stage count. Stages are
// then sent strictly one at a time: the next Stage frame is written only
// after the client acknowledged the previous one. A client that wants to stop
// sends an Interrupt instead of the next Ack, and the server ends with an
// Interrupted control reporting how many stages were applied.
//
// Client drives the same exchange from the consumer side:
//
//	c := server.NewClient("ws://localhost:7070/v1/apply")
//	report, err := c.Apply(ctx, oldJSON, newJSON, document.FormatJSON, applier)
//	if errors.Is(err, listdiff.ErrInterrupted) {
//	    // reload the new document directly
//	}
package server
