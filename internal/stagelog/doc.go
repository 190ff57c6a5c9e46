// Package stagelog is the append-only audit trail of stage attempts.
//
// Every attempt is a pair of records sharing an attempt id: a processing
// record written by Begin and a completed or failed record written by Complete
// or Fail. Begin refuses to open a second attempt for the same content item
// and stage while one is open. Records are never updated or deleted; History
// and LastSuccess drive the orchestrator's idempotency checks and log replay.
package stagelog
