// Package content models content items and persists them.
//
// The status column is written only through CompareAndSetStatus, which
// rejects writes whose expected status is stale and refuses transitions
// outside the pipeline's edge table. Derived fields each have one owning
// stage; WriteDerived enforces that ownership. The package also stores the
// trend and keyword rows written by batch intake.
package content
