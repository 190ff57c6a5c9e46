// Package intake accepts new content items and batch writes.
//
// Submit creates a single item in the received status and can drive it
// through the pipeline synchronously. Batch runs up to the configured number
// of insert operations against the CONTENT, TREND and KEYWORD tables; each
// operation is validated and executed on its own, so one bad entry never
// aborts the rest. Trend and keyword categories pass through the taxonomy
// normalizer and unknown values fall back to the default category.
package intake
