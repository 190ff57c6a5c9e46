// Package metrics exposes prometheus collectors for the pipeline: stage
// attempts and durations, status transitions, per-status item counts, asset
// probes, batch operations, category resolutions and quality scores.
package metrics
