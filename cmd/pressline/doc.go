// Package main hosts the pressline CLI.
//
// Commands translate terminal invocations into calls against the presslined
// HTTP API: intake, stage triggers, operator decisions, and item inspection.
// A few commands work offline against the configuration, the embedded
// taxonomy, or local files.
package main
