// Package assets implements the Asset Validator and the asset validation stage.
//
// URLs are collected from inline HTML (goquery), markdown image references and
// the payload's structured asset list, de-duplicated, then probed in parallel
// with a HEAD request (ranged GET fallback when HEAD is refused). Each probe
// has its own timeout and the whole run has an overall bound, so one slow
// host cannot hold up the rest. Network errors mark a URL broken; they never
// fail the stage. An optional redis cache short-circuits recently healthy URLs.
package assets
