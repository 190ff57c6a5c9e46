// Package quality implements the Quality Gate and the quality stage.
//
// Six weighted rubric criteria (content length 25, structure 20, visual
// assets 15, code examples 15, intelligence signal 15, processing duration 10)
// produce a score out of 100. A score at or above the threshold approves.
// Below it, an item older than the escalation window is approved with reason
// auto-approved-after-timeout (or routed to manual review when configured);
// younger items are held and re-evaluated by the sweeper.
package quality
