// Package notifications delivers pipeline events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Manual review, publish and stage failure events can each be
// switched off; other events are accepted and dropped so callers never need
// to check configuration themselves.
package notifications
