// Package design implements the design assignment stage: template, layout,
// palette and component rules keyed by canonical category.
package design
