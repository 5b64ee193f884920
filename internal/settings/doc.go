// Package settings models the per-task processing request: overlay layers,
// audio translation options, and output artifact toggles.
package settings
