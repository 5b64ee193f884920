// Package composite declares the composited-output specification and builds
// the ffmpeg filter graphs that render it, one time window at a time.
package composite
