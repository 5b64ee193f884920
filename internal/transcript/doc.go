// Package transcript holds the timed segment model shared by transcription
// providers, the translation step, and subtitle generation.
package transcript
