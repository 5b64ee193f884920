// Package overlay builds composited layers (logo, call-to-action, watermark)
// from processing settings, including image pre-scaling and chroma keying.
package overlay
