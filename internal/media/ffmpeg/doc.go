// Package ffmpeg wraps external ffmpeg invocations behind a Runner interface
// with bounded waits and diagnostic output capture.
package ffmpeg
