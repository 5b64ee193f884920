// Package ffprobe inspects media containers by invoking the ffprobe binary
// and decoding its JSON output.
package ffprobe
