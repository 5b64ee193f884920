// Package naming derives human-readable output filenames from upload names
// and the processing that was applied.
package naming
