// Package subtitle renders transcript segments as SRT documents.
package subtitle
