// Package pipeline orchestrates processing tasks: tier admission, staged
// execution with pollable progress, and terminal success or failure records.
package pipeline
