// Package services defines the shared error taxonomy and context annotation
// helpers used across pipeline stages and provider adapters.
package services
