// Package googlefree implements translation and speech synthesis against the
// unauthenticated Google Translate endpoints, used as the free provider tier.
package googlefree
