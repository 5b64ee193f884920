// Package config loads and validates the TOML configuration that drives the
// processing pipeline: directory layout, external tool binaries and timeouts,
// export tuning, and provider credentials.
package config
