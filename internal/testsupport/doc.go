// Package testsupport provides shared helpers for tests: temp-dir-backed
// configurations and fixture files.
package testsupport
