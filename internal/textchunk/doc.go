// Package textchunk splits text into provider-sized chunks on sentence
// boundaries, shared by the translation and speech synthesis steps.
package textchunk
