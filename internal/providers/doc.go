// Package providers defines the transcription, translation, and speech
// synthesis interfaces and the ordered fallback chains that combine free and
// paid implementations.
package providers
