// Package audio implements the speech leg of processing: audio extraction,
// transcription, chunked translation with graceful degradation, and chunked
// speech synthesis.
package audio
