// Package whisper transcribes audio with a locally installed whisper CLI.
package whisper
