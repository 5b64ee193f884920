// Package language defines the fixed language set shared by transcription,
// translation, and speech synthesis, with localized display names for
// generated filenames.
package language
