// Package openai implements the paid provider tier: hosted transcription,
// chat-based translation, and speech synthesis.
package openai
