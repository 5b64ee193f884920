package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPolicyViolation marks work rejected before any stage runs because the
	// request exceeds tier permissions.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrExternalTool marks a failed external process invocation (ffmpeg,
	// ffprobe, whisper). The process diagnostic output is preserved in the
	// wrapped message.
	ErrExternalTool = errors.New("external tool error")
	// ErrProviderUnavailable marks an absent or erroring AI provider; the
	// caller may fall back to the next provider in the chain.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrValidation marks malformed or inconsistent input.
	ErrValidation = errors.New("validation error")
	// ErrTimeout marks a bounded wait that expired.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above. The stage name is always part of the
// message so terminal failure records can name the failing stage.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Message returns the human-readable portion of a stage error, trimmed for
// progress records.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimSpace(err.Error())
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
