package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"clipforge/internal/language"
)

// uploadPrefix matches the session-scoped prefix stamped on uploaded files.
var uploadPrefix = regexp.MustCompile(`^video_[a-f0-9-]+_`)

// unsafeChars matches anything outside the portable filename alphabet.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// translatedTemplates carry the "translated to X" suffix per UI language.
// English is the fallback for UI languages without a template.
var translatedTemplates = map[string]string{
	"it": "%s_tradotto_in_%s",
	"en": "%s_translated_to_%s",
	"es": "%s_traducido_al_%s",
	"fr": "%s_traduit_en_%s",
}

var processedSuffixes = map[string]string{
	"it": "%s_elaborato",
	"en": "%s_processed",
	"es": "%s_procesado",
	"fr": "%s_traite",
}

// StripUploadPrefix removes the upload session prefix from a filename, if
// present.
func StripUploadPrefix(name string) string {
	return uploadPrefix.ReplaceAllString(name, "")
}

// Sanitize replaces characters unsafe for filenames with underscores and
// collapses runs.
func Sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		return "video"
	}
	return name
}

// baseName strips the upload prefix and extension and sanitizes the rest.
func baseName(originalName string) string {
	name := StripUploadPrefix(filepath.Base(originalName))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return Sanitize(name)
}

// SmartName builds a descriptive output filename from the original upload
// name. When targetLanguage is set the name records the translation, using
// the language's name localized for the UI language; otherwise a plain
// "processed" suffix is used. The extension is always .mp4.
func SmartName(originalName, uiLanguage, targetLanguage string) string {
	base := baseName(originalName)
	ui := strings.ToLower(strings.TrimSpace(uiLanguage))
	if _, ok := translatedTemplates[ui]; !ok {
		ui = "en"
	}

	if targetLanguage != "" {
		langName := Sanitize(language.LocalizedName(targetLanguage, ui))
		return fmt.Sprintf(translatedTemplates[ui], base, langName) + ".mp4"
	}
	return fmt.Sprintf(processedSuffixes[ui], base) + ".mp4"
}

// FallbackName is used when smart naming is disabled: the original name with
// the upload prefix removed and a normalized .mp4 extension.
func FallbackName(originalName string) string {
	return baseName(originalName) + ".mp4"
}
