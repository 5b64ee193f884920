package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the sentinel used when the source language should be detected.
const Auto = "auto"

type entry struct {
	code2   string // ISO 639-1 (2-letter)
	display string // English display name
	words   []string
}

// The fixed set shared by transcription, translation, and synthesis.
var languages = []entry{
	{"en", "English", []string{"english"}},
	{"it", "Italian", []string{"italian"}},
	{"es", "Spanish", []string{"spanish"}},
	{"fr", "French", []string{"french"}},
	{"de", "German", []string{"german"}},
	{"pt", "Portuguese", []string{"portuguese"}},
	{"ru", "Russian", []string{"russian"}},
	{"ja", "Japanese", []string{"japanese"}},
	{"ko", "Korean", []string{"korean"}},
	{"zh", "Chinese", []string{"chinese"}},
	{"ar", "Arabic", []string{"arabic"}},
	{"hi", "Hindi", []string{"hindi"}},
	{"nl", "Dutch", []string{"dutch"}},
	{"pl", "Polish", []string{"polish"}},
	{"tr", "Turkish", []string{"turkish"}},
	{"sv", "Swedish", []string{"swedish"}},
	{"da", "Danish", []string{"danish"}},
	{"no", "Norwegian", []string{"norwegian"}},
	{"fi", "Finnish", []string{"finnish"}},
}

var (
	byCode2 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		for _, w := range e.words {
			byWord[w] = e
		}
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// Supported reports whether a code belongs to the fixed supported set.
// Auto is accepted wherever detection is allowed.
func Supported(code string) bool {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == Auto {
		return true
	}
	return lookup(code) != nil
}

// Codes returns the ordered list of supported ISO 639-1 codes.
func Codes() []string {
	out := make([]string, 0, len(languages))
	for _, e := range languages {
		out = append(out, e.code2)
	}
	return out
}

// ToISO2 converts a recognized language code or word to ISO 639-1.
// Unrecognized 2-letter codes pass through; anything else yields "".
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Auto {
		return ""
	}
	if e := lookup(code); e != nil {
		return e.code2
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// DisplayName returns the English name for a supported code, falling back to
// CLDR data for recognized-but-unlisted codes and "Unknown" otherwise.
func DisplayName(code string) string {
	if strings.TrimSpace(code) == "" {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.display
	}
	if tag, err := language.Parse(strings.TrimSpace(code)); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(strings.TrimSpace(code))
}

// LocalizedName returns the name of code rendered in the uiLanguage, lowered
// for use in generated filenames ("it"/"en" -> "inglese"). Falls back to the
// English display name when CLDR has no localization for the pair.
func LocalizedName(code, uiLanguage string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return strings.ToLower(DisplayName(code))
	}
	uiTag, err := language.Parse(strings.TrimSpace(uiLanguage))
	if err != nil {
		uiTag = language.English
	}
	if name := display.Languages(uiTag).Name(tag); name != "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(DisplayName(code))
}
