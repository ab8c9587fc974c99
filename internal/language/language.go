// Package language decides whether free text is predominantly Arabic or
// English. The result selects the starter-prompt pool and twist phrasing
// downstream: callers classify the story title when picking a starter and
// the accumulated story text when phrasing a twist.
package language

import "unicode"

// Lang is a supported language tag.
type Lang string

const (
	Arabic  Lang = "ar"
	English Lang = "en"
)

// Detect classifies text as Arabic or English. It counts Arabic-script
// runes against basic Latin letters over all non-whitespace runes; text is
// Arabic when the Arabic ratio exceeds 0.3 or Arabic runes outnumber Latin
// ones. Empty or whitespace-only text defaults to English. Pure function.
func Detect(text string) Lang {
	if text == "" {
		return English
	}

	var arabic, latin, total int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	if total == 0 {
		return English
	}

	ratio := float64(arabic) / float64(total)
	if ratio > 0.3 || arabic > latin {
		return Arabic
	}
	return English
}
