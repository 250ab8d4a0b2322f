package fsm

import "strings"

// DetectLanguage applies a cheap heuristic when inbound text arrives
// without an explicit language: Cyrillic script implies Russian,
// Spanish diacritics/common words imply Spanish, everything else
// falls back to English.
func DetectLanguage(text string) string {
	for _, r := range text {
		if r >= 0x0400 && r <= 0x04FF {
			return "ru"
		}
	}
	lower := strings.ToLower(text)
	spanishMarkers := []string{"ñ", "á", "é", "í", "ó", "ú", "¿", "¡", "gracias", "hola", "por favor"}
	for _, m := range spanishMarkers {
		if strings.Contains(lower, m) {
			return "es"
		}
	}
	return "en"
}
