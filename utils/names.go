package utils

import "strings"

// SanitizeName trims surrounding whitespace, strips angle brackets and
// clamps the result to maxLen runes. The empty string means the name
// was unusable.
func SanitizeName(name string, maxLen int) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "<", "")
	name = strings.ReplaceAll(name, ">", "")
	runes := []rune(name)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return strings.TrimSpace(string(runes))
}
