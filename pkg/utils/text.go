package utils

import "unicode/utf8"

// Truncate returns s cut to at most maxLen characters with "..." appended
// when anything was cut. The cut never lands inside a multibyte rune.
// maxLen <= 0 disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
