// internal/utils/utils.go
package utils

import (
	"net/url"
	"regexp"
	"strings"
)

var invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// IsValidURL reports whether str is an absolute http or https URL
func IsValidURL(str string) bool {
	u, err := url.Parse(str)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// CleanFileName removes invalid characters from a filename
func CleanFileName(name string) string {
	cleaned := invalidFileChars.ReplaceAllString(name, "_")

	// Trim spaces and dots
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, ".")

	if len(cleaned) > 200 {
		cleaned = cleaned[:200]
	}
	if cleaned == "" {
		cleaned = "output"
	}
	return cleaned
}

// TruncateString truncates a string to a maximum length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
