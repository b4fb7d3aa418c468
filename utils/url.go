package utils

import "strings"

var knownSchemes = []string{"http://", "https://", "mailto:", "tel:"}

// NormalizeLinkURL makes sure a link target carries a scheme. Bare values get
// "mailto:" when the link is an email link and "https://" otherwise.
func NormalizeLinkURL(raw string, email bool) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	lower := strings.ToLower(trimmed)
	for _, scheme := range knownSchemes {
		if strings.HasPrefix(lower, scheme) {
			return trimmed
		}
	}
	if strings.Contains(trimmed, "://") {
		return trimmed
	}

	if email {
		return "mailto:" + trimmed
	}
	return "https://" + strings.TrimPrefix(trimmed, "//")
}
