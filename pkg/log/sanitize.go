package log

import (
	"strings"
)

// sensitiveKeywords marks log field keys whose string values must be masked.
// The channel API key and proxy credentials are the main concern here.
var sensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey", "api-key",
	"token", "access_token",
	"secret", "auth", "authorization",
	"credential", "dsn",
}

// SanitizeField checks if the key contains sensitive keywords and sanitizes
// the value.
func SanitizeField(key, value string) string {
	if value == "" {
		return value
	}

	lowerKey := strings.ToLower(key)

	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lowerKey, keyword) {
			return maskValue(value)
		}
	}

	return value
}

// maskValue masks secrets showing only first 4 and last 4 characters.
func maskValue(value string) string {
	if len(value) <= 8 {
		if len(value) <= 2 {
			return strings.Repeat("*", len(value))
		}
		return string(value[0]) + strings.Repeat("*", len(value)-2) + string(value[len(value)-1])
	}

	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
