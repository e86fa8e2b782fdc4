package masking

import (
	"strings"
	"unicode"
)

const maskToken = "****"

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return maskToken
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskPhone keeps only the last four digits.
func MaskPhone(value string) string {
	digits := make([]rune, 0, len(value))
	for _, r := range value {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return ""
	}
	if len(digits) <= 4 {
		return maskToken
	}
	return maskToken + string(digits[len(digits)-4:])
}

// MaskPII returns a copy of the metadata with email and phone values masked.
// Nested maps and slices are walked.
func MaskPII(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		lower := strings.ToLower(key)
		switch {
		case strings.Contains(lower, "email"):
			return MaskEmail(cast)
		case strings.Contains(lower, "phone"):
			return MaskPhone(cast)
		default:
			return cast
		}
	case map[string]any:
		return MaskPII(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(key, item))
		}
		return out
	default:
		return value
	}
}
