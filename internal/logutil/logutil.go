package logutil

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const redacted = "[REDACTED]"

// IsSensitiveLogField returns true when a key likely holds a credential.
func IsSensitiveLogField(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")

	switch {
	case normalized == "authorization":
		return true
	case strings.Contains(normalized, "password"):
		return true
	case strings.Contains(normalized, "passwd"):
		return true
	case strings.Contains(normalized, "token"):
		return true
	case strings.Contains(normalized, "secret"):
		return true
	case strings.Contains(normalized, "cookie"):
		return true
	default:
		return false
	}
}

// RedactJSON replaces sensitive fields of a JSON payload at any depth.
// Payloads that are not valid JSON are returned unchanged.
func RedactJSON(body []byte) string {
	text := string(body)

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return text
	}

	var redact func(v any)
	redact = func(v any) {
		switch typed := v.(type) {
		case map[string]any:
			for k, child := range typed {
				if IsSensitiveLogField(k) {
					typed[k] = redacted
					continue
				}
				redact(child)
			}
		case []any:
			for _, child := range typed {
				redact(child)
			}
		}
	}

	redact(payload)
	safeJSON, err := json.Marshal(payload)
	if err != nil {
		return text
	}
	return string(safeJSON)
}

// FormatBodyForLog redacts and truncates a request body for logging.
// Only JSON content types are redacted; a truncated JSON body that no
// longer parses is dropped entirely rather than logged raw.
func FormatBodyForLog(contentType string, body []byte, maxBytes int) string {
	if len(body) == 0 {
		return ""
	}
	isJSON := strings.Contains(strings.ToLower(contentType), "json")
	if isJSON {
		text := RedactJSON(body)
		if text == string(body) && !json.Valid(body) {
			return "[unparseable json]"
		}
		return TruncateForLog(text, maxBytes)
	}
	return TruncateForLog(string(body), maxBytes)
}

// TruncateForLog returns a single-line preview of value of at most maxBytes
// bytes before the truncation marker. It never splits a UTF-8 sequence.
func TruncateForLog(value string, maxBytes int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	normalized := strings.ReplaceAll(trimmed, "\n", "\\n")
	if maxBytes <= 0 || len(normalized) <= maxBytes {
		return normalized
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(normalized[cut]) {
		cut--
	}
	return normalized[:cut] + "... [truncated]"
}
