package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap copies fields with credential-like keys and raw proposal
// payloads replaced by RedactedValue. Nested maps and slices are walked.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(fields)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

// "token" alone names the cryptocurrency, so only qualified token keys count.
func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	sensitive := []string{
		"password",
		"secret",
		"authorization",
		"api_key",
		"apikey",
		"access_key",
		"access_token",
		"refresh_token",
		"bearer",
		"credential",
		"signature",
		"payload",
	}
	for _, fragment := range sensitive {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "idempotency_key",
		"dispatch_id",
		"transaction_hash",
		"block_index",
		"trace_id",
		"request_id":
		return true
	default:
		return false
	}
}
