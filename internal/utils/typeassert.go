// Package utils provides helpers for decoding loosely typed JSON payloads.
package utils

// GetString safely extracts a string from a map, returning defaultVal if not found or wrong type.
func GetString(m map[string]interface{}, key, defaultVal string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return defaultVal
}

// GetFloat64 safely extracts a float64 from a map.
// Also accepts int values written by Go callers before a JSON round trip.
func GetFloat64(m map[string]interface{}, key string, defaultVal float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return defaultVal
}

// GetInt safely extracts an int from a map.
// Also handles float64 (common from JSON) by converting.
func GetInt(m map[string]interface{}, key string, defaultVal int) int {
	if v, ok := m[key].(int); ok {
		return v
	}
	// JSON numbers are float64
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return defaultVal
}

// GetStringMap extracts a nested object of string values, dropping non-string entries.
func GetStringMap(m map[string]interface{}, key string) map[string]string {
	raw, ok := m[key].(map[string]interface{})
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
