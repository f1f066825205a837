package gatered

// getStringField safely extracts a string field from a loosely shaped payload
// map with an optional default value.
func getStringField(data map[string]any, key string, defaultValue ...string) string {
	if value, ok := data[key]; ok {
		if str, ok := value.(string); ok {
			return str
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// getFloat64Field safely extracts a numeric field from a loosely shaped
// payload map with an optional default value.
func getFloat64Field(data map[string]any, key string, defaultValue ...float64) float64 {
	if value, ok := data[key]; ok {
		switch v := value.(type) {
		case float64:
			return v
		case float32:
			return float64(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return 0.0
}

// getIntField safely extracts an int field from a loosely shaped payload map
// with an optional default value. JSON numbers decode as float64, so this
// goes through getFloat64Field.
func getIntField(data map[string]any, key string, defaultValue ...int) int {
	floatValue := getFloat64Field(data, key)
	if floatValue == 0.0 && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return int(floatValue)
}
