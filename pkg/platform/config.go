package platform

import (
	"os"
	"strconv"
	"strings"
)

// GetEnv reads an environment variable with a default.
func GetEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

// GetEnvInt reads an integer environment variable with a default.
func GetEnvInt(key string, defaultVal int) int {
	if val, exists := os.LookupEnv(key); exists {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetEnvBool reads a boolean environment variable with a default.
// "true" and "1" (case-insensitive) are truthy.
func GetEnvBool(key string, defaultVal bool) bool {
	if val, exists := os.LookupEnv(key); exists {
		lower := strings.ToLower(val)
		return lower == "true" || lower == "1"
	}
	return defaultVal
}
