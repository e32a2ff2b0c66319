package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func New() map[string]string {
	return FromEntries(os.Environ())
}

// FromEntries builds a config map from KEY=VALUE entries.
func FromEntries(entries []string) map[string]string {
	envAsMap := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry != "" {
			key, value := split(entry)
			envAsMap[key] = value
		}
	}
	return envAsMap
}

// assumes entry is not the empty string
func split(entry string) (key, value string) {
	parts := strings.SplitN(entry, "=", 2)
	if len(parts) < 2 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func GetString(config map[string]string, key string, defaultValue string) string {
	if config == nil {
		return defaultValue
	}

	if val, ok := config[key]; ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	return defaultValue
}

func GetInt(config map[string]string, key string, defaultValue int) int {
	s, ok := lookup(config, key)
	if !ok {
		return defaultValue
	}

	asInt, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return asInt
}

func GetFloat(config map[string]string, key string, defaultValue float64) float64 {
	s, ok := lookup(config, key)
	if !ok {
		return defaultValue
	}

	asFloat, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return defaultValue
	}
	return asFloat
}

func GetBool(config map[string]string, key string, defaultValue bool) bool {
	s, ok := lookup(config, key)
	if !ok {
		return defaultValue
	}

	asBool, err := strconv.ParseBool(s)
	if err != nil {
		return defaultValue
	}
	return asBool
}

// GetSeconds reads an integer number of seconds.
func GetSeconds(config map[string]string, key string, defaultValue time.Duration) time.Duration {
	s, ok := lookup(config, key)
	if !ok {
		return defaultValue
	}

	secs, err := strconv.Atoi(s)
	if err != nil || secs < 0 {
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}

// Has reports whether key is set to a non-blank value.
func Has(config map[string]string, key string) bool {
	_, ok := lookup(config, key)
	return ok
}

func lookup(config map[string]string, key string) (string, bool) {
	if config == nil {
		return "", false
	}
	s, ok := config[key]
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
