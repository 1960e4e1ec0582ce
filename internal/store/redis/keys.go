package redis

import "strings"

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "quickmark:"

// Key returns the Redis key for a local persistence key.
func Key(prefix, name string) string {
	return prefix + name
}

// ExtractName strips the prefix from a Redis key.
func ExtractName(prefix, key string) (string, bool) {
	if len(key) <= len(prefix) || !strings.HasPrefix(key, prefix) {
		return "", false
	}
	return key[len(prefix):], true
}
