// Package env reads the few settings needed before config.Load runs, such as
// the log format of a binary that failed to parse its configuration.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces overrides the same way config.Load does.
const Prefix = "PHARMALINK_"

// Get returns PHARMALINK_<key> when set, then <key>, then fallback. Blank
// values count as unset.
func Get(key, fallback string) string {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}

// OneOf returns the lower-cased value of key when it matches one of allowed,
// otherwise fallback.
func OneOf(key, fallback string, allowed ...string) string {
	val := strings.ToLower(Get(key, fallback))
	for _, a := range allowed {
		if val == a {
			return val
		}
	}
	return fallback
}
