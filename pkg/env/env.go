// Package env reads the handful of process variables that live outside the
// envconfig-managed Config: platform-injected overrides (PORT, DYNO) and the
// log format toggle, which is needed before config can load.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
