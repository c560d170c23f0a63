package config

import "fmt"

// RequireNonEmpty fails when a required variable resolved to nothing.
func RequireNonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}
