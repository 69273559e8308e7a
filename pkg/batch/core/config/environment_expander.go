package config

import (
	"os"
	"regexp"
)

// EnvironmentExpander expands ${VAR} placeholders in a configuration document.
type EnvironmentExpander interface {
	Expand(input []byte) ([]byte, error)
}

// OsEnvironmentExpander expands placeholders from the process environment.
// ${VAR:-default} falls back to default when VAR is unset or empty.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates an OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

var defaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):-([^}]*)\}`)

// Expand replaces ${VAR}, $VAR and ${VAR:-default}. Unset variables without a default
// become empty strings.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	withDefaults := defaultPattern.ReplaceAllFunc(input, func(m []byte) []byte {
		parts := defaultPattern.FindSubmatch(m)
		if v := os.Getenv(string(parts[1])); v != "" {
			return []byte(v)
		}
		return parts[2]
	})
	return []byte(os.ExpandEnv(string(withDefaults))), nil
}
