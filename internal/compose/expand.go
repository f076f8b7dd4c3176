package compose

import (
	"os"
	"regexp"
)

// defaultPattern matches ${VAR:-default} placeholders.
var defaultPattern = regexp.MustCompile(`\$\{([^:}]+):-([^}]*)\}`)

// plainPattern matches ${VAR} placeholders.
var plainPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// Expand substitutes compose-style variable references in a string.
// ${VAR:-default} resolves to the environment value when set, otherwise
// the default. ${VAR} resolves to the environment value when set and is
// left untouched otherwise.
func Expand(s string) string {
	s = defaultPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := defaultPattern.FindStringSubmatch(match)
		if value, ok := os.LookupEnv(parts[1]); ok {
			return value
		}
		return parts[2]
	})

	return plainPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := plainPattern.FindStringSubmatch(match)[1]
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return match
	})
}
