// Package secrets loads rendering credentials from SOPS-encrypted files.
package secrets

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/getsops/sops/v3/decrypt"
	"gopkg.in/yaml.v3"
)

// Values holds decrypted key/value pairs.
type Values map[string]string

// Credential keys recognized in secrets files.
const (
	KeyUsername    = "OME_API_USERNAME"
	KeyPassword    = "OME_API_PASSWORD"
	KeyAccessToken = "OME_ACCESS_TOKEN"
)

// Load decrypts a SOPS file and flattens it into string key/value pairs.
// The format is inferred from the file extension: .env is treated as
// dotenv, .json as JSON, everything else as YAML.
func Load(path string) (Values, error) {
	format := formatFor(path)

	plaintext, err := decrypt.File(path, format)
	if err != nil {
		return nil, fmt.Errorf("decrypt %s: %w", path, err)
	}

	switch format {
	case "dotenv":
		return parseDotenv(plaintext)
	default:
		return parseYAML(plaintext)
	}
}

func formatFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".env":
		return "dotenv"
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

func parseDotenv(data []byte) (Values, error) {
	values := make(Values)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("unexpected dotenv line: %s", line)
		}
		values[key] = strings.Trim(value, `"'`)
	}
	return values, nil
}

func parseYAML(data []byte) (Values, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse decrypted secrets: %w", err)
	}

	values := make(Values)
	flatten("", raw, values)
	return values, nil
}

// flatten collapses nested maps into dotted keys (api.username).
func flatten(prefix string, raw map[string]any, out Values) {
	for key, value := range raw {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		switch v := value.(type) {
		case map[string]any:
			flatten(full, v, out)
		default:
			out[full] = fmt.Sprintf("%v", v)
		}
	}
}
