// Package envcheck verifies that the quickstart script's env defaults stay
// consistent with the CI script's seeded .env block.
//
// The quickstart script declares its defaults in a bash associative array
// plus a list of required keys; the CI script seeds a .env file from a
// heredoc. Both are extracted line by line and compared for the declared
// required keys. Mismatches are collected, never short-circuited.
package envcheck

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Block markers inside the two scripts.
const (
	defaultsStart = "declare -A env_defaults=("
	requiredStart = "required_env_keys=("
	arrayEnd      = ")"

	seedStart = `cat >"$ENV_FILE" <<'ENV'`
	seedEnd   = "ENV"
)

// Placeholders reported when a key exists on one side only.
const (
	MissingDefault = "<missing in env_defaults>"
	MissingSeed    = "<missing in seeded .env>"
)

var defaultsEntryRe = regexp.MustCompile(`^\[([^\]]+)\]='(.*)'$`)

// Mismatch describes a required key whose value differs between the
// quickstart defaults and the CI seed block, or is missing on one side.
type Mismatch struct {
	Key          string
	DefaultValue string
	SeedValue    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: quickstart='%s' ci='%s'", m.Key, m.DefaultValue, m.SeedValue)
}

// Check reads both scripts and returns every mismatch between them.
// Extraction failures (missing blocks, malformed entries) are errors;
// mismatches are not.
func Check(quickstartPath, ciScriptPath string) ([]Mismatch, error) {
	quickstart, err := readLines(quickstartPath)
	if err != nil {
		return nil, err
	}
	ciScript, err := readLines(ciScriptPath)
	if err != nil {
		return nil, err
	}

	defaults, err := ParseDefaults(quickstart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", quickstartPath, err)
	}
	required, err := ParseRequiredKeys(quickstart)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", quickstartPath, err)
	}
	seed, err := ParseSeedEnv(ciScript)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ciScriptPath, err)
	}

	return Diff(defaults, seed, required), nil
}

// ParseDefaults extracts the env_defaults associative array from the
// quickstart script. Entries must have the form [KEY]='value'.
func ParseDefaults(lines []string) (map[string]string, error) {
	block, err := extractBlock(lines, defaultsStart, arrayEnd)
	if err != nil {
		return nil, err
	}

	defaults := make(map[string]string, len(block))
	for _, entry := range block {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}

		m := defaultsEntryRe.FindStringSubmatch(entry)
		if m == nil {
			return nil, fmt.Errorf("unexpected env_defaults line: %s", entry)
		}
		defaults[m[1]] = m[2]
	}

	return defaults, nil
}

// ParseRequiredKeys extracts the required_env_keys list from the
// quickstart script, preserving declaration order.
func ParseRequiredKeys(lines []string) ([]string, error) {
	block, err := extractBlock(lines, requiredStart, arrayEnd)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, entry := range block {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "#") {
			continue
		}
		keys = append(keys, entry)
	}

	return keys, nil
}

// ParseSeedEnv extracts the KEY=VALUE pairs from the CI script's .env
// heredoc. A non-comment line without '=' is an error.
func ParseSeedEnv(lines []string) (map[string]string, error) {
	block, err := extractBlock(lines, seedStart, seedEnd)
	if err != nil {
		return nil, err
	}

	env := make(map[string]string, len(block))
	for _, line := range block {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("unexpected env line: %s", line)
		}
		env[key] = value
	}

	return env, nil
}

// Diff compares the two sides for every required key, in declaration
// order. All divergences are collected.
func Diff(defaults, seed map[string]string, required []string) []Mismatch {
	var mismatches []Mismatch
	for _, key := range required {
		defaultVal, hasDefault := defaults[key]
		seedVal, hasSeed := seed[key]

		switch {
		case !hasDefault:
			mismatches = append(mismatches, Mismatch{Key: key, DefaultValue: MissingDefault, SeedValue: seedVal})
		case !hasSeed:
			mismatches = append(mismatches, Mismatch{Key: key, DefaultValue: defaultVal, SeedValue: MissingSeed})
		case defaultVal != seedVal:
			mismatches = append(mismatches, Mismatch{Key: key, DefaultValue: defaultVal, SeedValue: seedVal})
		}
	}
	return mismatches
}

// extractBlock scans for a line whose trimmed form equals startMarker and
// collects subsequent lines until one whose trimmed form equals endMarker.
// An absent or empty block is an error naming the start marker.
func extractBlock(lines []string, startMarker, endMarker string) ([]string, error) {
	collecting := false
	var block []string

	for _, line := range lines {
		if collecting {
			if strings.TrimSpace(line) == endMarker {
				break
			}
			block = append(block, line)
		} else if strings.TrimSpace(line) == startMarker {
			collecting = true
		}
	}

	if len(block) == 0 {
		return nil, fmt.Errorf("unable to find block starting with %q", startMarker)
	}
	return block, nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return strings.Split(string(data), "\n"), nil
}
