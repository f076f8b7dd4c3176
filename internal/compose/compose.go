// Package compose reads the deployment's Docker Compose files: service
// and image lookup, variable expansion, override merging, and host port
// extraction.
package compose

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// OMEService is the compose service name of the OvenMediaEngine container.
const OMEService = "ome"

// File is a parsed Docker Compose file.
type File struct {
	raw map[string]any
}

// Load parses a compose file from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}
	return Parse(data)
}

// Parse parses compose YAML.
func Parse(data []byte) (*File, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse compose file: %w", err)
	}
	if raw == nil {
		raw = make(map[string]any)
	}
	return &File{raw: raw}, nil
}

// LoadWithOverride parses a compose file and, when overridePath exists,
// merges the override on top of it.
func LoadWithOverride(path, overridePath string) (*File, error) {
	base, err := Load(path)
	if err != nil {
		return nil, err
	}

	if overridePath == "" {
		return base, nil
	}
	if _, err := os.Stat(overridePath); err != nil {
		return base, nil
	}

	override, err := Load(overridePath)
	if err != nil {
		return nil, err
	}

	return &File{raw: DeepMerge(base.raw, override.raw)}, nil
}

// Services returns the names of all services in the file.
func (f *File) Services() []string {
	services, ok := f.raw["services"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	return names
}

// Service returns the raw config map for a service.
func (f *File) Service(name string) (map[string]any, bool) {
	services, ok := f.raw["services"].(map[string]any)
	if !ok {
		return nil, false
	}
	svc, ok := services[name].(map[string]any)
	return svc, ok
}

// Image returns the image reference of a service with ${VAR:-default}
// placeholders expanded. Empty string when the service or image is absent.
func (f *File) Image(name string) string {
	svc, ok := f.Service(name)
	if !ok {
		return ""
	}
	image, _ := svc["image"].(string)
	return Expand(image)
}

// ImageTag returns the tag portion of a service's image reference.
// Empty string when the service, image, or tag is absent.
func (f *File) ImageTag(name string) string {
	return tagOf(f.Image(name))
}

// tagOf extracts the tag from an image reference, ignoring digests and
// registry ports (e.g. localhost:5000/ome has no tag).
func tagOf(image string) string {
	if idx := strings.Index(image, "@"); idx != -1 {
		image = image[:idx]
	}
	idx := strings.LastIndex(image, ":")
	if idx == -1 {
		return ""
	}
	tag := image[idx+1:]
	if strings.Contains(tag, "/") {
		return ""
	}
	return tag
}
