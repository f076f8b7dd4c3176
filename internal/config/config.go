// Package config handles deployment checkout discovery and derived paths.
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnvVar overrides the upward search for the deployment root.
const RootEnvVar = "SLIPWAY_ROOT"

// Config holds the paths of a BitRiver deployment checkout.
type Config struct {
	// Root is the checkout root (contains deploy/ and scripts/).
	Root string

	// DeployDir is the path to the deploy directory.
	DeployDir string

	// ComposeFile is the path to deploy/docker-compose.yml.
	ComposeFile string

	// OverrideFile is the path to the optional compose override.
	OverrideFile string

	// OMEDir is the path to the OvenMediaEngine config directory.
	OMEDir string
}

// FindRoot locates the deployment root. SLIPWAY_ROOT wins when set;
// otherwise the search walks upward from the working directory looking
// for deploy/docker-compose.yml or scripts/quickstart.sh.
func FindRoot() (string, error) {
	if root := os.Getenv(RootEnvVar); root != "" {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			return "", fmt.Errorf("%s points to %s, which is not a directory", RootEnvVar, root)
		}
		return root, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	for {
		if isDeploymentRoot(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("deployment root not found (no deploy/docker-compose.yml or scripts/quickstart.sh)")
}

func isDeploymentRoot(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "deploy", "docker-compose.yml")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "scripts", "quickstart.sh")); err == nil {
		return true
	}
	return false
}

// Load finds the deployment root and returns a Config.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}

	deployDir := filepath.Join(root, "deploy")
	return &Config{
		Root:         root,
		DeployDir:    deployDir,
		ComposeFile:  filepath.Join(deployDir, "docker-compose.yml"),
		OverrideFile: filepath.Join(deployDir, "docker-compose.override.yml"),
		OMEDir:       filepath.Join(deployDir, "ome"),
	}, nil
}

// TemplatePath returns the path to the Server.xml template.
func (c *Config) TemplatePath() string {
	return filepath.Join(c.OMEDir, "Server.xml")
}

// OutputPath returns the path to the rendered Server.xml.
func (c *Config) OutputPath() string {
	return filepath.Join(c.OMEDir, "Server.generated.xml")
}

// QuickstartScript returns the path to scripts/quickstart.sh.
func (c *Config) QuickstartScript() string {
	return filepath.Join(c.Root, "scripts", "quickstart.sh")
}

// CIScript returns the path to scripts/test-quickstart.sh.
func (c *Config) CIScript() string {
	return filepath.Join(c.Root, "scripts", "test-quickstart.sh")
}

// EnvFile returns the path to the checkout's .env file.
func (c *Config) EnvFile() string {
	return filepath.Join(c.Root, ".env")
}

// StateDir returns the path to slipway's own state directory.
func (c *Config) StateDir() string {
	return filepath.Join(c.DeployDir, ".slipway")
}

// SnapshotsDir returns the path to the config snapshots directory.
func (c *Config) SnapshotsDir() string {
	return filepath.Join(c.StateDir(), "snapshots")
}

// LocksDir returns the path to the lock files directory.
func (c *Config) LocksDir() string {
	return filepath.Join(c.StateDir(), "locks")
}
