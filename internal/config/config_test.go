package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// evalSymlinks resolves symlinks for path comparison (macOS /var -> /private/var).
func evalSymlinks(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return path
	}
	return resolved
}

func makeDeployRoot(t *testing.T, root string) {
	t.Helper()
	deployDir := filepath.Join(root, "deploy")
	require.NoError(t, os.MkdirAll(deployDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(deployDir, "docker-compose.yml"), []byte("services: {}"), 0644))
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	originalWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { os.Chdir(originalWd) })
	require.NoError(t, os.Chdir(dir))
}

func TestFindRoot_WithComposeFile(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	makeDeployRoot(t, tmpDir)

	subDir := filepath.Join(tmpDir, "sub", "deep")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	chdir(t, subDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindRoot_WithQuickstartScript(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())

	// No deploy/docker-compose.yml, only the quickstart script.
	scriptsDir := filepath.Join(tmpDir, "scripts")
	require.NoError(t, os.MkdirAll(scriptsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(scriptsDir, "quickstart.sh"), []byte("#!/bin/bash\n"), 0755))

	subDir := filepath.Join(tmpDir, "sub", "deep")
	require.NoError(t, os.MkdirAll(subDir, 0755))
	chdir(t, subDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindRoot_FromRootItself(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	makeDeployRoot(t, tmpDir)
	chdir(t, tmpDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindRoot_EnvOverride(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	makeDeployRoot(t, tmpDir)

	elsewhere := t.TempDir()
	chdir(t, elsewhere)

	t.Setenv(RootEnvVar, tmpDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestFindRoot_EnvOverrideNotADirectory(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	t.Setenv(RootEnvVar, file)

	_, err := FindRoot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestFindRoot_NoDeploymentRoot(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	_, err := FindRoot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment root not found")
}

func TestFindRoot_DeepNesting(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	makeDeployRoot(t, tmpDir)

	deepDir := filepath.Join(tmpDir, "a", "b", "c", "d", "e", "f")
	require.NoError(t, os.MkdirAll(deepDir, 0755))
	chdir(t, deepDir)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, tmpDir, root)
}

func TestLoad(t *testing.T) {
	tmpDir := evalSymlinks(t, t.TempDir())
	makeDeployRoot(t, tmpDir)
	chdir(t, tmpDir)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, tmpDir, cfg.Root)
	assert.Equal(t, filepath.Join(tmpDir, "deploy"), cfg.DeployDir)
	assert.Equal(t, filepath.Join(tmpDir, "deploy", "docker-compose.yml"), cfg.ComposeFile)
	assert.Equal(t, filepath.Join(tmpDir, "deploy", "docker-compose.override.yml"), cfg.OverrideFile)
	assert.Equal(t, filepath.Join(tmpDir, "deploy", "ome"), cfg.OMEDir)
}

func TestLoad_NoDeploymentRoot(t *testing.T) {
	tmpDir := t.TempDir()
	chdir(t, tmpDir)

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestConfig_PathMethods(t *testing.T) {
	cfg := &Config{
		Root:      "/checkout",
		DeployDir: "/checkout/deploy",
		OMEDir:    "/checkout/deploy/ome",
	}

	assert.Equal(t, "/checkout/deploy/ome/Server.xml", cfg.TemplatePath())
	assert.Equal(t, "/checkout/deploy/ome/Server.generated.xml", cfg.OutputPath())
	assert.Equal(t, "/checkout/scripts/quickstart.sh", cfg.QuickstartScript())
	assert.Equal(t, "/checkout/scripts/test-quickstart.sh", cfg.CIScript())
	assert.Equal(t, "/checkout/.env", cfg.EnvFile())
	assert.Equal(t, "/checkout/deploy/.slipway/snapshots", cfg.SnapshotsDir())
	assert.Equal(t, "/checkout/deploy/.slipway/locks", cfg.LocksDir())
}
