package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/omeconfig"
	"github.com/bitriver/slipway/internal/secrets"
)

const testServerTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Server version="8">
	<Name>OvenMediaEngine</Name>
	<Type>origin</Type>
	<IP>*</IP>
	<Bind>
		<Providers>
			<WebRTC>
				<Signalling>
					<Port>3333</Port>
					<TLSPort>3334</TLSPort>
				</Signalling>
			</WebRTC>
		</Providers>
	</Bind>
	<Managers>
		<API>
			<AccessToken>changeme</AccessToken>
		</API>
	</Managers>
	<VirtualHosts>
		<VirtualHost>
			<Authentication>
				<ID>admin</ID>
				<Password>changeme</Password>
			</Authentication>
		</VirtualHost>
	</VirtualHosts>
</Server>
`

// testDeployment builds a minimal deployment tree and returns its config.
func testDeployment(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	omeDir := filepath.Join(root, "deploy", "ome")
	require.NoError(t, os.MkdirAll(omeDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(omeDir, "Server.xml"), []byte(testServerTemplate), 0644))

	return &config.Config{
		Root:         root,
		DeployDir:    filepath.Join(root, "deploy"),
		ComposeFile:  filepath.Join(root, "deploy", "docker-compose.yml"),
		OverrideFile: filepath.Join(root, "deploy", "docker-compose.override.yml"),
		OMEDir:       omeDir,
	}
}

// resetRenderFlags restores the render flag globals after a test.
func resetRenderFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		renderTemplateFlag = ""
		renderOutputFlag = ""
		renderBind = "0.0.0.0"
		renderServerIP = ""
		renderPort = "3333"
		renderTLSPort = "3334"
		renderUsername = ""
		renderPassword = ""
		renderAPIToken = ""
		renderImageTag = ""
		renderComposeFlag = ""
		renderSecretsFile = ""
		renderOmitAuth = false
		renderDryRun = false
		renderNoSnapshot = false
		renderWatch = false
		renderValidate = false
		renderWebhook = ""
	})
}

func TestResolveRenderParams(t *testing.T) {
	t.Run("credentials from flags", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderUsername = "admin"
		renderPassword = "hunter2"
		renderImageTag = "0.16.5"

		params, err := resolveRenderParams(cfg)
		require.NoError(t, err)
		assert.Equal(t, "admin", params.Username)
		assert.Equal(t, "hunter2", params.Password)
		assert.Equal(t, "0.16.5", params.ImageTag)
	})

	t.Run("credentials from environment", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderImageTag = "0.16.5"
		t.Setenv(secrets.KeyUsername, "envuser")
		t.Setenv(secrets.KeyPassword, "envpass")
		t.Setenv(secrets.KeyAccessToken, "envtoken")

		params, err := resolveRenderParams(cfg)
		require.NoError(t, err)
		assert.Equal(t, "envuser", params.Username)
		assert.Equal(t, "envpass", params.Password)
		assert.Equal(t, "envtoken", params.AccessToken)
	})

	t.Run("missing credentials is an error", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderImageTag = "0.16.5"
		t.Setenv(secrets.KeyUsername, "")
		t.Setenv(secrets.KeyPassword, "")

		_, err := resolveRenderParams(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credentials required")
	})

	t.Run("flags win over environment", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderImageTag = "0.16.5"
		renderUsername = "flaguser"
		renderPassword = "flagpass"
		t.Setenv(secrets.KeyUsername, "envuser")
		t.Setenv(secrets.KeyPassword, "envpass")

		params, err := resolveRenderParams(cfg)
		require.NoError(t, err)
		assert.Equal(t, "flaguser", params.Username)
		assert.Equal(t, "flagpass", params.Password)
	})
}

func TestDiscoverImageTag(t *testing.T) {
	t.Run("tag from compose file", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		composeFile := filepath.Join(t.TempDir(), "docker-compose.yml")
		require.NoError(t, os.WriteFile(composeFile, []byte(`services:
  ome:
    image: airensoft/ovenmediaengine:0.15.3
`), 0644))
		renderComposeFlag = composeFile

		tag, err := discoverImageTag(cfg)
		require.NoError(t, err)
		assert.Equal(t, "0.15.3", tag)
	})

	t.Run("missing compose file means no tag", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)

		tag, err := discoverImageTag(cfg)
		require.NoError(t, err)
		assert.Empty(t, tag)
	})
}

func TestRenderOnce(t *testing.T) {
	t.Run("writes rendered output", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderNoSnapshot = true

		params, err := resolveRenderParamsForTest(cfg)
		require.NoError(t, err)

		err = renderOnce(cfg, cfg.TemplatePath(), cfg.OutputPath(), params)
		require.NoError(t, err)

		out, err := os.ReadFile(cfg.OutputPath())
		require.NoError(t, err)
		assert.Contains(t, string(out), "<Port>3333</Port>")
		assert.Contains(t, string(out), "<ID>apiuser</ID>")
		assert.Contains(t, string(out), "<Password>apipass</Password>")
		assert.Contains(t, string(out), "<IP>203.0.113.7</IP>")
	})

	t.Run("snapshot taken before write", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)

		params, err := resolveRenderParamsForTest(cfg)
		require.NoError(t, err)

		require.NoError(t, renderOnce(cfg, cfg.TemplatePath(), cfg.OutputPath(), params))

		entries, err := os.ReadDir(cfg.SnapshotsDir())
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("dry run writes nothing", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderDryRun = true

		params, err := resolveRenderParamsForTest(cfg)
		require.NoError(t, err)

		require.NoError(t, renderOnce(cfg, cfg.TemplatePath(), cfg.OutputPath(), params))

		_, statErr := os.Stat(cfg.OutputPath())
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("legacy bind tags are normalized before validation", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)
		renderValidate = true
		renderNoSnapshot = true

		legacy := testServerTemplate + "<!-- <Server.bind></Server.bind> -->\n"
		legacyPath := filepath.Join(cfg.OMEDir, "legacy.xml")
		require.NoError(t, os.WriteFile(legacyPath, []byte(legacy), 0644))

		params, err := resolveRenderParamsForTest(cfg)
		require.NoError(t, err)

		// Normalization rewrites the legacy tags, so this still renders.
		err = renderOnce(cfg, legacyPath, cfg.OutputPath(), params)
		assert.NoError(t, err)
	})

	t.Run("missing template is an error", func(t *testing.T) {
		resetRenderFlags(t)
		cfg := testDeployment(t)

		params, err := resolveRenderParamsForTest(cfg)
		require.NoError(t, err)

		err = renderOnce(cfg, filepath.Join(cfg.OMEDir, "nope.xml"), cfg.OutputPath(), params)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read template")
	})
}

// resolveRenderParamsForTest resolves params with fixed test credentials.
func resolveRenderParamsForTest(cfg *config.Config) (omeconfig.Params, error) {
	renderUsername = "apiuser"
	renderPassword = "apipass"
	renderServerIP = "203.0.113.7"
	renderImageTag = "0.16.5"
	return resolveRenderParams(cfg)
}
