package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/compose"
	"github.com/bitriver/slipway/internal/config"
	"github.com/bitriver/slipway/internal/fileutil"
	"github.com/bitriver/slipway/internal/lock"
	"github.com/bitriver/slipway/internal/notify"
	"github.com/bitriver/slipway/internal/omeconfig"
	"github.com/bitriver/slipway/internal/secrets"
	"github.com/bitriver/slipway/internal/snapshot"
	"github.com/bitriver/slipway/internal/ui"
)

// Debounce delay for watch mode. Editors fire several events per save.
const watchDebounce = 300 * time.Millisecond

var (
	renderTemplateFlag string
	renderOutputFlag   string
	renderBind         string
	renderServerIP     string
	renderPort         string
	renderTLSPort      string
	renderUsername     string
	renderPassword     string
	renderAPIToken     string
	renderImageTag     string
	renderComposeFlag  string
	renderSecretsFile  string
	renderOmitAuth     bool
	renderDryRun       bool
	renderNoSnapshot   bool
	renderWatch        bool
	renderValidate     bool
	renderWebhook      string
)

// renderCmd represents the render command.
var renderCmd = &cobra.Command{
	Use:     "render",
	Aliases: []string{"gen"},
	Short:   "Render Server.xml from the deployment template",
	Long: `Render the OvenMediaEngine Server.xml from the deployment template.

The template's bind address, public IP, signalling ports, API credentials
and access token placeholders are filled in from flags, a SOPS secrets
file, or the environment. When the target image predates managers auth
the auth-only blocks are stripped from the output.

Credential resolution order: flags, --secrets-file values, then the
OME_API_USERNAME / OME_API_PASSWORD / OME_ACCESS_TOKEN environment
variables.

Examples:
  # Render using the deployment defaults
  slipway render --bind 0.0.0.0 --server-ip 203.0.113.7

  # Preview without writing
  slipway render -n --bind 127.0.0.1

  # Pull credentials from an encrypted secrets file
  slipway render --secrets-file secrets.sops.yaml

  # Re-render on every template change
  slipway render -w --bind 0.0.0.0`,
	RunE: runRenderConfig,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderTemplateFlag, "template", "", "Template path (default: deploy/ome/Server.xml)")
	f.StringVarP(&renderOutputFlag, "output", "o", "", "Output path (default: deploy/ome/Server.generated.xml)")
	f.StringVar(&renderBind, "bind", "0.0.0.0", "Listen address for the <Bind> section")
	f.StringVar(&renderServerIP, "server-ip", "", "Public IP advertised at the Server root (default: bind address)")
	f.StringVar(&renderPort, "port", "3333", "Signalling port")
	f.StringVar(&renderTLSPort, "tls-port", "3334", "TLS signalling port")
	f.StringVarP(&renderUsername, "username", "u", "", "API username")
	f.StringVarP(&renderPassword, "password", "p", "", "API password")
	f.StringVar(&renderAPIToken, "api-token", "", "Managers access token")
	f.StringVar(&renderImageTag, "image-tag", "", "OME image tag (default: discovered from the compose file)")
	f.StringVar(&renderComposeFlag, "compose", "", "Compose file used for image-tag discovery")
	f.StringVarP(&renderSecretsFile, "secrets-file", "s", "", "SOPS-encrypted secrets file")
	f.BoolVar(&renderOmitAuth, "omit-managers-auth", false, "Strip managers-auth blocks regardless of image tag")
	f.BoolVarP(&renderDryRun, "dry-run", "n", false, "Print the rendered config instead of writing it")
	f.BoolVar(&renderNoSnapshot, "no-snapshot", false, "Skip the pre-write config snapshot")
	f.BoolVarP(&renderWatch, "watch", "w", false, "Re-render whenever the template changes")
	f.BoolVar(&renderValidate, "validate", false, "Validate the rendered document before writing")
	f.StringVar(&renderWebhook, "webhook", "", "Webhook URL for render notifications (default: $SLIPWAY_WEBHOOK_URL)")

	rootCmd.AddCommand(renderCmd)
}

func runRenderConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("locate deployment root: %w", err)
	}

	templatePath := renderTemplateFlag
	if templatePath == "" {
		templatePath = cfg.TemplatePath()
	}
	outputPath := renderOutputFlag
	if outputPath == "" {
		outputPath = cfg.OutputPath()
	}

	params, err := resolveRenderParams(cfg)
	if err != nil {
		return err
	}

	sender := notify.NewWebhookSender(renderWebhook)

	if renderWatch {
		return watchAndRender(cfg, templatePath, outputPath, params, sender)
	}

	if err := renderOnce(cfg, templatePath, outputPath, params); err != nil {
		sendEvent(sender, notify.RenderFailure(templatePath, err.Error()))
		return err
	}
	if !renderDryRun {
		sendEvent(sender, notify.RenderSuccess(outputPath, params.ImageTag))
	}
	return nil
}

// resolveRenderParams fills in everything the flags left blank: the image
// tag from the compose file, credentials from the secrets file or the
// environment.
func resolveRenderParams(cfg *config.Config) (omeconfig.Params, error) {
	params := omeconfig.Params{
		Bind:             renderBind,
		ServerIP:         renderServerIP,
		Port:             renderPort,
		TLSPort:          renderTLSPort,
		Username:         renderUsername,
		Password:         renderPassword,
		AccessToken:      renderAPIToken,
		ImageTag:         renderImageTag,
		OmitManagersAuth: renderOmitAuth,
	}

	if params.ImageTag == "" {
		tag, err := discoverImageTag(cfg)
		if err != nil {
			return params, err
		}
		params.ImageTag = tag
	}

	if renderSecretsFile != "" {
		values, err := secrets.Load(renderSecretsFile)
		if err != nil {
			return params, fmt.Errorf("load secrets: %w", err)
		}
		if params.Username == "" {
			params.Username = values[secrets.KeyUsername]
		}
		if params.Password == "" {
			params.Password = values[secrets.KeyPassword]
		}
		if params.AccessToken == "" {
			params.AccessToken = values[secrets.KeyAccessToken]
		}
	}

	if params.Username == "" {
		params.Username = os.Getenv(secrets.KeyUsername)
	}
	if params.Password == "" {
		params.Password = os.Getenv(secrets.KeyPassword)
	}
	if params.AccessToken == "" {
		params.AccessToken = os.Getenv(secrets.KeyAccessToken)
	}

	if params.Username == "" || params.Password == "" {
		return params, fmt.Errorf("API credentials required: set --username/--password, a --secrets-file, or %s/%s", secrets.KeyUsername, secrets.KeyPassword)
	}

	return params, nil
}

// discoverImageTag reads the OME image tag from the compose file,
// applying the local override file when present.
func discoverImageTag(cfg *config.Config) (string, error) {
	composePath := renderComposeFlag
	overridePath := ""
	if composePath == "" {
		composePath = cfg.ComposeFile
		overridePath = cfg.OverrideFile
	}

	cf, err := compose.LoadWithOverride(composePath, overridePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// No compose file: empty tag means current image.
			return "", nil
		}
		return "", fmt.Errorf("read compose file: %w", err)
	}
	return cf.ImageTag(compose.OMEService), nil
}

func renderOnce(cfg *config.Config, templatePath, outputPath string, params omeconfig.Params) error {
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}

	rendered, err := omeconfig.Render(template, params)
	if err != nil {
		return fmt.Errorf("render %s: %w", templatePath, err)
	}

	if renderValidate {
		if err := omeconfig.Validate(rendered); err != nil {
			return fmt.Errorf("validate rendered config: %w", err)
		}
	}

	if renderDryRun {
		ui.Blue.Printf("--- %s (dry run) ---\n", outputPath)
		os.Stdout.Write(rendered)
		return nil
	}

	l := lock.New(cfg.LocksDir(), "render")
	if err := l.Acquire(); err != nil {
		return err
	}
	defer l.Release()

	if !renderNoSnapshot {
		name, err := snapshot.New(cfg.SnapshotsDir(), cfg.OMEDir).Create()
		if err != nil {
			ui.Warning("Snapshot failed: %v", err)
		} else if name != "" {
			ui.Snapshot("Saved config snapshot %s", name)
		}
	}

	if err := fileutil.WriteFile(outputPath, rendered, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	ui.Success("Rendered %s → %s", filepath.Base(templatePath), outputPath)
	if params.ImageTag != "" {
		ui.Info("Target image tag: %s", params.ImageTag)
	}
	if params.OmitManagersAuth || !omeconfig.SupportsManagersAuth(params.ImageTag) {
		ui.Warning("Managers-auth blocks stripped for this image")
	}
	return nil
}

// watchAndRender re-renders on every template change until interrupted.
func watchAndRender(cfg *config.Config, templatePath, outputPath string, params omeconfig.Params, sender *notify.WebhookSender) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files on save
	// and a file-level watch dies with the old inode.
	if err := watcher.Add(filepath.Dir(templatePath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(templatePath), err)
	}

	renderAndReport := func() {
		if err := renderOnce(cfg, templatePath, outputPath, params); err != nil {
			ui.Error("%v", err)
			sendEvent(sender, notify.RenderFailure(templatePath, err.Error()))
			return
		}
		if !renderDryRun {
			sendEvent(sender, notify.RenderSuccess(outputPath, params.ImageTag))
		}
	}

	renderAndReport()
	ui.OnAir("Watching %s for changes (Ctrl-C to stop)", templatePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(templatePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			ui.Info("Template changed, re-rendering...")
			renderAndReport()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			ui.Warning("Watcher error: %v", err)
		case <-sigCh:
			fmt.Println()
			ui.Offline("Stopped watching")
			return nil
		}
	}
}

// sendEvent fires a webhook notification, ignoring delivery failures.
func sendEvent(sender *notify.WebhookSender, event *notify.Event) {
	if sender == nil || !sender.IsConfigured() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sender.Send(ctx, event); err != nil {
		ui.Warning("Webhook delivery failed: %v", err)
	}
}
