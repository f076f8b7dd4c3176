package cmd

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/cobra"

	"github.com/bitriver/slipway/internal/secrets"
	"github.com/bitriver/slipway/internal/ui"
)

var (
	templateSecrets string
	templateOutput  string
)

// templateCmd represents the template command.
var templateCmd = &cobra.Command{
	Use:     "template [file.tmpl...]",
	Aliases: []string{"tmpl"},
	Short:   "Render .tmpl files with SOPS secrets",
	Long: `Render Go templates with decrypted SOPS secrets.

Use it for ancillary deployment files (nginx snippets, OBS profiles,
systemd units) that need secret material injected before use.

Templates have access to:
  - Secrets data via {{ . }} (the root context)
  - All sprig template functions
  - Custom functions: include, fromJsonFile

If no files are specified, renders all .tmpl files in current directory.

Examples:
  # Render a single template to stdout
  slipway template relay.conf.tmpl

  # Render with a specific secrets file
  slipway template -s secrets.sops.yaml relay.conf.tmpl

  # Render to output directory (preserves structure, strips .tmpl)
  slipway template -o /tmp/rendered deploy/`,
	Run: runTemplate,
}

func init() {
	templateCmd.Flags().StringVarP(&templateSecrets, "secrets", "s", "", "SOPS secrets file (auto-detected from SLIPWAY_SECRETS_FILE if not set)")
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", "", "Output directory (prints to stdout if not set)")

	rootCmd.AddCommand(templateCmd)
}

func runTemplate(cmd *cobra.Command, args []string) {
	// Find secrets file
	secretsFile := templateSecrets
	if secretsFile == "" {
		secretsFile = os.Getenv("SLIPWAY_SECRETS_FILE")
	}
	if secretsFile == "" {
		secretsFile = "secrets.sops.yaml"
	}

	if _, err := os.Stat(secretsFile); os.IsNotExist(err) {
		ui.Error("Secrets file not found: %s", secretsFile)
		ui.Yellow.Println("\nTry one of:")
		ui.Yellow.Println("  slipway template -s /path/to/secrets.sops.yaml file.tmpl")
		ui.Yellow.Println("  export SLIPWAY_SECRETS_FILE=/path/to/secrets.sops.yaml")
		os.Exit(1)
	}

	values, err := secrets.Load(secretsFile)
	if err != nil {
		ui.Error("Failed to decrypt secrets: %v", err)
		os.Exit(1)
	}
	ui.Green.Printf("✓ Decrypted secrets from %s\n", secretsFile)

	// Find templates to render
	templates, err := collectTemplates(args)
	if err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}

	if len(templates) == 0 {
		ui.Yellow.Println("No .tmpl files found")
		os.Exit(0)
	}

	ui.Info("Rendering %d template(s)...\n", len(templates))

	errors := 0
	for _, tmplPath := range templates {
		if err := renderTemplateFile(tmplPath, values, templateOutput); err != nil {
			ui.Error("%s: %v", tmplPath, err)
			errors++
		}
	}

	if errors > 0 {
		ui.Red.Printf("\n✗ %d template(s) failed\n", errors)
		os.Exit(1)
	}
	ui.Green.Printf("\n✓ All templates rendered successfully\n")
}

// collectTemplates expands args (files, directories, globs) into a list
// of .tmpl paths. No args means every .tmpl under the current directory.
func collectTemplates(args []string) ([]string, error) {
	var templates []string

	walkInto := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".tmpl") {
				templates = append(templates, path)
			}
			return nil
		})
	}

	if len(args) == 0 {
		if err := walkInto("."); err != nil {
			return nil, fmt.Errorf("find templates: %w", err)
		}
		return templates, nil
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		switch {
		case err == nil && info.IsDir():
			if walkErr := walkInto(arg); walkErr != nil {
				return nil, fmt.Errorf("walk directory %s: %w", arg, walkErr)
			}
		case err == nil:
			templates = append(templates, arg)
		default:
			matches, globErr := filepath.Glob(arg)
			if globErr != nil {
				return nil, fmt.Errorf("invalid pattern %s: %w", arg, globErr)
			}
			templates = append(templates, matches...)
		}
	}

	return templates, nil
}

func renderTemplateFile(tmplPath string, values secrets.Values, outputDir string) error {
	content, err := os.ReadFile(tmplPath)
	if err != nil {
		return fmt.Errorf("failed to read: %w", err)
	}

	tmpl := template.New(filepath.Base(tmplPath)).
		Funcs(sprig.TxtFuncMap()).
		Funcs(slipwayTemplateFuncs())

	tmpl, err = tmpl.Parse(string(content))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	if outputDir == "" {
		ui.Blue.Printf("--- %s ---\n", tmplPath)
		if err := tmpl.Execute(os.Stdout, values); err != nil {
			return fmt.Errorf("render error: %w", err)
		}
		fmt.Println()
		return nil
	}

	outputPath := filepath.Join(outputDir, strings.TrimSuffix(tmplPath, ".tmpl"))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer outFile.Close()

	if err := tmpl.Execute(outFile, values); err != nil {
		return fmt.Errorf("render error: %w", err)
	}

	ui.Green.Printf("  ✓ %s → %s\n", tmplPath, outputPath)
	return nil
}

// slipwayTemplateFuncs returns the custom template functions available
// alongside sprig.
func slipwayTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"include": func(path string) (string, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("include %s: %w", path, err)
			}
			return string(data), nil
		},
		"fromJsonFile": func(path string) (any, error) {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("fromJsonFile %s: %w", path, err)
			}
			var result any
			if jsonErr := json.Unmarshal(data, &result); jsonErr != nil {
				return nil, fmt.Errorf("fromJsonFile %s: invalid JSON: %w", path, jsonErr)
			}
			return result, nil
		},
	}
}
