package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bitriver/slipway/internal/ui"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:     "init [directory]",
	Aliases: []string{"scaffold"},
	Short:   "Scaffold a new deployment directory",
	Long: `Initialize a new streaming deployment with the required directory
structure, encryption keys, and starter files.

This creates:
  - deploy/docker-compose.yml   The streaming stack
  - deploy/ome/Server.xml       OME config template
  - scripts/quickstart.sh       First-run bootstrap with env defaults
  - scripts/test-quickstart.sh  CI harness seeding a matching .env
  - .sops.yaml                  SOPS encryption config
  - .gitignore                  Git ignore file
  - README.md                   Project documentation

If no directory is specified, the current directory is used.

Use --yes to skip all interactive prompts (useful for non-TTY environments).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initYes bool

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absDir, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	targetDir = absDir

	ui.Clapper("Setting up your streaming deployment...")
	fmt.Println()

	// Check if already initialized
	deployDir := filepath.Join(targetDir, "deploy")
	composeFile := filepath.Join(deployDir, "docker-compose.yml")
	if _, err := os.Stat(composeFile); err == nil {
		ui.Warning("This directory already has a slipway deployment.")
		if !initYes {
			response, err := promptYesNo("Reinitialize? This won't overwrite existing files.")
			if err != nil {
				return err
			}
			if !response {
				fmt.Println("Aborted.")
				return nil
			}
		}
	}

	// Step 1: Create directory structure
	ui.Info("Creating deployment structure...")
	dirs := []string{
		filepath.Join(deployDir, "ome"),
		filepath.Join(targetDir, "scripts"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	ui.Success("Created directories")

	// Step 2: Check/setup age key
	ui.Info("Setting up encryption...")
	agePubKey, err := setupAgeKey()
	if err != nil {
		ui.Warning("Age setup: %v", err)
		agePubKey = "AGE-PUBLIC-KEY-REPLACE-ME"
	}

	// Step 3: Create .sops.yaml if not exists
	sopsFile := filepath.Join(targetDir, ".sops.yaml")
	if _, err := os.Stat(sopsFile); os.IsNotExist(err) {
		sopsContent := fmt.Sprintf(`creation_rules:
  - path_regex: .*\.sops\.(yaml|env)$
    age: %s
`, agePubKey)
		if err := os.WriteFile(sopsFile, []byte(sopsContent), 0644); err != nil {
			return fmt.Errorf("create .sops.yaml: %w", err)
		}
		ui.Success("Created .sops.yaml")
	} else {
		ui.Warning(".sops.yaml already exists, skipping")
	}

	// Step 4: Initialize git if needed
	ui.Info("Setting up version control...")
	gitDir := filepath.Join(targetDir, ".git")
	if _, err := os.Stat(gitDir); os.IsNotExist(err) {
		if _, err := exec.LookPath("git"); err == nil {
			gitInit := exec.Command("git", "init", targetDir)
			gitInit.Stdout = os.Stdout
			gitInit.Stderr = os.Stderr
			if err := gitInit.Run(); err != nil {
				ui.Warning("Git init failed: %v", err)
			} else {
				ui.Success("Initialized git repository")
			}
		} else {
			ui.Warning("Git not found, skipping")
		}
	} else {
		ui.Success("Git repository exists")
	}

	// Step 5: Create starter files
	ui.Info("Creating starter files...")

	starters := []struct {
		path    string
		content string
		mode    os.FileMode
	}{
		{composeFile, starterComposeYML, 0644},
		{filepath.Join(deployDir, "ome", "Server.xml"), starterServerXML, 0644},
		{filepath.Join(targetDir, "scripts", "quickstart.sh"), starterQuickstart, 0755},
		{filepath.Join(targetDir, "scripts", "test-quickstart.sh"), starterCIScript, 0755},
		{filepath.Join(targetDir, ".gitignore"), starterGitignore, 0644},
		{filepath.Join(targetDir, "README.md"), starterReadme, 0644},
	}

	for _, s := range starters {
		if err := createFileIfNotExists(s.path, s.content, s.mode); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Base(s.path), err)
		}
	}

	// Summary
	fmt.Println()
	ui.Clapper("Deployment scaffolded! Here's your checklist:")
	fmt.Println()
	fmt.Println("  1. Review .sops.yaml and update the age public key if needed")
	fmt.Println("  2. Run ./scripts/quickstart.sh to seed your .env")
	fmt.Println("  3. Run 'slipway doctor' to verify your setup")
	fmt.Println("  4. Run 'slipway render' to generate Server.xml")
	fmt.Println("  5. Run 'slipway stack up' to go live!")
	fmt.Println()
	ui.Info("Run 'slipway --help' for all commands.")

	return nil
}

// setupAgeKey checks for an existing age key or generates a new one.
func setupAgeKey() (string, error) {
	ageKeyFile := os.Getenv("SOPS_AGE_KEY_FILE")
	if ageKeyFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		ageKeyFile = filepath.Join(home, ".config", "sops", "age", "keys.txt")
	}

	// Check if key exists
	if _, err := os.Stat(ageKeyFile); err == nil {
		ui.Success("Age key found: %s", ageKeyFile)
		return extractAgePublicKey(ageKeyFile)
	}

	if _, err := exec.LookPath("age-keygen"); err != nil {
		ui.Error("age-keygen not found. Install age first:")
		fmt.Println("      brew install age  # macOS")
		fmt.Println("      apt install age   # Debian/Ubuntu")
		return "", fmt.Errorf("age-keygen not found")
	}

	ui.Warning("No age key found. Generating...")
	keyDir := filepath.Dir(ageKeyFile)
	if err := os.MkdirAll(keyDir, 0700); err != nil {
		return "", fmt.Errorf("create key directory: %w", err)
	}

	keygen := exec.Command("age-keygen", "-o", ageKeyFile)
	output, err := keygen.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("generate age key: %w", err)
	}

	if err := os.Chmod(ageKeyFile, 0600); err != nil {
		return "", fmt.Errorf("set key permissions: %w", err)
	}

	ui.Success("Generated age key: %s", ageKeyFile)

	// Extract public key from output
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(line, "Public key:") {
			pubKey := strings.TrimSpace(strings.TrimPrefix(line, "Public key:"))
			return pubKey, nil
		}
	}

	// Fall back to extracting from file
	return extractAgePublicKey(ageKeyFile)
}

// extractAgePublicKey reads the public key from an age key file.
func extractAgePublicKey(keyFile string) (string, error) {
	file, err := os.Open(keyFile)
	if err != nil {
		return "", fmt.Errorf("open key file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "public key:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1]), nil
			}
		}
	}

	// Try using age-keygen -y to derive public key
	if _, err := exec.LookPath("age-keygen"); err == nil {
		deriveCmd := exec.Command("age-keygen", "-y", keyFile)
		output, err := deriveCmd.Output()
		if err == nil {
			return strings.TrimSpace(string(output)), nil
		}
	}

	return "", fmt.Errorf("could not extract public key from %s", keyFile)
}

// isTerminal checks if stdin is a TTY.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptYesNo asks the user a yes/no question.
// Returns error if stdin is not a TTY and cannot read input.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, fmt.Errorf("cannot prompt for input: stdin is not a TTY. Use --yes flag to skip interactive prompts")
	}

	fmt.Printf("%s [y/N] ", question)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}

// createFileIfNotExists creates a file with the given content if it doesn't exist.
func createFileIfNotExists(filename, content string, mode os.FileMode) error {
	if _, err := os.Stat(filename); err == nil {
		ui.Warning("%s already exists, skipping", filepath.Base(filename))
		return nil
	}

	if err := os.WriteFile(filename, []byte(content), mode); err != nil {
		return err
	}

	ui.Success("Created %s", filepath.Base(filename))
	return nil
}

// Starter file templates

const starterComposeYML = `# BitRiver streaming stack

services:
  ome:
    image: airensoft/ovenmediaengine:${OME_IMAGE_TAG:-0.16.5}
    container_name: ome
    restart: unless-stopped
    env_file: ../.env
    ports:
      - "${OME_RTMP_PORT:-1935}:1935/tcp"
      - "${OME_SRT_PORT:-9999}:9999/udp"
      - "${OME_API_PORT:-8081}:8081/tcp"
      - "3333:3333/tcp"
      - "3334:3334/tcp"
      - "10000-10009:10000-10009/udp"
    volumes:
      - ./ome/Server.generated.xml:/opt/ovenmediaengine/bin/origin_conf/Server.xml:ro

networks:
  default:
    name: bitriver-net
`

const starterServerXML = `<?xml version="1.0" encoding="UTF-8"?>
<Server version="8">
	<Name>OvenMediaEngine</Name>
	<Type>origin</Type>
	<IP>*</IP>
	<PrivacyProtection>false</PrivacyProtection>

	<Bind>
		<Address>*</Address>
		<Publishers>
			<WebRTC>
				<Signalling>
					<Port>3333</Port>
					<TLSPort>3334</TLSPort>
				</Signalling>
				<IceCandidates>
					<IceCandidate>*:10000-10009/udp</IceCandidate>
				</IceCandidates>
			</WebRTC>
		</Publishers>
		<Providers>
			<RTMP/>
			<SRT/>
			<WebRTC>
				<IceCandidates>
					<IceCandidate>*:10000-10009/udp</IceCandidate>
				</IceCandidates>
			</WebRTC>
		</Providers>
	</Bind>

	<Managers>
		<Host>
			<Names>
				<Name>*</Name>
			</Names>
		</Host>
		<API>
			<AccessToken>changeme</AccessToken>
			<CrossDomains>
				<Url>*</Url>
			</CrossDomains>
		</API>
	</Managers>

	<VirtualHosts>
		<VirtualHost>
			<Name>default</Name>
			<Host>
				<Names>
					<Name>*</Name>
				</Names>
			</Host>
			<SignedPolicy>
				<Enables>
					<Providers>rtmp,srt</Providers>
				</Enables>
				<AccessTokens>
					<AccessToken>changeme</AccessToken>
				</AccessTokens>
			</SignedPolicy>
			<Authentication>
				<ID>admin</ID>
				<Password>changeme</Password>
			</Authentication>
			<Applications>
				<Application>
					<Name>live</Name>
					<Type>live</Type>
					<OutputProfiles>
						<OutputProfile>
							<Name>bypass</Name>
							<OutputStreamName>${OriginStreamName}</OutputStreamName>
							<Encodes>
								<Video>
									<Bypass>true</Bypass>
								</Video>
								<Audio>
									<Bypass>true</Bypass>
								</Audio>
							</Encodes>
						</OutputProfile>
					</OutputProfiles>
				</Application>
			</Applications>
		</VirtualHost>
	</VirtualHosts>
</Server>
`

const starterQuickstart = `#!/usr/bin/env bash
# First-run bootstrap: seeds .env with sane defaults and starts the stack.
set -euo pipefail

cd "$(dirname "$0")/.."

declare -A env_defaults=(
	[OME_IMAGE_TAG]='0.16.5'
	[OME_RTMP_PORT]='1935'
	[OME_SRT_PORT]='9999'
	[OME_API_PORT]='8081'
	[OME_API_USERNAME]='admin'
	[OME_API_PASSWORD]='changeme'
)

required_env_keys=(
	OME_IMAGE_TAG
	OME_RTMP_PORT
	OME_SRT_PORT
	OME_API_PORT
	OME_API_USERNAME
	OME_API_PASSWORD
)

ENV_FILE=.env

if [[ ! -f "$ENV_FILE" ]]; then
	echo "Seeding $ENV_FILE..."
	for key in "${required_env_keys[@]}"; do
		echo "${key}=${env_defaults[$key]}" >>"$ENV_FILE"
	done
fi

missing=0
for key in "${required_env_keys[@]}"; do
	if ! grep -q "^${key}=" "$ENV_FILE"; then
		echo "missing ${key} in ${ENV_FILE}" >&2
		missing=1
	fi
done
[[ "$missing" -eq 0 ]] || exit 1

docker compose -f deploy/docker-compose.yml up -d
`

const starterCIScript = `#!/usr/bin/env bash
# CI harness: seeds a throwaway .env and smoke-tests the stack.
# Keep the seed block in sync with quickstart.sh (slipway envcheck).
set -euo pipefail

cd "$(dirname "$0")/.."

ENV_FILE=$(mktemp)
trap 'rm -f "$ENV_FILE"' EXIT

cat >"$ENV_FILE" <<'ENV'
OME_IMAGE_TAG=0.16.5
OME_RTMP_PORT=1935
OME_SRT_PORT=9999
OME_API_PORT=8081
OME_API_USERNAME=admin
OME_API_PASSWORD=changeme
ENV

docker compose -f deploy/docker-compose.yml --env-file "$ENV_FILE" config --quiet
echo "compose config OK"
`

const starterGitignore = `# Local environment
.env

# Rendered output
deploy/ome/Server.generated.xml

# Slipway state
deploy/.slipway/

# Secrets (encrypted files are OK)
secrets.yaml
!*.sops.yaml

# OS
.DS_Store
Thumbs.db

# IDE
.idea/
.vscode/
`

const starterReadme = `# BitRiver Deployment

Self-hosted streaming stack managed with slipway.

## Quick Start

` + "```bash" + `
# Check the host
slipway doctor

# Seed .env and start the stack
./scripts/quickstart.sh

# Render the OME config
slipway render --bind 0.0.0.0

# Bring everything up
slipway stack up
` + "```" + `

## Structure

` + "```" + `
├── deploy/
│   ├── docker-compose.yml   # Streaming stack
│   └── ome/Server.xml       # OME config template
├── scripts/
│   ├── quickstart.sh        # First-run bootstrap
│   └── test-quickstart.sh   # CI harness
└── .sops.yaml               # Encryption config
` + "```" + `
`

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Skip all interactive prompts (assume yes for all questions)")
}
