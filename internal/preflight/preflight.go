// Package preflight checks the deployment host for the tools slipway
// shells out to.
package preflight

import "os/exec"

// Binary is a host tool the stack commands depend on.
type Binary struct {
	Name        string
	Optional    bool
	InstallHint string
}

// hostBinaries is the full tool inventory. docker and git are hard
// requirements: every stack command shells out to docker, and doctor
// reads the deployment checkout through git. The rest widen secrets
// handling and stream testing.
var hostBinaries = []Binary{
	{Name: "docker", InstallHint: "Install Docker: https://docs.docker.com/get-docker/"},
	{Name: "git", InstallHint: "Install git: https://git-scm.com/downloads"},
	{Name: "sops", Optional: true, InstallHint: "Install sops: brew install sops"},
	{Name: "age", Optional: true, InstallHint: "Install age: brew install age"},
	{Name: "ffmpeg", Optional: true, InstallHint: "Install ffmpeg for ingest testing: brew install ffmpeg"},
}

// Required returns the tools slipway cannot run without.
func Required() []Binary {
	return filter(false)
}

// Optional returns the tools slipway degrades gracefully without.
func Optional() []Binary {
	return filter(true)
}

// Missing walks the inventory once and splits absent tools into hard
// failures and warnings.
func Missing() (required, optional []Binary) {
	for _, bin := range hostBinaries {
		if Available(bin.Name) {
			continue
		}
		if bin.Optional {
			optional = append(optional, bin)
		} else {
			required = append(required, bin)
		}
	}
	return required, optional
}

// Available reports whether a tool resolves on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func filter(optional bool) []Binary {
	var out []Binary
	for _, bin := range hostBinaries {
		if bin.Optional == optional {
			out = append(out, bin)
		}
	}
	return out
}
