package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_Execute(t *testing.T) {
	t.Run("root command shows help", func(t *testing.T) {
		_, err := executeCmd(t)
		assert.NoError(t, err)
	})

	t.Run("help flag", func(t *testing.T) {
		output, err := executeCmd(t, "--help")
		assert.NoError(t, err)
		assert.Contains(t, output, "slipway")
		assert.Contains(t, output, "streaming")
	})
}

func TestRootCmd_Structure(t *testing.T) {
	t.Run("has expected subcommands", func(t *testing.T) {
		commands := rootCmd.Commands()
		commandNames := make([]string, 0, len(commands))
		for _, cmd := range commands {
			commandNames = append(commandNames, cmd.Name())
		}

		assert.Contains(t, commandNames, "render")
		assert.Contains(t, commandNames, "envcheck")
		assert.Contains(t, commandNames, "stack")
		assert.Contains(t, commandNames, "logs")
		assert.Contains(t, commandNames, "doctor")
		assert.Contains(t, commandNames, "rollback")
		assert.Contains(t, commandNames, "init")
		assert.Contains(t, commandNames, "template")
		assert.Contains(t, commandNames, "update")
	})

	t.Run("stack has lifecycle subcommands", func(t *testing.T) {
		var stack []string
		for _, cmd := range stackCmd.Commands() {
			stack = append(stack, cmd.Name())
		}
		assert.ElementsMatch(t, []string{"up", "down", "restart", "status"}, stack)
	})

	t.Run("version is set", func(t *testing.T) {
		assert.Equal(t, version, rootCmd.Version)
		assert.NotEmpty(t, version)
	})
}
