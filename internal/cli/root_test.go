package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenai/datamap-go/internal/model"
)

func TestRootCommandUse(t *testing.T) {
	assert.Equal(t, "datamap", rootCmd.Use)
}

func TestRootCommandSilenceFlags(t *testing.T) {
	assert.True(t, rootCmd.SilenceUsage, "SilenceUsage must be true to avoid printing usage on errors")
	assert.True(t, rootCmd.SilenceErrors, "SilenceErrors must be true for manual error handling")
}

func TestRootCommandHasVerboseAndQuietFlags(t *testing.T) {
	verboseFlag := rootCmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)

	quietFlag := rootCmd.PersistentFlags().Lookup("quiet")
	require.NotNil(t, quietFlag)
	assert.Equal(t, "q", quietFlag.Shorthand)
}

func TestRootCmdReturnsCommand(t *testing.T) {
	cmd := RootCmd()
	require.NotNil(t, cmd)
	assert.Equal(t, "datamap", cmd.Use)
}

func TestExecuteWithHelp(t *testing.T) {
	rootCmd.SetArgs([]string{"--help"})
	defer rootCmd.SetArgs(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	defer rootCmd.SetOut(nil)

	code := Execute()
	assert.Equal(t, int(model.ExitSuccess), code)
	assert.Contains(t, buf.String(), "datamap is a multi-command executable")
}

func TestExecuteWithUnknownFlag(t *testing.T) {
	rootCmd.SetArgs([]string{"--nonexistent-flag"})
	defer rootCmd.SetArgs(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetErr(buf)
	defer rootCmd.SetErr(nil)

	code := Execute()
	assert.Equal(t, int(model.ExitError), code)
}

func TestExtractExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want model.ExitCode
	}{
		{"generic error returns ExitError", errors.New("something went wrong"), model.ExitError},
		{"ConfigError returns ExitConfig", model.NewConfigError("bad config", nil), model.ExitConfig},
		{"IOError returns ExitIO", model.NewIOError("bad io", nil), model.ExitIO},
		{"wrapped datamap error preserves exit code", fmt.Errorf("command failed: %w", model.NewIOError("io", nil)), model.ExitIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractExitCode(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}
