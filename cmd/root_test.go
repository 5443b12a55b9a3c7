package cmd

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canarysec/canary-scanner/pkg/report"
)

func runWithCommand(t *testing.T, command *cobra.Command) int {
	rootCmd.AddCommand(command)
	defer rootCmd.RemoveCommand(command)

	rootCmd.SetArgs([]string{command.Use})
	defer rootCmd.SetArgs(nil)

	return Execute()
}

func TestExecuteSignalMapsToInterruptedExitCode(t *testing.T) {
	command := &cobra.Command{
		Use: "wait-for-cancel",
		RunE: func(cmd *cobra.Command, args []string) error {
			require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGINT))
			select {
			case <-runCtx.Done():
				return runCtx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	}

	// Fire
	exitCode := runWithCommand(t, command)

	assert.Equal(t, report.ExitInterrupted, exitCode)
}

func TestExecuteExitCodeErrorPassesThrough(t *testing.T) {
	command := &cobra.Command{
		Use: "fail-with-code",
		RunE: func(cmd *cobra.Command, args []string) error {
			return &exitCodeError{code: report.ExitFindings}
		},
	}

	// Fire
	exitCode := runWithCommand(t, command)

	assert.Equal(t, report.ExitFindings, exitCode)
}
