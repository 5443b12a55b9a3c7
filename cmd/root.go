package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	apppkg "github.com/canarysec/canary-scanner/pkg/app"
	"github.com/canarysec/canary-scanner/pkg/app/vars"
	"github.com/canarysec/canary-scanner/pkg/errors"
	"github.com/canarysec/canary-scanner/pkg/logg"
	"github.com/canarysec/canary-scanner/pkg/report"
)

var (
	rootCmd = &cobra.Command{
		Use:           vars.Name,
		Short:         vars.Description,
		Version:       vars.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cfgFiles      []string
	logLevelValue string
	logFileValue  string
	logger        *logrus.Logger
	log           logg.Logg

	// runCtx is cancelled on SIGINT/SIGTERM
	runCtx context.Context
)

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&prefixed.TextFormatter{ForceFormatting: true})
	log = logg.NewLogrusLogg(logger)

	flags := rootCmd.PersistentFlags()

	flags.StringSliceVarP(
		&cfgFiles,
		"config",
		"c",
		nil,
		"Config files, merged in order.")

	flags.StringVarP(
		&logLevelValue,
		"log-level",
		"l",
		logrus.InfoLevel.String(),
		fmt.Sprintf("How detailed should the log be? Valid values: %s.", strings.Join(logg.ValidLevelValues(), ", ")))

	flags.StringVar(
		&logFileValue,
		"log-file",
		"",
		"Also append log lines to this file. Required for progress output.")
}

// Execute runs the CLI. The returned code is the process exit code;
// SIGINT and SIGTERM cancel the run and map to exit code 130.
func Execute() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()

	runCtx = ctx

	// A cancelled runCtx means a signal arrived; the local cancel only
	// fires on the deferred cleanup after the return value is decided.
	if err := rootCmd.Execute(); err != nil {
		if ctx.Err() == context.Canceled {
			return report.ExitInterrupted
		}
		if exitErr, ok := err.(*exitCodeError); ok {
			return exitErr.code
		}
		errors.ErrLog(log, err).Error("command failed")
		return report.ExitError
	}

	if ctx.Err() == context.Canceled {
		return report.ExitInterrupted
	}

	return report.ExitOK
}

// exitCodeError carries a non-zero exit code out of a command without
// printing it as an error.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// buildConfig merges config files, env vars, then the flag overrides
// of the calling command.
func buildConfig(applyFlags func(cfg *apppkg.Config)) (result *apppkg.Config, err error) {
	if result, err = apppkg.BuildConfig(cfgFiles); err != nil {
		err = errors.WithMessage(err, "unable to build config")
		return
	}

	result.LogLevel = logLevelValue
	if logFileValue != "" {
		result.LogFile = logFileValue
	}

	if applyFlags != nil {
		applyFlags(result)
	}

	return
}

// newApp applies the log settings from the validated config and wires
// the app with the right log writer.
func newApp(cfg *apppkg.Config) (result *apppkg.App, err error) {
	var logLevel logrus.Level
	if logLevel, err = logrus.ParseLevel(cfg.LogLevel); err != nil {
		err = errors.Wrapv(err, "invalid value for log-level", cfg.LogLevel)
		return
	}
	logger.SetLevel(logLevel)

	var logWriter *logg.StdoutFileWriter
	if cfg.LogFile != "" {
		logWriter = logg.NewStdoutFileWriter(cfg.LogFile)
		logger.SetOutput(logWriter)
	}

	if logWriter == nil {
		result = apppkg.New(cfg, nil, log)
		return
	}
	result = apppkg.New(cfg, logWriter, log)
	return
}
