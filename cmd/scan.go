package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	apppkg "github.com/canarysec/canary-scanner/pkg/app"
	"github.com/canarysec/canary-scanner/pkg/errors"
)

var scanCmd = &cobra.Command{
	Use:   "scan [target]",
	Short: "Scan a directory or file for leaked credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func init() {
	flags := scanCmd.Flags()

	flags.String(
		"rule-file",
		"",
		"Rule definition file. Built-in rules are used when omitted.")

	flags.Int(
		"workers",
		0,
		"Number of concurrent scan workers.")

	flags.String(
		"fail-on",
		"",
		"Fail the scan when findings of at least this urgency exist. Valid values: any, critical, high, medium.")

	flags.StringSlice(
		"context-filter",
		nil,
		"Drop findings from these context types.")

	flags.Bool(
		"include-false-positives",
		false,
		"Keep findings marked as false positives in the report.")

	flags.Bool(
		"verbose-secrets",
		false,
		"Include raw secret values in the report instead of masked previews only.")

	flags.Bool(
		"validate",
		false,
		"Validate eligible findings against their providers.")

	flags.String(
		"validation-url",
		"",
		"Delegate validation to a remote validation service.")

	flags.StringP(
		"output-file",
		"o",
		"",
		"Write the JSON report here instead of stdout.")

	flags.Bool(
		"output-json",
		false,
		"Print the JSON report to stdout instead of the console summary.")

	flags.String(
		"commit-hash",
		"",
		"Commit hash recorded on every finding.")

	flags.String(
		"branch-name",
		"",
		"Branch name recorded on every finding.")

	flags.String(
		"author-email",
		"",
		"Author email recorded on every finding.")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) (err error) {
	var cfg *apppkg.Config
	cfg, err = buildConfig(func(cfg *apppkg.Config) {
		applyScanFlags(cmd.Flags(), args, cfg)
	})
	if err != nil {
		return
	}

	if err = cfg.ValidateForScan(); err != nil {
		err = errors.WithMessage(err, "invalid scan config")
		return
	}

	var application *apppkg.App
	if application, err = newApp(cfg); err != nil {
		return
	}

	var exitCode int
	if exitCode, err = application.Scan(runCtx); err != nil {
		err = errors.WithMessage(err, "scan failed")
		return
	}

	if exitCode != 0 {
		err = &exitCodeError{code: exitCode}
	}
	return
}

// applyScanFlags overlays flags the user actually set onto the config.
func applyScanFlags(flags *pflag.FlagSet, args []string, cfg *apppkg.Config) {
	if len(args) > 0 {
		cfg.Scan.Target = args[0]
	}
	if flags.Changed("rule-file") {
		cfg.Scan.RuleFile, _ = flags.GetString("rule-file")
	}
	if flags.Changed("workers") {
		cfg.Scan.WorkerCount, _ = flags.GetInt("workers")
	}
	if flags.Changed("fail-on") {
		cfg.Scan.FailOn, _ = flags.GetString("fail-on")
	}
	if flags.Changed("context-filter") {
		cfg.Scan.ContextFilter, _ = flags.GetStringSlice("context-filter")
	}
	if flags.Changed("include-false-positives") {
		cfg.Scan.IncludeFalsePositives, _ = flags.GetBool("include-false-positives")
	}
	if flags.Changed("verbose-secrets") {
		cfg.Scan.VerboseSecretDisplay, _ = flags.GetBool("verbose-secrets")
	}
	if flags.Changed("validate") {
		cfg.Validation.Enabled, _ = flags.GetBool("validate")
	}
	if flags.Changed("validation-url") {
		cfg.Validation.ServiceURL, _ = flags.GetString("validation-url")
		cfg.Validation.Enabled = true
	}
	if flags.Changed("output-file") {
		cfg.OutputFile, _ = flags.GetString("output-file")
	}
	if flags.Changed("output-json") {
		cfg.OutputJSON, _ = flags.GetBool("output-json")
	}
	if flags.Changed("commit-hash") {
		cfg.Scan.CommitHash, _ = flags.GetString("commit-hash")
	}
	if flags.Changed("branch-name") {
		cfg.Scan.BranchName, _ = flags.GetString("branch-name")
	}
	if flags.Changed("author-email") {
		cfg.Scan.AuthorEmail, _ = flags.GetString("author-email")
	}
}
