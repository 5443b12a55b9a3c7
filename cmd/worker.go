package cmd

import (
	"github.com/spf13/cobra"

	apppkg "github.com/canarysec/canary-scanner/pkg/app"
	"github.com/canarysec/canary-scanner/pkg/errors"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued validation jobs and exit",
	RunE:  runWorker,
}

func init() {
	flags := workerCmd.Flags()

	flags.String(
		"job-store-dir",
		"",
		"Directory holding validation job records.")

	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) (err error) {
	flags := cmd.Flags()

	var cfg *apppkg.Config
	cfg, err = buildConfig(func(cfg *apppkg.Config) {
		if flags.Changed("job-store-dir") {
			cfg.Validation.JobStoreDir, _ = flags.GetString("job-store-dir")
		}
	})
	if err != nil {
		return
	}

	if err = cfg.Validate(); err != nil {
		err = errors.WithMessage(err, "invalid config")
		return
	}

	var application *apppkg.App
	if application, err = newApp(cfg); err != nil {
		return
	}

	if err = application.RunWorker(runCtx); err != nil {
		err = errors.WithMessage(err, "worker failed")
	}
	return
}
