package cmd

import (
	"github.com/spf13/cobra"

	apppkg "github.com/canarysec/canary-scanner/pkg/app"
	"github.com/canarysec/canary-scanner/pkg/errors"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the validation service",
	RunE:  runServe,
}

func init() {
	flags := serveCmd.Flags()

	flags.String(
		"bind",
		"",
		"Address to listen on, for example :8450.")

	flags.String(
		"api-key",
		"",
		"Shared API key clients must present. Prefer the CANARY_SERVICE_API_KEY env var.")

	flags.String(
		"job-store-dir",
		"",
		"Directory holding validation job records.")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	flags := cmd.Flags()

	var cfg *apppkg.Config
	cfg, err = buildConfig(func(cfg *apppkg.Config) {
		if flags.Changed("bind") {
			cfg.Service.BindAddress, _ = flags.GetString("bind")
		}
		if flags.Changed("api-key") {
			cfg.Service.APIKey, _ = flags.GetString("api-key")
		}
		if flags.Changed("job-store-dir") {
			cfg.Validation.JobStoreDir, _ = flags.GetString("job-store-dir")
		}
	})
	if err != nil {
		return
	}

	if err = cfg.ValidateForServe(); err != nil {
		err = errors.WithMessage(err, "invalid service config")
		return
	}

	var application *apppkg.App
	if application, err = newApp(cfg); err != nil {
		return
	}

	if err = application.Serve(runCtx); err != nil {
		err = errors.WithMessage(err, "validation service failed")
	}
	return
}
