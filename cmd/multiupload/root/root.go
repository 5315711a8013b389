package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wandb/multiupload/cmd/multiupload/root/version"
	"github.com/wandb/multiupload/internal/settings"
)

// NewRootCmd creates the multiupload command, reading its configuration
// from v.
func NewRootCmd(v *viper.Viper) *cobra.Command {
	settings.Configure(v)

	cmd := &cobra.Command{
		Use:   "multiupload [FILE...] --url URL",
		Short: "Upload files concurrently to an HTTP endpoint",
		Long: heredoc.Doc(`
			Upload each FILE to URL as a multipart/form-data POST with a single
			part named "file". All files are uploaded concurrently; a failed
			upload is reported and does not stop the others.
		`),
		Example: heredoc.Doc(`
			$ multiupload --url https://example.com/upload a.txt b.bin
			$ multiupload -u https://example.com/upload --concurrency 4 data/*.csv
			$ MULTIUPLOAD_URL=https://example.com/upload multiupload --format json *.log
		`),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Load(v)
			if err != nil {
				return err
			}
			return runUpload(cmd, cfg, args)
		},
	}

	flags := cmd.Flags()
	flags.StringP(settings.KeyURL, "u", "", "The target server URL (required)")
	flags.IntP(settings.KeyConcurrency, "c", 0, "Maximum number of uploads in flight (0 uploads all files at once)")
	flags.Duration(settings.KeyTimeout, 0, "Per-request HTTP timeout, e.g. 30s (0 disables the timeout)")
	flags.String(settings.KeyFormat, settings.FormatText, "Output format. Accepts 'text', 'json', or 'yaml'")
	flags.String(settings.KeyTemplate, "", "Template for the report. Accepts Go template format (e.g. --template='{{.Failed}}')")
	flags.String(settings.KeyLogLevel, "info", "Log level: debug, info, warn, or error")
	flags.String(settings.KeyMetricsTextfile, "", "Write Prometheus metrics for the batch to this file")
	flags.String(settings.KeySentryDSN, "", "Report errors and crashed uploads to this Sentry DSN")

	cobra.CheckErr(settings.BindFlags(v, flags))

	cmd.AddCommand(version.NewVersionCmd())

	return cmd
}
