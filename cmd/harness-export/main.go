// Command harness-export fetches pipeline execution data from the Harness
// API and writes a stage-level report.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/deploymetrics/harness-export/pkg/config"
	"github.com/deploymetrics/harness-export/pkg/fetch"
	"github.com/deploymetrics/harness-export/pkg/harness"
	"github.com/deploymetrics/harness-export/pkg/logging"
	"github.com/deploymetrics/harness-export/pkg/metrics"
	"github.com/deploymetrics/harness-export/pkg/output"
)

var flags = config.Default()

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "harness-export",
	Short: "Export Harness pipeline execution data",
	Long: `harness-export fetches pipeline execution summaries from the Harness API,
filters them to stages deployed to a configured environment type (default
Production), and writes one report row per qualifying stage.

Large time ranges are split automatically into sub-windows so the remote
query cap never truncates results. All calls are sequential and throttled.`,
	SilenceUsage: true,
	RunE:         runExport,
}

func init() {
	f := rootCmd.Flags()

	f.StringVar(&cfgFile, "config", "", "YAML config file")

	f.StringVar(&flags.AuthToken, "auth-token", "", `Authorization header value (e.g. "Bearer TOKEN")`)
	f.StringVar(&flags.APIKey, "api-key", "", "API key for x-api-key header authentication")
	f.StringVar(&flags.AccountID, "account-id", "", "account identifier")
	f.StringVar(&flags.OrgID, "org-id", "", "organization identifier")
	f.StringVar(&flags.ProjectID, "project-id", "", "project identifier (all projects when omitted)")
	f.StringVar(&flags.BaseURL, "base-url", flags.BaseURL, "API base URL")

	f.IntVar(&flags.PageSize, "page-size", flags.PageSize, "records per page")
	f.StringSliceVar(&flags.ExcludeProjects, "exclude-projects", nil, "project IDs to exclude")
	f.StringVar(&flags.EnvFilter, "env-filter", flags.EnvFilter, "environment type to retain")

	f.StringVar(&flags.StartDate, "start-date", "", "start date YYYY-MM-DD (start of day UTC)")
	f.StringVar(&flags.EndDate, "end-date", "", "end date YYYY-MM-DD (end of day UTC)")
	f.Int64Var(&flags.StartTime, "start-time", 0, "start time in epoch milliseconds")
	f.Int64Var(&flags.EndTime, "end-time", 0, "end time in epoch milliseconds")

	f.IntVar(&flags.SplitThreshold, "split-threshold", flags.SplitThreshold, "result count above which the time range is split")
	f.IntVar(&flags.SplitWindowDays, "split-window-days", flags.SplitWindowDays, "sub-window width in days when splitting")

	f.StringVar(&flags.Output, "output", flags.Output, "output CSV file name")
	f.StringVar(&flags.Format, "format", flags.Format, "output format: csv or table")
	f.StringVar(&flags.URLStyle, "url-style", flags.URLStyle, "execution URL rendering: link or formula")

	f.StringVar(&flags.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "log level: debug, info, warn, error")
	f.BoolVar(&flags.LogPretty, "log-pretty", false, "human-readable log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildConfig merges defaults, the optional config file, environment
// fallbacks, and flags. Flags win over the file for every flag the user
// set explicitly.
func buildConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := flags

	if cfgFile != "" {
		fileCfg := config.Default()
		if err := fileCfg.LoadFile(cfgFile); err != nil {
			return cfg, err
		}

		// Start from the file, then re-apply explicitly set flags.
		merged := fileCfg
		applyChangedFlags(cmd, &merged, cfg)
		cfg = merged
	}

	cfg.LoadEnv()
	return cfg, nil
}

// applyChangedFlags overlays the flag values the user set onto dst.
func applyChangedFlags(cmd *cobra.Command, dst *config.Config, flagged config.Config) {
	set := func(name string, apply func()) {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}

	set("auth-token", func() { dst.AuthToken = flagged.AuthToken })
	set("api-key", func() { dst.APIKey = flagged.APIKey })
	set("account-id", func() { dst.AccountID = flagged.AccountID })
	set("org-id", func() { dst.OrgID = flagged.OrgID })
	set("project-id", func() { dst.ProjectID = flagged.ProjectID })
	set("base-url", func() { dst.BaseURL = flagged.BaseURL })
	set("page-size", func() { dst.PageSize = flagged.PageSize })
	set("exclude-projects", func() { dst.ExcludeProjects = flagged.ExcludeProjects })
	set("env-filter", func() { dst.EnvFilter = flagged.EnvFilter })
	set("start-date", func() { dst.StartDate = flagged.StartDate })
	set("end-date", func() { dst.EndDate = flagged.EndDate })
	set("start-time", func() { dst.StartTime = flagged.StartTime })
	set("end-time", func() { dst.EndTime = flagged.EndTime })
	set("split-threshold", func() { dst.SplitThreshold = flagged.SplitThreshold })
	set("split-window-days", func() { dst.SplitWindowDays = flagged.SplitWindowDays })
	set("output", func() { dst.Output = flagged.Output })
	set("format", func() { dst.Format = flagged.Format })
	set("url-style", func() { dst.URLStyle = flagged.URLStyle })
	set("metrics-addr", func() { dst.MetricsAddr = flagged.MetricsAddr })
	set("log-level", func() { dst.LogLevel = flagged.LogLevel })
	set("log-pretty", func() { dst.LogPretty = flagged.LogPretty })
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.LogLevel),
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	if err := cfg.Resolve(time.Now()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		server := metrics.Serve(cfg.MetricsAddr)
		defer server.Close()
	}

	client, err := harness.New(harness.DefaultConfig(cfg.BaseURL, cfg.AccountID, cfg.OrgID, harness.Credentials{
		AuthToken: cfg.AuthToken,
		APIKey:    cfg.APIKey,
	}))
	if err != nil {
		return err
	}

	fetcher := fetch.New(client, fetch.Options{
		PageSize:        cfg.PageSize,
		EnvFilter:       cfg.EnvFilter,
		SplitThreshold:  cfg.SplitThreshold,
		SplitWindow:     cfg.SplitWindow(),
		ExcludeProjects: cfg.ExcludeProjects,
	}, nil)

	window := fetch.Window{Start: cfg.StartTime, End: cfg.EndTime}

	var sink fetch.Sink
	var table *output.TableWriter
	switch cfg.Format {
	case "table":
		table = output.NewTableWriter()
		sink = table
	default:
		sink = output.NewCSVWriter(cfg.Output, output.URLStyle(cfg.URLStyle))
	}

	result, err := fetcher.Run(context.Background(), cfg.ProjectID, window, sink)
	if err != nil {
		logger.Error().Err(err).
			Int("records_written", result.Records).
			Msg("Export aborted")
		return err
	}

	if table != nil {
		table.Render(os.Stdout)
	} else if result.Records > 0 {
		fmt.Printf("All records saved to: %s\n", cfg.Output)
	} else {
		fmt.Println("No records to write.")
	}

	fmt.Printf("Total %s stage records collected: %d\n", cfg.EnvFilter, result.Records)
	return nil
}
