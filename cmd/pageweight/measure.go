package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nao1215/pageweight/internal/config"
	"github.com/nao1215/pageweight/internal/crawler"
	"github.com/nao1215/pageweight/internal/database"
	"github.com/nao1215/pageweight/internal/fetch"
	"github.com/nao1215/pageweight/internal/log"
	"github.com/nao1215/pageweight/internal/model"
	"github.com/nao1215/pageweight/internal/report"
)

// progressTemplate renders the live request counter. The total is unknown
// until the crawl ends.
const progressTemplate = `requests: {{counters . }} {{etime . }}`

// addMeasureFlags registers the flags used by a measurement.
func addMeasureFlags(cmd *cobra.Command) {
	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request, including the body download")
	cmd.Flags().StringP("user-agent", "A", config.DefaultUserAgent,
		"User-Agent header sent with every request")
	cmd.Flags().StringArrayP("header", "H", nil,
		`Extra request header in "Name: value" format (repeatable)`)
	cmd.Flags().String("cookie", "",
		`Cookie header sent with every request (e.g. "session=abc")`)
	cmd.Flags().String("proxy", "",
		"Route requests through a SOCKS5 proxy (e.g. 127.0.0.1:9050)")
	cmd.Flags().BoolP("insecure", "k", false,
		"Skip TLS certificate verification")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Bytes of an HTML or CSS document kept for reference extraction")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pageweight in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("tee", false,
		"With --output, also print the text report on stdout")
	cmd.Flags().Bool("no-summary", false,
		"Print only the resource tree and the request count in the text report")
	cmd.Flags().Bool("no-color", false,
		"Disable coloured output")
	cmd.Flags().BoolP("progress", "P", false,
		"Show a live request counter on stderr")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not store the measurement in the history database")
	cmd.Flags().String("data-dir", config.XDGDataDir(),
		"Directory holding the history database")
}

// runMeasureCmd executes a measurement.
func runMeasureCmd(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w\n\n%s", config.ErrMissingArgument, cmd.UsageString())
	}

	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runMeasure(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags and the optional
// configuration file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.URL = args[0]
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.Timeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, err
	}

	cfg.UserAgent, err = cmd.Flags().GetString("user-agent")
	if err != nil {
		return nil, err
	}

	rawHeaders, err := cmd.Flags().GetStringArray("header")
	if err != nil {
		return nil, err
	}
	for _, raw := range rawHeaders {
		name, value, err := config.ParseHeader(raw)
		if err != nil {
			return nil, err
		}
		cfg.Headers[name] = value
	}

	cfg.Cookie, err = cmd.Flags().GetString("cookie")
	if err != nil {
		return nil, err
	}

	cfg.ProxyAddress, err = cmd.Flags().GetString("proxy")
	if err != nil {
		return nil, err
	}

	cfg.Insecure, err = cmd.Flags().GetBool("insecure")
	if err != nil {
		return nil, err
	}

	cfg.MaxBodySize, err = cmd.Flags().GetInt64("max-body-size")
	if err != nil {
		return nil, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit --config must exist; otherwise a missing file means defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	} else {
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}
	cfg.ApplySiteConfig(cfg.SiteConfigs.SiteConfigForURL(cfg.URL))

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	cfg.Tee, err = cmd.Flags().GetBool("tee")
	if err != nil {
		return nil, err
	}

	cfg.NoSummary, err = cmd.Flags().GetBool("no-summary")
	if err != nil {
		return nil, err
	}

	cfg.NoColor, err = cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	cfg.Progress, err = cmd.Flags().GetBool("progress")
	if err != nil {
		return nil, err
	}

	cfg.LogJSON, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	noSave, err := cmd.Flags().GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave

	cfg.DBDir, err = cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// setupLogger creates the secure logger selected by the configuration.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// fetchOptions translates the configuration into fetch client options.
func fetchOptions(cfg *config.Config) []fetch.Option {
	opts := []fetch.Option{
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithInsecureSkipVerify(cfg.Insecure),
	}
	if cfg.ProxyAddress != "" {
		opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
	}
	if cfg.Cookie != "" {
		opts = append(opts, fetch.WithCookie(cfg.Cookie))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, fetch.WithHeaders(cfg.Headers))
	}
	return opts
}

// runMeasure crawls cfg.URL, writes the report and stores the result.
func runMeasure(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	client, err := fetch.New(fetchOptions(cfg)...)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	spiderOpts := []crawler.SpiderOption{crawler.WithLogger(logger)}

	var bar *pb.ProgressBar
	if cfg.Progress {
		bar = pb.ProgressBarTemplate(progressTemplate).New(0)
		bar.SetWriter(stderr)
		bar.Start()
		spiderOpts = append(spiderOpts, crawler.WithObserver(func(_ *model.ReportNode, requestCount int) {
			bar.SetCurrent(int64(requestCount))
		}))
	}

	logger.Info("starting measurement", "url", cfg.URL, "saveToDB", cfg.SaveToDB)

	result, err := crawler.NewSpider(client, spiderOpts...).Crawl(ctx, cfg.URL)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	if err := outputReport(cfg, stdout, result); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if cfg.SaveToDB {
		if err := saveResult(ctx, cfg.DBDir, result, logger); err != nil {
			logger.Error("failed to save measurement", "url", cfg.URL, "error", err)
		}
	}

	return nil
}

// outputReport writes the result in the requested format to cfg.ReportFile
// or, when no file is set, to stdout. With cfg.Tee the text report is
// printed on stdout as well.
func outputReport(cfg *config.Config, stdout io.Writer, result *model.CrawlResult) error {
	var writer report.Writer
	if cfg.ReportFile == "" {
		writer = newReportWriter(cfg, stdout)
	} else {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports may contain URLs with credentials, so the file is owner-only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		writer = newReportWriter(cfg, f)
		if cfg.Tee {
			writer = report.NewMultiWriter(writer, newTextWriter(cfg, stdout, !cfg.NoColor && !color.NoColor))
		}
	}

	_, err := writer.Write(result)
	return err
}

// newReportWriter selects the report writer for the configuration.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return newTextWriter(cfg, output, !cfg.NoColor && !color.NoColor && cfg.ReportFile == "")
	}
}

// newTextWriter creates the simple text writer.
func newTextWriter(cfg *config.Config, output io.Writer, colored bool) report.Writer {
	return report.NewSimpleWriter(output,
		report.WithColor(colored),
		report.WithSummary(!cfg.NoSummary),
	)
}

// saveResult stores the result in the history database in dbDir.
func saveResult(ctx context.Context, dbDir string, result *model.CrawlResult, logger *slog.Logger) error {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	previous, err := db.GetLatestResult(ctx, result.URL)
	if err != nil {
		return err
	}

	id, err := db.SaveResult(ctx, result)
	if err != nil {
		return err
	}

	logger.Info("measurement saved to database", "url", result.URL, "id", id, "path", db.Path())
	if previous != nil && previous.ContentHash != result.ContentHash {
		logger.Info("page content changed since the last measurement",
			"url", result.URL,
			"previousBytes", previous.TotalBytes(),
			"currentBytes", result.TotalBytes(),
		)
	}

	return nil
}
