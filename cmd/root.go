package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/phux/apiverify/app"
	"github.com/phux/apiverify/config"
	"github.com/phux/apiverify/logging"
	"github.com/phux/apiverify/metrics"
	"github.com/phux/apiverify/report"
	"go.uber.org/zap"

	"github.com/spf13/cobra"
)

const envPrefix = "APIVERIFY"

var ErrScenariosFailed = errors.New("one or more scenarios failed")

var (
	suiteFile   string
	configFile  string
	baseURL     string
	rateLimit   float64
	headerFile  string
	reportDir   string
	metricsFile string
	logLevel    string
	logFormat   string
	writeJUnit  bool
	writeJSON   bool
	noColor     bool
	verbose     bool
	filters     app.RegexFilters
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apiverify",
	Short: "verify a deployed HTTP service against a suite of scenarios",
	Long: `verify a deployed HTTP service against a suite of scenarios.

Every scenario is an ordered list of HTTP probes with expectations on the
response. A scenario stops at its first failing step; the other scenarios
still run. The exit code is non-zero when any scenario failed.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		logger := logging.New(cfg.Logging, nil)
		defer func() { _ = logger.Sync() }()

		suite, err := loadSuite(cfg)
		if err != nil {
			return err
		}

		headers, err := app.LoadHeadersFromFile(cfg.HeaderFile)
		if err != nil {
			return err
		}

		console := report.NewConsole(cmd.OutOrStdout(), verbose)
		recorder := metrics.NewRecorder(nil)

		a := app.NewApp(
			suite,
			app.NewProber(nil, headers, logger),
			app.NewPathExpander(),
			cfg.RateLimit,
			logger,
		)
		a.Filter = filters.AsFilter
		a.Reporter = console
		a.Recorder = recorder

		if description := filters.Describe(); description != "" {
			fmt.Fprintln(cmd.OutOrStdout(), description)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Starting %s against %s with rate limit: %v/second\n\n",
			suiteFile, suite.BaseURL, cfg.RateLimit)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if err := a.Run(ctx); err != nil {
			return err
		}
		console.Summary(a.Results)

		if err := writeReports(cmd, cfg, a.Results, recorder, logger); err != nil {
			return err
		}

		if !a.Results.OK() {
			return fmt.Errorf("%w: %d of %d", ErrScenariosFailed,
				a.Results.Count(app.StatusFailed), len(a.Results.Scenarios))
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&suiteFile, "suite", "", "[required] suite file (YAML or JSON) with the scenarios to run")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "[optional] YAML config file, overridden by APIVERIFY_* environment variables and flags")
	rootCmd.PersistentFlags().StringVar(&logLevel, "logLevel", "", "[optional] debug, info, warn or error (default: warn)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "logFormat", "", "[optional] console or json (default: console)")
	rootCmd.PersistentFlags().Var(&filters.MustMatch, "run", "[optional] regex: run only scenarios whose name matches (repeatable)")
	rootCmd.PersistentFlags().Var(&filters.MustNotMatch, "skip", "[optional] regex: skip scenarios whose name matches (repeatable)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "baseURL", "", "[optional] base URL prepended to relative step URLs, overrides the suite's baseURL")

	rootCmd.Flags().Float64Var(&rateLimit, "rateLimit", 1, "[optional] rate limit of requests / second")
	rootCmd.Flags().StringVar(&headerFile, "headerFile", "", "[optional] headerFile: provide (additional) header key-value pairs via a JSON object (string: string). Applied to every request")
	rootCmd.Flags().StringVar(&reportDir, "reportDir", "", "[optional] directory for JSON and JUnit reports (default: reports)")
	rootCmd.Flags().BoolVar(&writeJUnit, "junit", false, "[optional] write a JUnit XML report to reportDir")
	rootCmd.Flags().BoolVar(&writeJSON, "json", false, "[optional] write a JSON report to reportDir")
	rootCmd.Flags().StringVar(&metricsFile, "metricsFile", "", "[optional] write Prometheus metrics in textfile format to this path")
	rootCmd.Flags().BoolVar(&noColor, "noColor", false, "[optional] disable colored output")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "[optional] list every passing step")
}

// loadConfig merges defaults, the config file and the environment, then
// applies the flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.NewLoader(envPrefix, configFile).Load(cmd.Context())
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("baseURL") {
		cfg.BaseURL = baseURL
	}
	if flags.Changed("rateLimit") {
		cfg.RateLimit = rateLimit
	}
	if flags.Changed("headerFile") {
		cfg.HeaderFile = headerFile
	}
	if flags.Changed("logLevel") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("logFormat") {
		cfg.Logging.Format = logFormat
	}
	if flags.Changed("reportDir") {
		cfg.Report.Dir = reportDir
	}
	if flags.Changed("junit") {
		cfg.Report.JUnit = writeJUnit
	}
	if flags.Changed("json") {
		cfg.Report.JSON = writeJSON
	}
	if flags.Changed("metricsFile") {
		cfg.Report.MetricsFile = metricsFile
	}
	if flags.Changed("noColor") {
		cfg.Report.Color = !noColor
	}
	if !cfg.Report.Color {
		color.NoColor = true
	}

	return cfg, cfg.Validate()
}

func loadSuite(cfg config.Config) (*app.Suite, error) {
	if suiteFile == "" {
		return nil, errors.New(`required flag "suite" not set`)
	}

	suite, err := app.LoadSuiteFromFile(suiteFile)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL != "" {
		suite.BaseURL = cfg.BaseURL
	}

	return suite, nil
}

func writeReports(
	cmd *cobra.Command,
	cfg config.Config,
	results *app.Results,
	recorder *metrics.Recorder,
	logger *zap.Logger,
) error {
	name := strings.TrimSuffix(filepath.Base(suiteFile), filepath.Ext(suiteFile))
	writer := report.NewWriter(cfg.Report.Dir)

	if cfg.Report.JSON {
		path, err := writer.WriteJSON(name, results)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Written JSON report to %s\n", path)
	}
	if cfg.Report.JUnit {
		path, err := writer.WriteJUnit(name, results)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Written JUnit report to %s\n", path)
	}
	if err := recorder.WriteTextfile(cfg.Report.MetricsFile); err != nil {
		return err
	}

	logger.Debug("reports written", zap.String("run_id", writer.RunID))

	return nil
}
