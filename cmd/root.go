package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"martflow/internal/config"
	"martflow/internal/manifest"
	"martflow/internal/marts"
	"martflow/internal/observability"
	"martflow/internal/pipeline"
	"martflow/internal/quality"
	"martflow/internal/source"
	"martflow/internal/ui"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

// Global flag names, also the viper keys they bind to.
const (
	flagConfig     = "config"
	flagTarget     = "target"
	flagLogLevel   = "log-level"
	flagProjectDir = "project-dir"
	flagNoColor    = "no-color"
)

var rootCmd = NewRootCmd()

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.ShowError(err)
		os.Exit(1)
	}
}

// app carries state shared by every command of one invocation.
type app struct {
	v   *viper.Viper
	out io.Writer

	cfg     *models.Config
	log     *zap.Logger
	metrics *observability.Metrics
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "martflow",
		Short: "Build and test the e-commerce analytics marts",
		Long: `martflow turns raw customers, orders and products into analytics marts.

It cleans the raw data into staging models, joins it into intermediate models,
builds dim_customers, fct_daily_sales and rpt_sales_summary, runs data-quality
tests over every layer and materializes the results to a target.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			ui.Output = a.out
			if a.v.GetBool(flagNoColor) || os.Getenv("NO_COLOR") != "" {
				ui.SetColor(false)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String(flagConfig, "", "config file (default: martflow.yaml in the project directory)")
	flags.String(flagTarget, "", "target to materialize to (overrides the config)")
	flags.String(flagLogLevel, "", "log level: debug, info, warn, error")
	flags.String(flagProjectDir, ".", "project directory")
	flags.Bool(flagNoColor, false, "disable coloured output")

	a.v.SetEnvPrefix(config.EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	bindFlags(a.v, flags)

	root.AddCommand(
		newRunCmd(a),
		newTestCmd(a),
		newBuildCmd(a),
		newSeedCmd(a),
		newLsCmd(a),
		newShowCmd(a),
		newInitCmd(a),
		newAuthCmd(a),
		newVersionCmd(),
	)
	return root
}

// bindFlags makes every flag readable through v, where the MARTFLOW_*
// environment variables act as fallbacks.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
	})
}

func (a *app) projectDir() string {
	dir := a.v.GetString(flagProjectDir)
	if dir == "" {
		dir = "."
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}

// load reads .env and martflow.yaml and builds the logger and metrics.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}

	dir := a.projectDir()
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read .env")
	}

	cfg, err := config.Load(config.Options{
		File:       a.v.GetString(flagConfig),
		ProjectDir: dir,
		Target:     a.v.GetString(flagTarget),
	})
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if l := a.v.GetString(flagLogLevel); l != "" {
		level = l
	}
	log, err := observability.NewLogger(observability.LoggerConfig{
		Level:  level,
		Format: cfg.Logging.Format,
		Color:  ui.ColorEnabled(),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid logging configuration")
	}

	a.cfg = cfg
	a.log = log
	a.metrics = observability.NewMetrics()
	return nil
}

// context applies pipeline.timeout.
func (a *app) context(parent context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Pipeline.Timeout == "" {
		return context.WithCancel(parent)
	}
	d, err := time.ParseDuration(a.cfg.Pipeline.Timeout)
	if err != nil || d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

func (a *app) segmenter() (marts.Segmenter, error) {
	return marts.NewSegmenter(a.cfg.Segments)
}

// readSources loads the raw tables.
func (a *app) readSources(ctx context.Context) (*source.Raw, error) {
	reader, err := source.NewReader(a.cfg.Sources)
	if err != nil {
		return nil, err
	}
	raw, err := reader.Read(ctx)
	if err != nil {
		return nil, err
	}
	a.log.Debug("sources read",
		zap.String("format", a.cfg.Sources.Format),
		zap.Int("customers", len(raw.Customers)),
		zap.Int("orders", len(raw.Orders)),
		zap.Int("products", len(raw.Products)))
	return raw, nil
}

// runPipeline reads the sources and builds every model in memory.
func (a *app) runPipeline(ctx context.Context) (*pipeline.Results, error) {
	raw, err := a.readSources(ctx)
	if err != nil {
		return nil, err
	}
	seg, err := a.segmenter()
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(pipeline.Options{
		Parallel:  a.cfg.Pipeline.Parallel,
		Segmenter: seg,
		Logger:    a.log,
		Metrics:   a.metrics,
	})
	return runner.Run(ctx, raw)
}

func (a *app) asOf() time.Time {
	if a.cfg.Pipeline.AsOf == "" {
		return time.Time{}
	}
	// Validated by config.Load.
	t, _ := time.ParseInLocation("2006-01-02", a.cfg.Pipeline.AsOf, time.UTC)
	return t
}

// runSuite evaluates the data-quality tests and records them as metrics.
func (a *app) runSuite(res *pipeline.Results) (*quality.Report, error) {
	seg, err := a.segmenter()
	if err != nil {
		return nil, err
	}
	rep := quality.Suite(res, quality.Options{
		AsOf:     a.asOf(),
		Segments: seg.Names(),
		Warn:     a.cfg.Tests.Warn,
		Skip:     a.cfg.Tests.Skip,
	})
	for _, r := range rep.Results {
		a.metrics.ObserveTest(r.Name, string(r.Severity), string(r.Status()), len(r.Failures))
	}
	a.log.Info("tests evaluated",
		zap.Int("pass", rep.Count(quality.StatusPass)),
		zap.Int("warn", rep.Count(quality.StatusWarn)),
		zap.Int("fail", rep.Count(quality.StatusFail)),
		zap.Int("skipped", len(rep.Skipped)))
	return rep, nil
}

func (a *app) newManifest(command string) *manifest.Manifest {
	m := manifest.New(command, a.cfg.Project, a.cfg.Target)
	if err := m.DetectRevision(a.projectDir()); err != nil {
		a.log.Warn("could not read git revision", zap.Error(err))
	}
	return m
}

// finish writes the manifest and the metrics textfile. Failures here are
// logged, never returned, so they cannot mask the command's own error.
func (a *app) finish(m *manifest.Manifest, runErr error) {
	if runErr != nil && !errors.IsCode(runErr, errors.ErrCodeTestFailed) {
		errors.Log(a.log, "command failed", runErr)
	}
	if m != nil && a.cfg.Manifest.Enabled {
		m.Finish(runErr)
		if err := m.Write(a.cfg.Manifest.Path); err != nil {
			a.log.Warn("could not write run results", zap.Error(err))
		}
	}
	if a.cfg.Metrics.Textfile != "" {
		if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
			a.log.Warn("could not write metrics", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}

func testsFailedError(rep *quality.Report) error {
	return errors.New(errors.ErrCodeTestFailed, fmt.Sprintf("%d data-quality tests failed", rep.Count(quality.StatusFail))).
		WithSuggestions("Inspect the failing rows above", "Downgrade a test with tests.warn in martflow.yaml")
}
