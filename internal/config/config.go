package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"martflow/internal/common"
	"martflow/internal/money"
	"martflow/pkg/errors"
	"martflow/pkg/models"
)

// FileName is the project configuration file name.
const FileName = "martflow.yaml"

// EnvPrefix prefixes environment overrides, e.g. MARTFLOW_TARGET=prod.
const EnvPrefix = "MARTFLOW"

var sourceFormats = map[string]bool{"embedded": true, "csv": true, "xlsx": true}

var targetTypes = map[string]bool{"csv": true, "xlsx": true, "sqlite": true, "postgres": true, "snowflake": true}

// Default returns the configuration used when no file is present.
func Default() *models.Config {
	return &models.Config{
		Project: "ecommerce_analytics",
		Sources: models.Sources{Format: "embedded"},
		Pipeline: models.Pipeline{
			Parallel: true,
			Timeout:  "5m",
		},
		Segments: DefaultSegments(),
		Target:   "local",
		Targets: map[string]models.Target{
			"local": {Type: "sqlite", Path: filepath.Join("target", "martflow.db")},
			"csv":   {Type: "csv", Path: filepath.Join("target", "csv")},
		},
		Logging:  models.Logging{Level: "info", Format: "console"},
		Manifest: models.Manifest{Enabled: true, Path: filepath.Join("target", "run_results.json")},
	}
}

// DefaultSegments are the revenue tiers: [300,inf), [100,300), (-inf,100).
func DefaultSegments() []models.Segment {
	return []models.Segment{
		{Name: "high_value", MinRevenue: "300.00"},
		{Name: "medium_value", MinRevenue: "100.00"},
		{Name: "low_value"},
	}
}

// Options controls where Load looks.
type Options struct {
	File       string // explicit config file; overrides the search path
	ProjectDir string
	Target     string // overrides the configured target
}

// Load reads martflow.yaml through viper, applies defaults and environment
// overrides, and validates the result. A missing file yields the defaults.
func Load(opts Options) (*models.Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.File != "" {
		cleaned, err := common.CleanPath(opts.File)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid config path: %v", err), "config")
		}
		v.SetConfigFile(cleaned)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		if opts.ProjectDir != "" {
			v.AddConfigPath(opts.ProjectDir)
		}
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".martflow"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || opts.File != "" {
			return nil, errors.Wrap(err, errors.ErrCodeConfigNotFound, "failed to read configuration").
				WithContext("file", opts.File)
		}
	}

	cfg := &models.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	// Collections are defaulted after decoding so a file that declares its
	// own targets or segments replaces the defaults instead of merging.
	if len(cfg.Targets) == 0 {
		cfg.Targets = Default().Targets
	}
	if len(cfg.Segments) == 0 {
		cfg.Segments = DefaultSegments()
	}

	if opts.Target != "" {
		cfg.Target = opts.Target
	}

	if opts.ProjectDir != "" {
		resolvePaths(cfg, opts.ProjectDir)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *models.Config) {
	v.SetDefault("project", d.Project)
	v.SetDefault("sources.format", d.Sources.Format)
	v.SetDefault("sources.path", d.Sources.Path)
	v.SetDefault("pipeline.parallel", d.Pipeline.Parallel)
	v.SetDefault("pipeline.as_of", d.Pipeline.AsOf)
	v.SetDefault("pipeline.timeout", d.Pipeline.Timeout)
	v.SetDefault("target", d.Target)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("manifest.enabled", d.Manifest.Enabled)
	v.SetDefault("manifest.path", d.Manifest.Path)
}

// resolvePaths anchors relative file paths at the project directory.
func resolvePaths(cfg *models.Config, dir string) {
	anchor := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	cfg.Sources.Path = anchor(cfg.Sources.Path)
	cfg.Manifest.Path = anchor(cfg.Manifest.Path)
	cfg.Metrics.Textfile = anchor(cfg.Metrics.Textfile)
	for name, t := range cfg.Targets {
		if t.Type == "csv" || t.Type == "xlsx" || t.Type == "sqlite" {
			t.Path = anchor(t.Path)
			cfg.Targets[name] = t
		}
	}
}

// Validate checks cross-field rules viper cannot express.
func Validate(cfg *models.Config) error {
	if !sourceFormats[cfg.Sources.Format] {
		return errors.ConfigError(fmt.Sprintf("unknown source format %q", cfg.Sources.Format), "sources.format")
	}
	if cfg.Sources.Format != "embedded" && cfg.Sources.Path == "" {
		return errors.ConfigError("sources.path is required for file sources", "sources.path")
	}

	if cfg.Pipeline.AsOf != "" {
		if _, err := time.Parse("2006-01-02", cfg.Pipeline.AsOf); err != nil {
			return errors.ConfigError(fmt.Sprintf("pipeline.as_of %q is not YYYY-MM-DD", cfg.Pipeline.AsOf), "pipeline.as_of")
		}
	}
	if cfg.Pipeline.Timeout != "" {
		if _, err := time.ParseDuration(cfg.Pipeline.Timeout); err != nil {
			return errors.ConfigError(fmt.Sprintf("pipeline.timeout %q is not a duration", cfg.Pipeline.Timeout), "pipeline.timeout")
		}
	}

	if err := ValidateSegments(cfg.Segments); err != nil {
		return err
	}

	name, target, ok := cfg.ActiveTarget()
	if !ok {
		return errors.ConfigError(fmt.Sprintf("target %q is not defined", name), "target")
	}
	if !targetTypes[target.Type] {
		return errors.ConfigError(fmt.Sprintf("target %q has unknown type %q", name, target.Type), "targets."+name+".type")
	}
	return nil
}

// ValidateSegments requires strictly descending thresholds, unique names and
// exactly one catch-all tier in last position.
func ValidateSegments(segments []models.Segment) error {
	if len(segments) == 0 {
		return errors.ConfigError("at least one segment is required", "segments")
	}

	seen := map[string]bool{}
	var prev *money.Amount
	for i, s := range segments {
		if s.Name == "" {
			return errors.ConfigError(fmt.Sprintf("segment %d has no name", i), "segments")
		}
		if seen[s.Name] {
			return errors.ConfigError(fmt.Sprintf("segment %q is declared twice", s.Name), "segments")
		}
		seen[s.Name] = true

		last := i == len(segments)-1
		if s.MinRevenue == "" {
			if !last {
				return errors.ConfigError(fmt.Sprintf("segment %q has no min_revenue but is not last", s.Name), "segments")
			}
			continue
		}
		if last {
			return errors.ConfigError(fmt.Sprintf("last segment %q must not set min_revenue", s.Name), "segments")
		}

		threshold, err := money.Parse(s.MinRevenue)
		if err != nil {
			return errors.ConfigError(fmt.Sprintf("segment %q: %v", s.Name, err), "segments")
		}
		if prev != nil && threshold >= *prev {
			return errors.ConfigError(fmt.Sprintf("segment %q threshold %s is not below the previous tier", s.Name, threshold), "segments")
		}
		prev = &threshold
	}
	return nil
}

// Save writes cfg as YAML to path.
func Save(cfg *models.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, common.DirPermissionNormal); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to create config directory")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, common.FilePermissionSecure); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "failed to write config file").
			WithContext("path", path)
	}
	return nil
}

// Exists reports whether a config file is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
