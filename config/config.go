// Package config loads run settings from defaults, an optional YAML file,
// BANKLOAN_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/bankloan/dataset"
	"github.com/YuminosukeSato/bankloan/metrics"
	"github.com/YuminosukeSato/bankloan/pkg/errors"
	"github.com/YuminosukeSato/bankloan/pkg/log"
	"github.com/YuminosukeSato/bankloan/report"
)

// EnvPrefix prefixes every environment variable, e.g. BANKLOAN_SEED or
// BANKLOAN_LOG_LEVEL.
const EnvPrefix = "BANKLOAN"

// Config holds every setting of an analysis run.
type Config struct {
	Data           string    `mapstructure:"data" yaml:"data"`
	OutDir         string    `mapstructure:"out_dir" yaml:"out_dir"`
	Seed           uint64    `mapstructure:"seed" yaml:"seed"`
	TrainProp      float64   `mapstructure:"train_prop" yaml:"train_prop"`
	Bootstraps     int       `mapstructure:"bootstraps" yaml:"bootstraps"`
	GridSize       int       `mapstructure:"grid_size" yaml:"grid_size"`
	Trees          int       `mapstructure:"trees" yaml:"trees"`
	Workers        int       `mapstructure:"workers" yaml:"workers"`
	Metric         string    `mapstructure:"metric" yaml:"metric"`
	Threshold      float64   `mapstructure:"threshold" yaml:"threshold"`
	ThresholdClass string    `mapstructure:"threshold_class" yaml:"threshold_class"`
	TopFeatures    int       `mapstructure:"top_features" yaml:"top_features"`
	PlotFormat     string    `mapstructure:"plot_format" yaml:"plot_format"`
	ModelOut       string    `mapstructure:"model_out" yaml:"model_out"`
	ResultsDB      string    `mapstructure:"results_db" yaml:"results_db"`
	Log            LogConfig `mapstructure:"log" yaml:"log"`
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the settings of the reference analysis.
func Default() *Config {
	return &Config{
		Data:           "UniversalBank.csv",
		OutDir:         "out",
		Seed:           123,
		TrainProp:      0.75,
		Bootstraps:     25,
		GridSize:       30,
		Trees:          1000,
		Workers:        0,
		Metric:         metrics.RocAUC,
		Threshold:      0.866,
		ThresholdClass: dataset.LevelNo,
		TopFeatures:    10,
		PlotFormat:     "png",
		Log:            LogConfig{Level: "info", Format: log.FormatJSON},
	}
}

// flagUsage documents every key; the flag name is the key with dots and
// underscores turned into dashes.
var flagUsage = map[string]string{
	"data":            "path of the bank-customer CSV",
	"out_dir":         "directory for plots, tables and the run summary",
	"seed":            "random seed for the split, resamples, grid and booster",
	"train_prop":      "proportion of rows in the training set",
	"bootstraps":      "number of bootstrap resamples",
	"grid_size":       "number of latin-hypercube candidates",
	"trees":           "number of boosting iterations",
	"workers":         "tuning workers (0 = number of CPUs)",
	"metric":          "metric used to select the best candidate",
	"threshold":       "probability cut-off applied to threshold_class",
	"threshold_class": "class whose probability the threshold applies to (No or Yes)",
	"top_features":    "features shown in the importance plot",
	"plot_format":     "plot file format (png, svg, pdf, jpg)",
	"model_out":       "optional path for the fitted model JSON",
	"results_db":      "optional SQLite file receiving the tuning results",
	"log.level":       "log level (debug, info, warn, error)",
	"log.format":      "log format (json, console)",
}

// FlagName maps a config key to its command-line flag.
func FlagName(key string) string {
	return strings.NewReplacer(".", "-", "_", "-").Replace(key)
}

// RegisterFlags adds one flag per key to fs, with the defaults as values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String(FlagName("data"), d.Data, flagUsage["data"])
	fs.String(FlagName("out_dir"), d.OutDir, flagUsage["out_dir"])
	fs.Uint64(FlagName("seed"), d.Seed, flagUsage["seed"])
	fs.Float64(FlagName("train_prop"), d.TrainProp, flagUsage["train_prop"])
	fs.Int(FlagName("bootstraps"), d.Bootstraps, flagUsage["bootstraps"])
	fs.Int(FlagName("grid_size"), d.GridSize, flagUsage["grid_size"])
	fs.Int(FlagName("trees"), d.Trees, flagUsage["trees"])
	fs.Int(FlagName("workers"), d.Workers, flagUsage["workers"])
	fs.String(FlagName("metric"), d.Metric, flagUsage["metric"])
	fs.Float64(FlagName("threshold"), d.Threshold, flagUsage["threshold"])
	fs.String(FlagName("threshold_class"), d.ThresholdClass, flagUsage["threshold_class"])
	fs.Int(FlagName("top_features"), d.TopFeatures, flagUsage["top_features"])
	fs.String(FlagName("plot_format"), d.PlotFormat, flagUsage["plot_format"])
	fs.String(FlagName("model_out"), d.ModelOut, flagUsage["model_out"])
	fs.String(FlagName("results_db"), d.ResultsDB, flagUsage["results_db"])
	fs.String(FlagName("log.level"), d.Log.Level, flagUsage["log.level"])
	fs.String(FlagName("log.format"), d.Log.Format, flagUsage["log.format"])
}

// BindFlags binds every registered flag present in fs to its key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key := range flagUsage {
		f := fs.Lookup(FlagName(key))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "bind flag %s", f.Name)
		}
	}
	return nil
}

// SetDefaults registers the defaults so that environment variables are
// visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data", d.Data)
	v.SetDefault("out_dir", d.OutDir)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("train_prop", d.TrainProp)
	v.SetDefault("bootstraps", d.Bootstraps)
	v.SetDefault("grid_size", d.GridSize)
	v.SetDefault("trees", d.Trees)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("metric", d.Metric)
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("threshold_class", d.ThresholdClass)
	v.SetDefault("top_features", d.TopFeatures)
	v.SetDefault("plot_format", d.PlotFormat)
	v.SetDefault("model_out", d.ModelOut)
	v.SetDefault("results_db", d.ResultsDB)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load resolves the configuration. file may be empty.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Data == "":
		return errors.NewValidationError("data", "is required", c.Data)
	case !(c.TrainProp > 0 && c.TrainProp < 1):
		return errors.NewValidationError("train_prop", "must be in (0, 1)", c.TrainProp)
	case c.Bootstraps < 1:
		return errors.NewValidationError("bootstraps", "must be >= 1", c.Bootstraps)
	case c.GridSize < 1:
		return errors.NewValidationError("grid_size", "must be >= 1", c.GridSize)
	case c.Trees < 1:
		return errors.NewValidationError("trees", "must be >= 1", c.Trees)
	case c.Workers < 0:
		return errors.NewValidationError("workers", "must be >= 0", c.Workers)
	case !metrics.Known(c.Metric):
		return errors.NewValidationError("metric", "must be one of "+strings.Join(metrics.Names(), ", "), c.Metric)
	case !(c.Threshold > 0 && c.Threshold < 1):
		return errors.NewValidationError("threshold", "must be in (0, 1)", c.Threshold)
	case c.ThresholdClass != dataset.LevelNo && c.ThresholdClass != dataset.LevelYes:
		return errors.NewValidationError("threshold_class", "must be No or Yes", c.ThresholdClass)
	case c.TopFeatures < 0:
		return errors.NewValidationError("top_features", "must be >= 0", c.TopFeatures)
	}
	if !validPlotFormat(c.PlotFormat) {
		return errors.NewValidationError("plot_format", "must be one of "+strings.Join(report.Formats, ", "), c.PlotFormat)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != log.FormatJSON && c.Log.Format != log.FormatConsole {
		return errors.NewValidationError("log.format", "must be json or console", c.Log.Format)
	}
	return nil
}

func validPlotFormat(f string) bool {
	for _, known := range report.Formats {
		if f == known {
			return true
		}
	}
	return false
}
