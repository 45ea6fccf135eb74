// Package config loads runtime settings for the OMR server.
//
// Settings come from, in increasing precedence: built-in defaults, an
// optional dotenv file and OMR_* environment variables. Tool arguments passed
// per call override the loaded values for that call only.
package config

import (
	"os"
	"runtime"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/ironsheep/omr-tools-mcp/internal/answers"
	"github.com/ironsheep/omr-tools-mcp/internal/detection"
	"github.com/ironsheep/omr-tools-mcp/internal/imaging"
	"github.com/ironsheep/omr-tools-mcp/internal/pipeline"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "OMR"

// DefaultEnvFile is read when present; its absence is not an error.
const DefaultEnvFile = ".env"

// Config holds the server settings.
type Config struct {
	Threshold          int     `validate:"min=1,max=255"`
	MinCircleRadius    int     `validate:"min=1"`
	MaxCircleRadius    int     `validate:"gtefield=MinCircleRadius"`
	GridTolerance      int     `validate:"min=0"`
	FillThreshold      float64 `validate:"gt=0,lt=1"`
	OptionsPerQuestion int     `validate:"min=1"`
	MaxWidth           int     `validate:"min=1"`
	Workers            int     `validate:"min=1"`
	LogLevel           string  `validate:"oneof=debug info"`
	OCRLanguage        string  `validate:"required"`
}

// Load reads configuration from envFile (skipped when it does not exist) and
// the environment. An empty envFile means DefaultEnvFile.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "config: load %s", envFile)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config: stat %s", envFile)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := detection.DefaultImageProcessingConfig()
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("min_circle_radius", d.MinCircleRadius)
	v.SetDefault("max_circle_radius", d.MaxCircleRadius)
	v.SetDefault("grid_tolerance", d.GridTolerance)
	v.SetDefault("fill_threshold", d.FillThreshold)
	v.SetDefault("options_per_question", answers.DefaultOptionsPerQuestion)
	v.SetDefault("max_width", imaging.DefaultMaxWidth)
	v.SetDefault("workers", runtime.NumCPU())
	v.SetDefault("log_level", "info")
	v.SetDefault("ocr_language", "eng")
}

var validate = validator.New()

// Validate checks every field against its allowed range.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "config: invalid settings")
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// ImageProcessing returns the detection thresholds.
func (c *Config) ImageProcessing() detection.ImageProcessingConfig {
	return detection.ImageProcessingConfig{
		Threshold:       c.Threshold,
		MinCircleRadius: c.MinCircleRadius,
		MaxCircleRadius: c.MaxCircleRadius,
		GridTolerance:   c.GridTolerance,
		FillThreshold:   c.FillThreshold,
	}
}

// PipelineOptions returns pipeline options built from the configuration.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		Config:             c.ImageProcessing(),
		OptionsPerQuestion: c.OptionsPerQuestion,
		MaxWidth:           c.MaxWidth,
		Workers:            c.Workers,
		Debug:              c.Debug(),
	}
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Threshold:          v.GetInt("threshold"),
		MinCircleRadius:    v.GetInt("min_circle_radius"),
		MaxCircleRadius:    v.GetInt("max_circle_radius"),
		GridTolerance:      v.GetInt("grid_tolerance"),
		FillThreshold:      v.GetFloat64("fill_threshold"),
		OptionsPerQuestion: v.GetInt("options_per_question"),
		MaxWidth:           v.GetInt("max_width"),
		Workers:            v.GetInt("workers"),
		LogLevel:           v.GetString("log_level"),
		OCRLanguage:        v.GetString("ocr_language"),
	}
}
