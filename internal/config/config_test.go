package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Threshold)
	assert.Equal(t, 10, cfg.MinCircleRadius)
	assert.Equal(t, 20, cfg.MaxCircleRadius)
	assert.Equal(t, 20, cfg.GridTolerance)
	assert.Equal(t, 0.5, cfg.FillThreshold)
	assert.Equal(t, 5, cfg.OptionsPerQuestion)
	assert.Equal(t, 1200, cfg.MaxWidth)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.False(t, cfg.Debug())
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("OMR_GRID_TOLERANCE", "35")
	t.Setenv("OMR_LOG_LEVEL", "debug")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 35, cfg.GridTolerance)
	assert.True(t, cfg.Debug())

	opts := cfg.PipelineOptions()
	assert.Equal(t, 35, opts.Config.GridTolerance)
	assert.True(t, opts.Debug)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omr.env")
	require.NoError(t, os.WriteFile(path, []byte("OMR_THRESHOLD=100\nOMR_FILL_THRESHOLD=0.4\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("OMR_THRESHOLD")
		os.Unsetenv("OMR_FILL_THRESHOLD")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Threshold)
	assert.Equal(t, 0.4, cfg.FillThreshold)
	assert.Equal(t, 100, cfg.ImageProcessing().Threshold)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"fill threshold above one", "OMR_FILL_THRESHOLD", "1.5"},
		{"threshold above 255", "OMR_THRESHOLD", "400"},
		{"max radius below min", "OMR_MAX_CIRCLE_RADIUS", "5"},
		{"unknown log level", "OMR_LOG_LEVEL", "verbose"},
		{"zero workers", "OMR_WORKERS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
