package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paveg/featurize/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trainCSV = `id,x1_bin,x2_num,x3_txtcat,x4_numcat,y
1,1,1.5,a,10,0
2,0,2.5,b,20,1
3,1,NA,a,30,0
4,0,3,c,10,0
5,1,8.5,b,20,0
6,0,6,a,10,1
7,1,0.5,c,30,0
8,0,7,a,20,0
`

func writeTrain(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "train.csv")
	require.NoError(t, os.WriteFile(path, []byte(trainCSV), 0o600))
	return path
}

func TestRun(t *testing.T) {
	input := writeTrain(t)

	t.Run("csv to stdout", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, run([]string{"-input", input, "-log-level", "warn"}, &stdout, &stderr))

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		require.Len(t, lines, 9)
		assert.Equal(t, "x1_bin,x4_numcat_1,x4_numcat_2,x3_txtcat_b,x3_txtcat_c,x2_num", lines[0])
		assert.Empty(t, stderr.String())
	})

	t.Run("parquet output with describe", func(t *testing.T) {
		output := filepath.Join(t.TempDir(), "X.parquet")
		var stdout, stderr bytes.Buffer
		require.NoError(t, run([]string{"-input", input, "-output", output, "-describe", "-poly"}, &stdout, &stderr))

		info, err := os.Stat(output)
		require.NoError(t, err)
		assert.Positive(t, info.Size())

		assert.Contains(t, stdout.String(), "COLUMN")
		assert.Contains(t, stdout.String(), "x2_num^2")
		assert.Contains(t, stderr.String(), `"msg":"feature matrix written"`)
		assert.Contains(t, stderr.String(), `"run_id"`)
	})

	t.Run("upsampling and row limit", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		args := []string{"-input", input, "-rows", "4", "-upsample", "0.5", "-seed", "7", "-log-level", "error"}
		require.NoError(t, run(args, &stdout, &stderr))

		// three majority rows plus three drawn minority rows
		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		assert.Len(t, lines, 7)
	})

	t.Run("parallel with metrics", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, run([]string{"-input", input, "-parallel", "-metrics"}, &stdout, &stderr))
		assert.Contains(t, stderr.String(), `"msg":"pipeline metrics"`)
	})
}

func TestRunErrors(t *testing.T) {
	input := writeTrain(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing input flag", []string{}, "-input is required"},
		{"missing file", []string{"-input", filepath.Join(t.TempDir(), "none.csv")}, "opening input"},
		{"bad format", []string{"-input", input, "-format", "xml"}, "unsupported format"},
		{"bad ratio", []string{"-input", input, "-upsample", "1"}, "UpsampleRatio"},
		{"unknown columns rejected", []string{"-input", input, "-unknown", "error", "-id", ""}, "SchemaError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			err := run(tt.args, &stdout, &stderr)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunVersion(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"-version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "featurize "))
}

func TestConfigPrecedence(t *testing.T) {
	input := writeTrain(t)
	cfgPath := filepath.Join(t.TempDir(), "featurize.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("polynomial: true\nlog_level: error\n"), 0o600))

	t.Setenv("FEATURIZE_POLYNOMIAL", "false")
	t.Setenv("FEATURIZE_LOG_LEVEL", "debug")

	t.Run("file overrides env", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		require.NoError(t, run([]string{"-input", input, "-config", cfgPath}, &stdout, &stderr))
		assert.Contains(t, stdout.String(), "x2_num^2")
		assert.Empty(t, stderr.String())
	})

	t.Run("flags override file", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		args := []string{"-input", input, "-config", cfgPath, "-poly=false", "-log-level", "info"}
		require.NoError(t, run(args, &stdout, &stderr))
		assert.NotContains(t, stdout.String(), "x2_num^2")
		assert.Contains(t, stderr.String(), `"level":"info"`)
	})
}

func TestApplyFlag(t *testing.T) {
	cfg := config.NewConfig()
	applyFlag(&cfg, config.Config{VarianceThreshold: 0.001}, "variance")
	assert.True(t, cfg.VarianceFilter)
	assert.InDelta(t, 0.001, cfg.VarianceThreshold, 1e-12)

	applyFlag(&cfg, config.Config{Seed: 9}, "seed")
	assert.Equal(t, uint64(9), cfg.Seed)
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		explicit, path, want string
	}{
		{"", "data.parquet", formatParquet},
		{"", "data.CSV", formatCSV},
		{"", "", formatCSV},
		{"PARQUET", "data.csv", formatParquet},
	}
	for _, tt := range tests {
		got, err := resolveFormat(tt.explicit, tt.path, formatCSV)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
