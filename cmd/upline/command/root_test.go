package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	t.Setenv("DEBUG", "")
	t.Setenv("INPUTRC", "")

	root := Root()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func viewConfig(t *testing.T, args ...string) Config {
	t.Helper()

	out, _, err := execute(t, append([]string{"config", "view"}, args...)...)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	return cfg
}

func Test_ConfigPriority(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", "name: fromfile\nhistory-size: 5\nexpand-history: false\n")

	cfg := viewConfig(t, "--config", cfgFile)
	assert.Equal(t, "fromfile", cfg.Name)
	assert.Equal(t, 5, cfg.HistorySize)
	assert.False(t, cfg.ExpandHistory)

	t.Setenv("UPLINE_HISTORY_SIZE", "7")
	cfg = viewConfig(t, "--config", cfgFile)
	assert.Equal(t, 7, cfg.HistorySize, "environment overrides the config file")

	cfg = viewConfig(t, "--config", cfgFile, "--history-size", "9")
	assert.Equal(t, 9, cfg.HistorySize, "flags override the environment")
}

func Test_ConfigDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	out, _, err := execute(t, "config", "view", "--config", missing)
	require.NoError(t, err)
	assert.Contains(t, out, "does not exist")

	cfg := viewConfig(t, "--config", missing)
	want := Config{
		Name:          "upline",
		HistorySize:   10000,
		ExpandHistory: true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatal(diff)
	}
}

func Test_ConfigPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "c.yaml")

	out, _, err := execute(t, "config", "path", "--config", p)
	require.NoError(t, err)
	assert.Equal(t, p+"\n", out)
}

func Test_ConfigVersionWarning(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", "version: 99.0.0\n")

	_, errOut, err := execute(t, "config", "view", "--config", cfgFile)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Warning:")
}

func Test_ConfigInvalid(t *testing.T) {
	cfgFile := writeFile(t, "config.yaml", "name: [unterminated\n")

	_, _, err := execute(t, "config", "view", "--config", cfgFile)
	assert.ErrorContains(t, err, "error loading config file")
}

func Test_validateConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr int
	}{
		{
			name: "valid",
			cfg:  Config{Name: "upline", HistorySize: 10},
		},
		{
			name: "history file without name",
			cfg:  Config{HistoryFile: "/tmp/h"},
		},
		{
			name:    "everything wrong",
			cfg:     Config{HistorySize: -1, Inputrc: "/nonexistent/inputrc"},
			wantErr: 3,
		},
	}

	for _, c := range cases {
		cc := c
		t.Run(cc.name, func(t *testing.T) {
			t.Parallel()

			err := validateConfig(&cc.cfg)
			if cc.wantErr == 0 {
				assert.NoError(t, err)
				return
			}

			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			assert.Len(t, merr.Errors, cc.wantErr)
		})
	}
}

func Test_Version(t *testing.T) {
	out, _, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Equal(t, "upline version v0.1.0\n", out)
}

func Test_MetricsFile(t *testing.T) {
	metricsFile := filepath.Join(t.TempDir(), "upline.prom")

	_, _, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "none"), "--metrics-file", metricsFile)
	require.NoError(t, err)

	b, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `upline_build_info{command="version",version="0.1.0"} 1`)
}

func Test_LogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "upline.log")

	_, _, err := execute(t, "version", "--config", filepath.Join(t.TempDir(), "none"), "--debug", "--log-file", logFile)
	require.NoError(t, err)

	b, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"starting"`)
}
