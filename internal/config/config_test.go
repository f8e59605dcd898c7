package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 20.0, cfg.Report.IVThreshold)
	assert.Equal(t, 5, cfg.Report.TopN)
	assert.Equal(t, 10, cfg.Report.CostBins)
	assert.Equal(t, "csv", cfg.Source.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Cache.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
report:
  iv_threshold: 35
  top_n: 3
server:
  port: 9090
source:
  driver: csv
  dir: /var/data
cache:
  enabled: true
  ttl_sec: 60
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 35.0, cfg.Report.IVThreshold)
	assert.Equal(t, 3, cfg.Report.TopN)
	assert.Equal(t, 10, cfg.Report.CostBins, "untouched keys keep defaults")
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/data", cfg.Source.Dir)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.Addr, "default addr survives partial cache block")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"negative threshold", "report:\n  iv_threshold: -1\n"},
		{"zero top_n", "report:\n  top_n: 0\n"},
		{"one cost bin", "report:\n  cost_bins: 1\n"},
		{"unknown driver", "source:\n  driver: sqlite\n"},
		{"db driver without dsn", "source:\n  driver: postgres\n"},
		{"port out of range", "server:\n  port: 70000\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestValidateAcceptsDatabaseDriverWithDSN(t *testing.T) {
	path := writeConfig(t, `
source:
  driver: postgres
  dsn: postgres://localhost/revlens?sslmode=disable
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Source.Driver)
}
