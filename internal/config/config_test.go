package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "esiplanner.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
catalog_dir: /data/pdf
parser: vobject
workers: -3
mapping_file: /data/asignaturasInfo.tsv
feeds:
  - id: extra
    url: https://example.com/extra.ics
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/pdf", cfg.CatalogDir)
	assert.Equal(t, "arran4", cfg.Parser)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, "archivos_adjuntos", cfg.AttachmentsDir)
	assert.Equal(t, "0 3 * * *", cfg.Rebuild)
	assert.Equal(t, "/data/asignaturasInfo.tsv", cfg.MappingFile)
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "extra", cfg.Feeds[0].ID)
	assert.Nil(t, cfg.BasicAuth)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":       "listen: [",
		"bad cron":       "rebuild: every day",
		"feed no url":    "feeds:\n  - id: a\n",
		"duplicate feed": "feeds:\n  - {id: a, url: http://x}\n  - {id: a, url: http://y}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Parser = "emersion"
	cfg.BasicAuth = &BasicAuthConfig{Username: "admin", Password: "secret"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Error(t, Save("", cfg))
	assert.Error(t, Save(path, nil))
	_, err = Load("")
	assert.Error(t, err)
}
