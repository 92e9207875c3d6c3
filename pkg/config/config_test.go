package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/cornertext.go/pkg/config"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CORNERTEXT_CONFIG", "")

	v, err := config.New()
	require.NoError(t, err)
	c, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "info", c.Log.Level)
	assert.False(t, c.Annotations.PersistBackground)
	assert.Equal(t, 50, c.Log.MaxSizeMB)
	assert.Equal(t, "dicom.db", filepath.Base(c.Database.Path))
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	cfgPath := filepath.Join(dir, "cornertext.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
database:
  path: /srv/dicom.db
annotations:
  persist_background: true
log:
  level: debug
`), 0o644))
	t.Setenv("CORNERTEXT_CONFIG", cfgPath)
	t.Setenv("CORNERTEXT_LOG_JSON", "true")

	v, err := config.New()
	require.NoError(t, err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "info", "")
	require.NoError(t, flags.Parse([]string{"--log-level", "warn"}))
	require.NoError(t, v.BindPFlag("log.level", flags.Lookup("log-level")))

	c, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/srv/dicom.db", c.Database.Path)
	assert.True(t, c.Annotations.PersistBackground)
	assert.True(t, c.Log.JSON)
	assert.Equal(t, "warn", c.Log.Level)
}

func TestNew_BrokenFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log: [unterminated"), 0o644))
	t.Setenv("CORNERTEXT_CONFIG", cfgPath)

	_, err := config.New()
	require.Error(t, err)
}
