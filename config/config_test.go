package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 10*time.Second, cfg.Sync.QuietPeriod)
	require.Equal(t, 5*time.Second, cfg.Sync.RequestTimeout)
	require.Equal(t, 1024, cfg.Reconciler.DedupWindow)
	require.False(t, cfg.Sync.RosterAuthority)
	require.Equal(t, "info", cfg.Logging.SyncLoggerLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	vip := viper.New()
	err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"), vip)
	require.Error(t, err)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rallysync.json")
	payload := `{
		"sync": {"quiet-period": "30s", "roster-authority": true},
		"reconciler": {"dedup-window": 64}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	vip := viper.New()
	require.NoError(t, LoadConfig(path, vip))
	cfg, err := FromViper(vip)
	require.NoError(t, err)

	require.Equal(t, 30*time.Second, cfg.Sync.QuietPeriod)
	require.True(t, cfg.Sync.RosterAuthority)
	require.Equal(t, 64, cfg.Reconciler.DedupWindow)
	// untouched sections keep their defaults
	require.Equal(t, 5*time.Second, cfg.Sync.RequestTimeout)
	require.Equal(t, 512, cfg.Sync.QueueSize)
}
