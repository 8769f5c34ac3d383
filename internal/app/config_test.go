package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LEDGER_BASE_URL", "https://ledger.example.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8787", cfg.AppAddr)
	assert.Equal(t, "raw", cfg.PrintMode)
	assert.Equal(t, "postgres", cfg.CatalogStore)
	assert.Equal(t, 30*time.Second, cfg.SyncInterval)
	assert.Equal(t, 20*time.Second, cfg.PrintHelperTimeout)
	assert.True(t, cfg.CutPaperEnabled)
	assert.True(t, cfg.OpenDrawerOnCash)
	assert.False(t, cfg.TurboModeEnabled)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresLedger(t *testing.T) {
	t.Setenv("LEDGER_BASE_URL", "")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsUnknownModes(t *testing.T) {
	t.Setenv("LEDGER_BASE_URL", "https://ledger.example.test")

	t.Setenv("PRINT_MODE", "laser")
	_, err := LoadConfig()
	require.ErrorContains(t, err, "PRINT_MODE")

	t.Setenv("PRINT_MODE", "html")
	t.Setenv("CATALOG_STORE", "sqlite")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "CATALOG_STORE")
}

func TestLoadConfigReadsEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.env")
	require.NoError(t, os.WriteFile(path, []byte("POS_STORE_NAME=Farmacia Norte\nPOS_BRANCH_ID=7\n"), 0o600))
	t.Setenv(EnvFileVar, path)
	t.Setenv("LEDGER_BASE_URL", "https://ledger.example.test")
	t.Setenv("POS_BRANCH_ID", "3")
	t.Cleanup(func() { _ = os.Unsetenv("POS_STORE_NAME") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "Farmacia Norte", cfg.StoreName)
	assert.Equal(t, int64(3), cfg.BranchID, "process environment wins over the file")
}

func TestLoadConfigMissingEnvFile(t *testing.T) {
	t.Setenv(EnvFileVar, filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("LEDGER_BASE_URL", "https://ledger.example.test")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "absent.env")
}

func TestInTestModeFollowsEnvironment(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestConfigDerivedValues(t *testing.T) {
	cfg := &Config{
		StoreName:        "Abarrotes Centro",
		StorePhone:       "555-0100",
		PrinterDevice:    "TM-T20",
		CutPaperEnabled:  true,
		OpenDrawerOnCash: true,
	}
	assert.Equal(t, "Abarrotes Centro", cfg.Branch().Name)
	assert.Equal(t, "555-0100", cfg.Branch().Phone)

	defaults := cfg.SettingsDefaults()
	assert.Equal(t, "TM-T20", defaults.SelectedPrinter)
	assert.True(t, defaults.CutPaper)
	assert.False(t, defaults.TurboMode)
}
