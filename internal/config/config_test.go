package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(viper.New(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
	assert.Equal(t, "FAC", cfg.InvoicePrefix)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)

	rate, err := cfg.TaxRate()
	require.NoError(t, err)
	assert.Equal(t, "0.19", rate.String())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("APP_PORT=9000\nSTORAGE_DRIVER=memory\nINVOICE_PREFIX=B001\n"), 0o600))
	t.Setenv("INVOICE_PREFIX", "T001")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")

	cfg, err := load(viper.New(), dir)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, "T001", cfg.InvoicePrefix)
	assert.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{"tax rate not a number", map[string]string{"SALES_TAX_RATE": "abc"}},
		{"tax rate above one", map[string]string{"SALES_TAX_RATE": "19"}},
		{"negative credit days", map[string]string{"CREDIT_DAYS_DEFAULT": "-1"}},
		{"production without secret", map[string]string{"APP_ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(viper.New(), t.TempDir())
			assert.Error(t, err)
		})
	}
}
