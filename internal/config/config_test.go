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
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 3, cfg.Sync.MaxRetries)
	assert.Equal(t, time.Second, cfg.Sync.BaseDelay)
	assert.Equal(t, int64(300), cfg.Cart.Delivery.Fee)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Promotions)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bakery.yaml")
	yaml := `
catalog:
  ttl: 90s
  page_size: 6
cart:
  delivery:
    fee: 450
    free_threshold: 10000
promotions:
  - id: choc10
    name: Chocolate week
    type: percentage
    value: 10
    applicable_product_names: [Chocolate]
    active: true
    ends_at: "2026-12-31T23:59:59Z"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("BAKERY_HTTP_ADDR", ":9999")
	t.Setenv("BAKERY_SYNC_BASE_DELAY", "250ms")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.BaseDelay)
	assert.Equal(t, 90*time.Second, cfg.Catalog.TTL)
	assert.Equal(t, 6, cfg.Catalog.PageSize)
	assert.Equal(t, int64(10000), cfg.Cart.Delivery.FreeThreshold)

	require.Len(t, cfg.Promotions, 1)
	promo := cfg.Promotions[0]
	assert.Equal(t, "choc10", promo.ID)
	assert.Equal(t, []string{"Chocolate"}, promo.ApplicableProductNames)
	assert.Equal(t, time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC), promo.EndsAt.UTC())
	_, err = promo.Promotion()
	assert.NoError(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("BAKERY_CATALOG_PAGE_SIZE", "0")
	t.Setenv("BAKERY_SYNC_MAX_RETRIES", "-1")

	_, err := Load(viper.New(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.page_size")
	assert.Contains(t, err.Error(), "sync.max_retries")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
