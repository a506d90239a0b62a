package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 21, cfg.Eligibility.RestrictionDays)
	assert.Equal(t, 10, cfg.Inventory.LowStockThreshold)
	assert.Equal(t, 1, cfg.Voucher.GraceDays)
	assert.Equal(t, 7, cfg.Voucher.MinValidityDays)
	assert.Equal(t, 10, cfg.Codes.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Inventory.CacheTTL)
	assert.False(t, cfg.SMS.Enabled)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Equal(t, "dev", cfg.Log.Version)
	assert.Equal(t, 100, cfg.Log.SampleInitial)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ELIGIBILITY_RESTRICTION_DAYS", "30")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("DB_PORT", "not-a-port")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("CACHE_PACKAGES_TTL", "90s")
	t.Setenv("APP_VERSION", "2.1.0")
	t.Setenv("LOG_SAMPLE_INITIAL", "0")

	cfg := Load()
	assert.Equal(t, 30, cfg.Eligibility.RestrictionDays)
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, byte(2), cfg.MQTT.QoS)
	assert.Equal(t, 90*time.Second, cfg.Inventory.CacheTTL)
	assert.Equal(t, "2.1.0", cfg.Log.Version)
	assert.Zero(t, cfg.Log.SampleInitial)
}

func TestVoucherLocation(t *testing.T) {
	assert.Equal(t, time.UTC, VoucherConfig{Timezone: "Not/AZone"}.Location())
	assert.Equal(t, "Africa/Lagos", VoucherConfig{Timezone: "Africa/Lagos"}.Location().String())
}
