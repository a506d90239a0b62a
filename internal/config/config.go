package config

import (
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // Africa/Lagos on hosts without zoneinfo

	commoncfg "github.com/iamyinka/reliefproj/internal/common/config"
)

// Config relief-data (HTTP API) settings
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled   bool
	AutoMigrate bool
	Database    commoncfg.DatabaseConfig
	Redis       commoncfg.RedisConfig
	Log         LogConfig
	MQTT        MQTTConfig
	SMS         SMSConfig
	Eligibility EligibilityConfig
	Inventory   InventoryConfig
	Voucher     VoucherConfig
	Codes       CodesConfig
	Events      EventsConfig
	Stats       StatsConfig
}

// LogConfig zap settings; Version is stamped on every entry
type LogConfig struct {
	Level            string
	Format           string
	Version          string
	SampleInitial    int
	SampleThereafter int
}

// MQTTConfig live scanner feed; disabled by default
type MQTTConfig struct {
	Enabled bool
	commoncfg.MQTTConfig
	TopicPrefix string
}

// SMSConfig outbound SMS gateway
type SMSConfig struct {
	Enabled    bool
	GatewayURL string
	APIKey     string
	SenderID   string
	Timeout    time.Duration
}

// EligibilityConfig re-application rules
type EligibilityConfig struct {
	RestrictionDays int
}

// InventoryConfig stock alerts and the public catalog cache
type InventoryConfig struct {
	LowStockThreshold int
	CacheTTL          time.Duration
}

// VoucherConfig pickup expiry; Timezone decides what "today" means
type VoucherConfig struct {
	GraceDays       int
	MinValidityDays int
	Timezone        string
}

// Location falls back to UTC when Timezone cannot be loaded.
func (c VoucherConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CodesConfig bounds the collision retry loop for generated codes
type CodesConfig struct {
	MaxAttempts int
}

type EventsConfig struct {
	Enabled bool
	Stream  string
	MaxLen  int64
}

// StatsConfig cron spec for the daily_stats snapshot (robfig/cron, 5 fields)
type StatsConfig struct {
	Enabled  bool
	CronSpec string
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Without a database the service runs on in-memory repositories.
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.AutoMigrate = getEnv("DB_AUTO_MIGRATE", "false") == "true"
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "relief",
		SSLMode:  "disable",
		MaxConns: 20,
		MaxIdle:  5,
	}
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis = commoncfg.RedisConfig{Addr: "localhost:6379"}
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")
	cfg.Log.Version = getEnv("APP_VERSION", "dev")
	cfg.Log.SampleInitial = parseInt(getEnv("LOG_SAMPLE_INITIAL", "100"), 100)
	cfg.Log.SampleThereafter = parseInt(getEnv("LOG_SAMPLE_THEREAFTER", "100"), 100)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.MQTTConfig = commoncfg.MQTTConfig{Broker: "tcp://localhost:1883", ClientID: "relief-data", QoS: 1}
	cfg.MQTT.LoadFromEnv("MQTT")
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", "relief/pickups")

	cfg.SMS.Enabled = getEnv("SMS_ENABLED", "false") == "true"
	cfg.SMS.GatewayURL = getEnv("SMS_GATEWAY_URL", "")
	cfg.SMS.APIKey = getEnv("SMS_API_KEY", "")
	cfg.SMS.SenderID = getEnv("SMS_SENDER_ID", "GCRelief")
	cfg.SMS.Timeout = parseDuration(getEnv("SMS_TIMEOUT", "10s"), 10*time.Second)

	cfg.Eligibility.RestrictionDays = parseInt(getEnv("ELIGIBILITY_RESTRICTION_DAYS", "21"), 21)
	cfg.Inventory.LowStockThreshold = parseInt(getEnv("INVENTORY_LOW_STOCK_THRESHOLD", "10"), 10)
	cfg.Inventory.CacheTTL = parseDuration(getEnv("CACHE_PACKAGES_TTL", "5m"), 5*time.Minute)

	cfg.Voucher.GraceDays = parseInt(getEnv("VOUCHER_GRACE_DAYS", "1"), 1)
	cfg.Voucher.MinValidityDays = parseInt(getEnv("VOUCHER_MIN_VALIDITY_DAYS", "7"), 7)
	cfg.Voucher.Timezone = getEnv("VOUCHER_TIMEZONE", "Africa/Lagos")

	cfg.Codes.MaxAttempts = parseInt(getEnv("CODES_MAX_ATTEMPTS", "10"), 10)


	cfg.Events.Enabled = getEnv("EVENTS_ENABLED", "true") == "true"
	cfg.Events.Stream = getEnv("EVENTS_STREAM", "relief:events")
	cfg.Events.MaxLen = int64(parseInt(getEnv("EVENTS_STREAM_MAXLEN", "10000"), 10000))

	cfg.Stats.Enabled = getEnv("STATS_ENABLED", "true") == "true"
	cfg.Stats.CronSpec = getEnv("STATS_CRON", "55 23 * * *")

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
