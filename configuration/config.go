package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Environment
	Environment string
	LogDir      string
	LogLevel    string

	// Discord Settings
	Discord struct {
		Token         string
		RateLimit     float64
		RateBurst     int
		MaxNameLength int
	}

	// Lifecycle Settings
	Lifecycle struct {
		InactiveDays    int
		ForumIDs        []string
		InfoChannelID   string
		ExemptThreadIDs []string
		ResolvedTagName string
		AutoLockTagName string
		ResolvedMarker  string
		LockedMarker    string
		TimeZone        string
		ForumPause      time.Duration
		ScanInterval    time.Duration
		ScanSchedule    string
	}

	// Database Settings, all empty disables the closure ledger database
	Database struct {
		User     string
		Password string
		Name     string
		Host     string
		Port     string
		Var      string
	}

	MetricsAddr string
}

var AppConfig Config

func Load() error {
	logger.Log.Info("Loading configuration...")

	if err := godotenv.Load(); err != nil {
		logger.Log.WithError(err).Warn("No .env file loaded, using process environment")
	}

	v := viper.New()
	if path := os.Getenv("THREADWARDEN_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			logger.Log.WithError(err).Warnf("Failed to read config file %s", path)
		}
	}

	cfg, err := LoadFrom(v)
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	AppConfig = cfg

	logger.Log.Info("Configuration loaded successfully")
	return nil
}

// LoadFrom builds a Config from v, falling back to the environment for every key.
func LoadFrom(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	cfg.Environment = v.GetString("ENVIRONMENT")
	cfg.LogDir = v.GetString("LOG_DIR")
	cfg.LogLevel = v.GetString("LOG_LEVEL")

	cfg.Discord.Token = v.GetString("DISCORD_TOKEN")
	cfg.Discord.RateLimit = getFloat(v, "PLATFORM_RATE_LIMIT", 5)
	cfg.Discord.RateBurst = getInt(v, "PLATFORM_RATE_BURST", 5)
	cfg.Discord.MaxNameLength = getInt(v, "MAX_NAME_LENGTH", 100)

	loadLifecycle(v, &cfg)

	cfg.Database.User = v.GetString("DB_USER")
	cfg.Database.Password = v.GetString("DB_PASSWORD")
	cfg.Database.Name = v.GetString("DB_NAME")
	cfg.Database.Host = v.GetString("DB_HOST")
	cfg.Database.Port = v.GetString("DB_PORT")
	cfg.Database.Var = v.GetString("DB_VAR")

	cfg.MetricsAddr = v.GetString("METRICS_ADDR")

	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_DIR", "logs")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("INACTIVE_DAYS", 15)
	v.SetDefault("RESOLVED_TAG_NAME", "Resolved")
	v.SetDefault("AUTO_LOCK_TAG_NAME", "Auto-Lock")
	v.SetDefault("RESOLVED_MARKER", "✅ - ")
	v.SetDefault("LOCKED_MARKER", "🔒 - ")
	v.SetDefault("TIMEZONE", "UTC")
	v.SetDefault("METRICS_ADDR", ":9090")
}

func loadLifecycle(v *viper.Viper, cfg *Config) {
	cfg.Lifecycle.InactiveDays = getInt(v, "INACTIVE_DAYS", 15)
	if cfg.Lifecycle.InactiveDays <= 0 {
		logger.Log.Warnf("INACTIVE_DAYS must be positive, got %d, using 15", cfg.Lifecycle.InactiveDays)
		cfg.Lifecycle.InactiveDays = 15
	}

	cfg.Lifecycle.ForumIDs = ParseIDList("AUTO_LOCK_FORUM_IDS", v.GetString("AUTO_LOCK_FORUM_IDS"))
	cfg.Lifecycle.ExemptThreadIDs = ParseIDList("EXEMPT_THREAD_IDS", v.GetString("EXEMPT_THREAD_IDS"))

	cfg.Lifecycle.InfoChannelID = strings.TrimSpace(v.GetString("INFO_CHANNEL_ID"))
	if cfg.Lifecycle.InfoChannelID == "0" {
		cfg.Lifecycle.InfoChannelID = ""
	}
	if cfg.Lifecycle.InfoChannelID != "" && !isSnowflake(cfg.Lifecycle.InfoChannelID) {
		errorhandler.HandleError(errorhandler.NewConfigurationError(
			fmt.Errorf("%q is not a Discord ID", cfg.Lifecycle.InfoChannelID), "INFO_CHANNEL_ID"))
		cfg.Lifecycle.InfoChannelID = ""
	}

	cfg.Lifecycle.ResolvedTagName = v.GetString("RESOLVED_TAG_NAME")
	cfg.Lifecycle.AutoLockTagName = v.GetString("AUTO_LOCK_TAG_NAME")
	cfg.Lifecycle.ResolvedMarker = v.GetString("RESOLVED_MARKER")
	cfg.Lifecycle.LockedMarker = v.GetString("LOCKED_MARKER")

	cfg.Lifecycle.TimeZone = v.GetString("TIMEZONE")
	if _, err := time.LoadLocation(cfg.Lifecycle.TimeZone); err != nil {
		errorhandler.HandleError(errorhandler.NewConfigurationError(err, "TIMEZONE"))
		cfg.Lifecycle.TimeZone = "UTC"
	}

	cfg.Lifecycle.ForumPause = getDuration(v, "FORUM_PAUSE", 30*time.Second)
	cfg.Lifecycle.ScanInterval = getDuration(v, "SCAN_INTERVAL", 24*time.Hour)
	if cfg.Lifecycle.ScanInterval <= 0 {
		logger.Log.Warn("SCAN_INTERVAL must be positive, using 24h")
		cfg.Lifecycle.ScanInterval = 24 * time.Hour
	}

	cfg.Lifecycle.ScanSchedule = strings.TrimSpace(v.GetString("SCAN_SCHEDULE"))
	if cfg.Lifecycle.ScanSchedule != "" && !gronx.IsValid(cfg.Lifecycle.ScanSchedule) {
		errorhandler.HandleError(errorhandler.NewConfigurationError(
			fmt.Errorf("invalid cron expression %q", cfg.Lifecycle.ScanSchedule), "SCAN_SCHEDULE"))
		cfg.Lifecycle.ScanSchedule = ""
	}
}

func validate(cfg *Config) error {
	if cfg.Discord.Token == "" {
		return errorhandler.NewConfigurationError(fmt.Errorf("DISCORD_TOKEN is not set"), "DISCORD_TOKEN")
	}
	if len(cfg.Lifecycle.ForumIDs) == 0 {
		logger.Log.Warn("No forums configured, the scan loop will have nothing to do")
	}
	return nil
}

// ParseIDList splits a comma-separated list of Discord IDs. Blank entries are
// skipped; any malformed entry discards the whole list.
func ParseIDList(key, raw string) []string {
	if strings.TrimSpace(raw) == "" {
		logger.Log.Warnf("%s is empty or not set", key)
		return []string{}
	}

	ids := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		id := strings.TrimSpace(part)
		if id == "" {
			continue
		}
		if !isSnowflake(id) {
			errorhandler.HandleError(errorhandler.NewConfigurationError(
				fmt.Errorf("%q is not a Discord ID", id), key))
			return []string{}
		}
		ids = append(ids, id)
	}
	return ids
}

// DatabaseEnabled reports whether any database setting was provided.
func (c *Config) DatabaseEnabled() bool {
	d := c.Database
	return d.User != "" || d.Password != "" || d.Name != "" || d.Host != "" || d.Port != ""
}

// MetricsEnabled reports whether the HTTP server should be started. Viper
// ignores empty environment values, so "off" is used to disable it.
func (c *Config) MetricsEnabled() bool {
	addr := strings.TrimSpace(c.MetricsAddr)
	return addr != "" && !strings.EqualFold(addr, "off")
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Lifecycle.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) InactivityThreshold() time.Duration {
	return time.Duration(c.Lifecycle.InactiveDays) * 24 * time.Hour
}

func isSnowflake(id string) bool {
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}

func getInt(v *viper.Viper, key string, fallback int) int {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		errorhandler.HandleError(errorhandler.NewConfigurationError(err, key))
		return fallback
	}
	return n
}

func getFloat(v *viper.Viper, key string, fallback float64) float64 {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		errorhandler.HandleError(errorhandler.NewConfigurationError(err, key))
		return fallback
	}
	return f
}

func getDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		errorhandler.HandleError(errorhandler.NewConfigurationError(err, key))
		return fallback
	}
	return d
}

// Redacted returns a copy of c with secrets masked, for printing.
func (c Config) Redacted() Config {
	if c.Discord.Token != "" {
		c.Discord.Token = "********"
	}
	if c.Database.Password != "" {
		c.Database.Password = "********"
	}
	return c
}

// Get returns the global configuration instance
func Get() *Config {
	return &AppConfig
}
