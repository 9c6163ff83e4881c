package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"healthops/internal/models"
)

type Config struct {
	App             AppConfig        `yaml:"app"`
	Logging         LoggingConfig    `yaml:"logging"`
	Store           StoreConfig      `yaml:"store"`
	Monitoring      MonitoringConfig `yaml:"monitoring"`
	API             APIConfig        `yaml:"api"`
	Exports         ExportConfig     `yaml:"exports"`
	Console         ConsoleConfig    `yaml:"console"`
	CampCodePrefix  string           `yaml:"camp_code_prefix"`
	BookingIDPrefix string           `yaml:"booking_id_prefix"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type StoreConfig struct {
	Backend string       `yaml:"backend"`
	SQLite  SQLiteConfig `yaml:"sqlite"`
	Redis   RedisConfig  `yaml:"redis"`
}

type SQLiteConfig struct {
	Path   string       `yaml:"path"`
	Backup BackupConfig `yaml:"backup"`
}

// BackupConfig schedules VACUUM INTO snapshots of the sqlite store.
type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	Dir           string        `yaml:"dir"`
	RetentionDays int           `yaml:"retention_days"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Port int `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

// APIRateLimitConfig budgets requests per client and permission. Exports
// default to the general rate.
type APIRateLimitConfig struct {
	RPS       float64 `yaml:"rps"`
	ExportRPS float64 `yaml:"export_rps"`
	Burst     int     `yaml:"burst"`
}

type ExportConfig struct {
	Path            string       `yaml:"path"`
	CurrencySymbol  string       `yaml:"currency_symbol"`
	DateFormat      string       `yaml:"date_format"`
	TimestampFormat string       `yaml:"timestamp_format"`
	Sheets          SheetsConfig `yaml:"sheets"`
	Sync            SyncConfig   `yaml:"sync"`
}

// SyncConfig controls the background re-export of views after lifecycle
// events.
type SyncConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Sink         string        `yaml:"sink"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	QueueKey     string        `yaml:"queue_key"`
}

type SheetsConfig struct {
	Enabled         bool   `yaml:"enabled"`
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
}

type ConsoleConfig struct {
	Timezone                 string   `yaml:"timezone"`
	PageSize                 int      `yaml:"page_size"`
	LargeCollectionThreshold int      `yaml:"large_collection_threshold"`
	WindowSize               int      `yaml:"window_size"`
	PartnerAdjustments       []string `yaml:"partner_adjustments"`
}

// Location resolves the console timezone.
func (c ConsoleConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads a YAML config file after loading .env from the working
// directory. ${VAR} references are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLite.Path == "" {
			return errors.New("store.sqlite.path is required")
		}
		if c.Store.SQLite.Backup.Enabled && c.Store.SQLite.Path == ":memory:" {
			return errors.New("store.sqlite.backup needs a file database")
		}
	case BackendRedis:
		if c.Store.Redis.Address == "" {
			return errors.New("store.redis.address is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	if c.Exports.Sheets.Enabled && (c.Exports.Sheets.CredentialsFile == "" || c.Exports.Sheets.SpreadsheetID == "") {
		return errors.New("exports.sheets requires credentials_file and spreadsheet_id")
	}

	if c.Exports.Sync.Enabled {
		switch c.Exports.Sync.Sink {
		case "xlsx":
		case "sheets":
			if !c.Exports.Sheets.Enabled {
				return errors.New("exports.sync.sink=sheets requires exports.sheets.enabled")
			}
		default:
			return fmt.Errorf("unknown exports.sync.sink %q", c.Exports.Sync.Sink)
		}
	}

	if _, err := c.Console.Location(); err != nil {
		return fmt.Errorf("console.timezone: %w", err)
	}
	if c.Console.WindowSize > c.Console.LargeCollectionThreshold {
		return errors.New("console.window_size must not exceed console.large_collection_threshold")
	}

	if c.API.Enabled && c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api.auth requires at least one api key")
	}
	keys := make(map[string]bool)
	for _, k := range c.API.Auth.APIKeys {
		if k.Key == "" {
			return fmt.Errorf("api key %q is empty", k.Name)
		}
		if keys[k.Key] {
			return fmt.Errorf("duplicate api key for %q", k.Name)
		}
		keys[k.Key] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "healthops"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Redis.PoolSize == 0 {
		c.Store.Redis.PoolSize = 10
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "healthops"
	}
	if c.Store.SQLite.Backup.Interval == 0 {
		c.Store.SQLite.Backup.Interval = 24 * time.Hour
	}
	if c.Store.SQLite.Backup.Dir == "" {
		c.Store.SQLite.Backup.Dir = "./backups"
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "./exports"
	}
	if c.Exports.CurrencySymbol == "" {
		c.Exports.CurrencySymbol = "₹"
	}
	if c.Exports.DateFormat == "" {
		c.Exports.DateFormat = "02.01.2006"
	}
	if c.Exports.TimestampFormat == "" {
		c.Exports.TimestampFormat = "02.01.2006 15:04"
	}

	if c.Exports.Sync.Sink == "" {
		c.Exports.Sync.Sink = "xlsx"
	}
	if c.Exports.Sync.MaxRetries == 0 {
		c.Exports.Sync.MaxRetries = 5
	}
	if c.Exports.Sync.InitialDelay == 0 {
		c.Exports.Sync.InitialDelay = 2 * time.Second
	}
	if c.Exports.Sync.MaxDelay == 0 {
		c.Exports.Sync.MaxDelay = time.Minute
	}
	if c.Exports.Sync.QueueKey == "" {
		c.Exports.Sync.QueueKey = c.Store.Redis.Prefix + ":sync:queue"
	}

	if c.Console.PageSize == 0 {
		c.Console.PageSize = models.DefaultPageSize
	}
	if c.Console.LargeCollectionThreshold == 0 {
		c.Console.LargeCollectionThreshold = models.LargeCollectionThreshold
	}
	if c.Console.WindowSize == 0 {
		c.Console.WindowSize = models.DefaultWindowSize
	}
	if c.Console.PartnerAdjustments == nil {
		c.Console.PartnerAdjustments = []string{"HUMANA"}
	}

	if c.CampCodePrefix == "" {
		c.CampCodePrefix = models.DefaultCampCodePrefix
	}
	if c.BookingIDPrefix == "" {
		c.BookingIDPrefix = models.DefaultBookingIDPrefix
	}
}
