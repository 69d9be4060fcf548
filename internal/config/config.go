package config

import (
	"errors"
	"fmt"
	"os"

	"fonteyn/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Session    SessionConfig    `yaml:"session"`
	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Google     GoogleConfig     `yaml:"google"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Exports    ExportConfig     `yaml:"exports"`
	Admins     []string         `yaml:"admins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port              int `yaml:"port"`
	ReadHeaderTimeout int `yaml:"read_header_timeout"` // seconds
	WriteTimeout      int `yaml:"write_timeout"`       // seconds
	RequestTimeout    int `yaml:"request_timeout"`     // seconds, per-request storage bound
}

type SessionConfig struct {
	TTLHours   int    `yaml:"ttl_hours"`
	CookieName string `yaml:"cookie_name"`
}

type AuthConfig struct {
	BcryptCost int             `yaml:"bcrypt_cost"`
	LoginLimit RateLimitConfig `yaml:"login_rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	CredentialsFile       string `yaml:"credentials_file"`
	BookingsSpreadsheetID string `yaml:"bookings_spreadsheet_id"`
}

type TelegramConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BotToken     string `yaml:"bot_token"`
	ManagersChat int64  `yaml:"managers_chat_id"`
	Debug        bool   `yaml:"debug"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env подхватывается при наличии; отсутствие файла не ошибка
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
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
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}
	return nil
}

func ValidateAccommodations(accommodations []models.Accommodation) error {
	ids := make(map[int64]bool)
	names := make(map[string]bool)
	for _, a := range accommodations {
		if a.ID == 0 {
			return fmt.Errorf("accommodation '%s' has invalid ID 0", a.Name)
		}
		if ids[a.ID] {
			return fmt.Errorf("duplicate accommodation ID found: %d", a.ID)
		}
		ids[a.ID] = true
		if names[a.Name] {
			return fmt.Errorf("duplicate accommodation name found: %s", a.Name)
		}
		names[a.Name] = true
		if a.Price <= 0 {
			return fmt.Errorf("accommodation '%s' has non-positive price", a.Name)
		}
		if a.Capacity <= 0 {
			return fmt.Errorf("accommodation '%s' has non-positive capacity", a.Name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadHeaderTimeout == 0 {
		c.Server.ReadHeaderTimeout = 5
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 10
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "fonteyn_session"
	}
	if c.Auth.BcryptCost == 0 {
		c.Auth.BcryptCost = models.DefaultBcryptCost
	}
	if c.Auth.LoginLimit.RPS == 0 {
		c.Auth.LoginLimit.RPS = models.LoginRateLimitRPS
	}
	if c.Auth.LoginLimit.Burst == 0 {
		c.Auth.LoginLimit.Burst = models.LoginRateLimitBurst
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
