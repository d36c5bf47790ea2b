package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration. It is loaded once at
// process start and injected; nothing mutates it afterwards.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Lark        LarkConfig        `mapstructure:"lark"`
	Caisse      CaisseConfig      `mapstructure:"caisse"`
	Mirror      MirrorConfig      `mapstructure:"mirror"`
	Screening   ScreeningConfig   `mapstructure:"screening"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds ledger database configuration.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LarkConfig holds chat platform credentials and webhook settings.
type LarkConfig struct {
	AppID         string        `mapstructure:"app_id"`
	AppSecret     string        `mapstructure:"app_secret"`
	SigningSecret string        `mapstructure:"signing_secret"`
	WebhookPath   string        `mapstructure:"webhook_path"`
	APITimeout    time.Duration `mapstructure:"api_timeout"`
}

// CaisseConfig holds the workflow option lists and notification
// targets.
type CaisseConfig struct {
	Currencies     []string `mapstructure:"currencies"`
	Banks          []string `mapstructure:"banks"`
	AdminChannel   string   `mapstructure:"admin_channel"`
	FinanceChannel string   `mapstructure:"finance_channel"`
}

// MirrorConfig holds spreadsheet mirror settings.
type MirrorConfig struct {
	Path     string        `mapstructure:"path"`
	Attempts int           `mapstructure:"attempts"`
	Backoff  time.Duration `mapstructure:"backoff"`
}

// ScreeningConfig holds the optional request-screening settings.
type ScreeningConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// AttachmentsConfig holds proof attachment settings.
type AttachmentsConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from the YAML file, a .env file when
// present, and environment variables.
func Load(configPath string) (*Config, error) {
	_ = gotenv.Load() // .env is optional

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	viper.SetDefault("database.path", "data/caisse.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("lark.webhook_path", "/webhook/interactions")
	viper.SetDefault("lark.api_timeout", 30*time.Second)

	viper.SetDefault("caisse.currencies", []string{"XOF", "USD", "EUR"})

	viper.SetDefault("mirror.path", "data/caisse_audit.xlsx")
	viper.SetDefault("mirror.attempts", 3)
	viper.SetDefault("mirror.backoff", time.Second)

	viper.SetDefault("attachments.dir", "attachments")

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	viper.BindEnv("lark.app_id", "LARK_APP_ID")
	viper.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	viper.BindEnv("lark.signing_secret", "LARK_SIGNING_SECRET")
	viper.BindEnv("screening.api_key", "OPENAI_API_KEY")
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Lark.AppID == "" {
		return fmt.Errorf("lark.app_id is required")
	}
	if c.Lark.AppSecret == "" {
		return fmt.Errorf("lark.app_secret is required")
	}
	if c.Lark.SigningSecret == "" {
		return fmt.Errorf("lark.signing_secret is required")
	}
	if len(c.Caisse.Currencies) == 0 {
		return fmt.Errorf("caisse.currencies must not be empty")
	}
	if c.Caisse.AdminChannel == "" {
		return fmt.Errorf("caisse.admin_channel is required")
	}
	if c.Caisse.FinanceChannel == "" {
		return fmt.Errorf("caisse.finance_channel is required")
	}
	if c.Mirror.Path == "" {
		return fmt.Errorf("mirror.path is required")
	}
	return nil
}
