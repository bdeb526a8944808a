package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Mail      MailConfig      `mapstructure:"mail"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// MailConfig holds the monitored-inbox transport configuration. IMAP and the
// Gmail API may both be enabled; ingestion dedupe makes overlap harmless.
type MailConfig struct {
	IMAPEnabled  bool   `mapstructure:"imap_enabled"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`

	GmailEnabled      bool   `mapstructure:"gmail_enabled"`
	GmailClientID     string `mapstructure:"gmail_client_id"`
	GmailClientSecret string `mapstructure:"gmail_client_secret"`
	GmailRefreshToken string `mapstructure:"gmail_refresh_token"`
	GmailUserEmail    string `mapstructure:"gmail_user_email"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	FetchIntervalMinutes int `mapstructure:"fetch_interval_minutes"`
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
}

// MatchingConfig holds the matching-rule knobs. It is passed explicitly into
// the matcher at construction; nothing reads these values from global state.
type MatchingConfig struct {
	TimeWindowMinutes   int     `mapstructure:"time_window_minutes"`
	EarlyArrivalMinutes int     `mapstructure:"early_arrival_minutes"`
	AmountTolerance     float64 `mapstructure:"amount_tolerance"`
	PaymentTTLMinutes   int     `mapstructure:"payment_ttl_minutes"`
}

// TimeWindow returns the post-creation window as a duration.
func (m MatchingConfig) TimeWindow() time.Duration {
	return time.Duration(m.TimeWindowMinutes) * time.Minute
}

// EarlyArrival returns the allowed pre-creation margin as a duration.
func (m MatchingConfig) EarlyArrival() time.Duration {
	return time.Duration(m.EarlyArrivalMinutes) * time.Minute
}

// Tolerance returns the amount tolerance as a decimal.
func (m MatchingConfig) Tolerance() decimal.Decimal {
	return decimal.NewFromFloat(m.AmountTolerance)
}

// WebhookConfig holds the settlement-event dispatcher configuration.
type WebhookConfig struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from environment variables and config file
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Environment variables override config file
	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)

	viper.SetDefault("mail.imap_enabled", false)
	viper.SetDefault("mail.imap_host", "imap.gmail.com")
	viper.SetDefault("mail.imap_port", 993)
	viper.SetDefault("mail.gmail_enabled", false)

	viper.SetDefault("scheduler.fetch_interval_minutes", 5)
	viper.SetDefault("scheduler.sweep_interval_minutes", 30)

	viper.SetDefault("matching.time_window_minutes", 120)
	viper.SetDefault("matching.early_arrival_minutes", 5)
	viper.SetDefault("matching.amount_tolerance", 0)
	viper.SetDefault("matching.payment_ttl_minutes", 1440)

	viper.SetDefault("webhook.max_retries", 3)
	viper.SetDefault("webhook.timeout", "10s")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	viper.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")

	viper.BindEnv("database.host", "DB_HOST")
	viper.BindEnv("database.port", "DB_PORT")
	viper.BindEnv("database.user", "DB_USER")
	viper.BindEnv("database.password", "DB_PASSWORD")
	viper.BindEnv("database.dbname", "DB_NAME")

	viper.BindEnv("mail.imap_enabled", "MAIL_IMAP_ENABLED")
	viper.BindEnv("mail.imap_host", "MAIL_IMAP_HOST")
	viper.BindEnv("mail.imap_port", "MAIL_IMAP_PORT")
	viper.BindEnv("mail.imap_user", "MAIL_IMAP_USER")
	viper.BindEnv("mail.imap_password", "MAIL_IMAP_PASSWORD")
	viper.BindEnv("mail.gmail_enabled", "MAIL_GMAIL_ENABLED")
	viper.BindEnv("mail.gmail_client_id", "MAIL_GMAIL_CLIENT_ID")
	viper.BindEnv("mail.gmail_client_secret", "MAIL_GMAIL_CLIENT_SECRET")
	viper.BindEnv("mail.gmail_refresh_token", "MAIL_GMAIL_REFRESH_TOKEN")
	viper.BindEnv("mail.gmail_user_email", "MAIL_GMAIL_USER_EMAIL")

	viper.BindEnv("scheduler.fetch_interval_minutes", "SCHEDULER_FETCH_INTERVAL_MINUTES")
	viper.BindEnv("scheduler.sweep_interval_minutes", "SCHEDULER_SWEEP_INTERVAL_MINUTES")

	viper.BindEnv("matching.time_window_minutes", "MATCHING_TIME_WINDOW_MINUTES")
	viper.BindEnv("matching.early_arrival_minutes", "MATCHING_EARLY_ARRIVAL_MINUTES")
	viper.BindEnv("matching.amount_tolerance", "MATCHING_AMOUNT_TOLERANCE")
	viper.BindEnv("matching.payment_ttl_minutes", "MATCHING_PAYMENT_TTL_MINUTES")

	viper.BindEnv("webhook.url", "WEBHOOK_URL")
	viper.BindEnv("webhook.max_retries", "WEBHOOK_MAX_RETRIES")
	viper.BindEnv("webhook.timeout", "WEBHOOK_TIMEOUT")
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.DBName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return fmt.Errorf("database host, user, and dbname are required")
	}

	if c.Mail.IMAPEnabled {
		if c.Mail.IMAPUser == "" || c.Mail.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when IMAP is enabled")
		}
	}
	if c.Mail.GmailEnabled {
		if c.Mail.GmailClientID == "" || c.Mail.GmailClientSecret == "" || c.Mail.GmailRefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when the Gmail API is enabled")
		}
	}

	if c.Scheduler.FetchIntervalMinutes <= 0 {
		return fmt.Errorf("fetch interval must be greater than 0")
	}
	if c.Scheduler.SweepIntervalMinutes <= 0 {
		return fmt.Errorf("sweep interval must be greater than 0")
	}

	if c.Matching.TimeWindowMinutes <= 0 {
		return fmt.Errorf("matching time window must be greater than 0")
	}
	if c.Matching.EarlyArrivalMinutes < 0 {
		return fmt.Errorf("matching early arrival margin must not be negative")
	}
	if c.Matching.AmountTolerance < 0 {
		return fmt.Errorf("matching amount tolerance must not be negative")
	}
	if c.Matching.PaymentTTLMinutes <= 0 {
		return fmt.Errorf("payment ttl must be greater than 0")
	}

	return nil
}
