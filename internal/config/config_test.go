package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Database: DatabaseConfig{
			Host:   "localhost",
			User:   "test",
			DBName: "test",
		},
		Scheduler: SchedulerConfig{
			FetchIntervalMinutes: 5,
			SweepIntervalMinutes: 30,
		},
		Matching: MatchingConfig{
			TimeWindowMinutes:   120,
			EarlyArrivalMinutes: 5,
			PaymentTTLMinutes:   1440,
		},
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	invalid := &Config{
		Server: ServerConfig{Port: ""},
	}
	assert.Error(t, invalid.Validate())
}

func TestConfigValidationMail(t *testing.T) {
	cfg := validConfig()
	cfg.Mail.IMAPEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.Mail.IMAPUser = "inbox@example.com"
	cfg.Mail.IMAPPassword = "secret"
	assert.NoError(t, cfg.Validate())

	cfg.Mail.GmailEnabled = true
	assert.Error(t, cfg.Validate())

	cfg.Mail.GmailClientID = "id"
	cfg.Mail.GmailClientSecret = "secret"
	cfg.Mail.GmailRefreshToken = "token"
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidationMatching(t *testing.T) {
	cfg := validConfig()
	cfg.Matching.TimeWindowMinutes = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Matching.AmountTolerance = -1
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Matching.PaymentTTLMinutes = 0
	assert.Error(t, cfg.Validate())
}

func TestMatchingConfigDurations(t *testing.T) {
	m := MatchingConfig{TimeWindowMinutes: 120, EarlyArrivalMinutes: 5, AmountTolerance: 50}
	assert.Equal(t, 2*time.Hour, m.TimeWindow())
	assert.Equal(t, 5*time.Minute, m.EarlyArrival())
	assert.Equal(t, "50", m.Tolerance().String())
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     3306,
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	}

	dsn := cfg.GetDSN()
	expected := "testuser:testpass@tcp(localhost:3306)/testdb?charset=utf8mb4&parseTime=True&loc=Local"
	assert.Equal(t, expected, dsn)
}
