package configs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Billing  BillingConfig
	Email    EmailConfig
	Reminder ReminderConfig
	LogLevel string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// BillingConfig points at an optional policy file overriding the built-in policy
type BillingConfig struct {
	PolicyFile string
}

// EmailConfig holds email configuration
type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SenderEmail  string
}

// ReminderConfig holds the dues reminder sweep configuration
type ReminderConfig struct {
	Schedule string
	LeadDays int
}

// DataSource returns the DSN for the configured driver.
// For postgres an empty DSN is built from the host settings.
func (c DatabaseConfig) DataSource() string {
	if c.DSN != "" || c.Driver != "postgres" {
		return c.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

// LoadConfig loads configuration from environment variables, after reading
// a .env file from the working directory if there is one
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	leadDays, err := strconv.Atoi(getEnv("REMINDER_LEAD_DAYS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid REMINDER_LEAD_DAYS: %w", err)
	}
	if leadDays < 0 {
		return nil, fmt.Errorf("invalid REMINDER_LEAD_DAYS: %d is negative", leadDays)
	}

	driver := getEnv("DB_DRIVER", "sqlite3")
	defaultDSN := ""
	if driver == "sqlite3" {
		defaultDSN = "allotment.db"
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:   driver,
			DSN:      getEnv("DB_DSN", defaultDSN),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "allotment_service"),
		},
		Billing: BillingConfig{
			PolicyFile: getEnv("BILLING_POLICY_FILE", ""),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.example.com"),
			SMTPPort:     smtpPort,
			SMTPUser:     getEnv("SMTP_USER", "user"),
			SMTPPassword: getEnv("SMTP_PASSWORD", "password"),
			SenderEmail:  getEnv("SENDER_EMAIL", "no-reply@allotment-service.local"),
		},
		Reminder: ReminderConfig{
			Schedule: getEnv("REMINDER_SCHEDULE", "@daily"),
			LeadDays: leadDays,
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
