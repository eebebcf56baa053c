package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultSecretKey = "change-this-secret-key-in-production"

type Config struct {
	Environment     string
	DatabasePath    string
	Port            string
	SecretKey       string
	AllowedOrigins  string
	BaseURL         string
	LogLevel        string
	SessionDuration time.Duration

	CardAPITimeout time.Duration
	ScryfallURL    string
	PokemonTCGURL  string
	YGOProDeckURL  string

	MailgunDomain      string
	MailgunAPIKey      string
	MailgunSenderEmail string
	MailgunSenderName  string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:     getEnv("ENVIRONMENT", "production"),
		DatabasePath:    getEnv("DATABASE_PATH", "cardvault.db"),
		Port:            getEnv("PORT", "8080"),
		SecretKey:       getEnv("SECRET_KEY", defaultSecretKey),
		AllowedOrigins:  getEnv("ALLOWED_ORIGINS", "http://localhost:8080"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		SessionDuration: getEnvDuration("SESSION_DURATION", 7*24*time.Hour),

		CardAPITimeout: getEnvDuration("CARD_API_TIMEOUT", 10*time.Second),
		ScryfallURL:    getEnv("SCRYFALL_URL", "https://api.scryfall.com/cards/search"),
		PokemonTCGURL:  getEnv("POKEMON_TCG_URL", "https://api.pokemontcg.io/v2/cards"),
		YGOProDeckURL:  getEnv("YGOPRODECK_URL", "https://db.ygoprodeck.com/api/v7/cardinfo.php"),

		MailgunDomain:      getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:      getEnv("MAILGUN_API_KEY", ""),
		MailgunSenderEmail: getEnv("MAILGUN_SENDER_EMAIL", "orders@cardvault.local"),
		MailgunSenderName:  getEnv("MAILGUN_SENDER_NAME", "CardVault"),
	}
	return cfg
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// Validate rejects settings that are only acceptable during development.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if !c.IsDevelopment() && c.SecretKey == defaultSecretKey {
		return fmt.Errorf("SECRET_KEY must be set in production")
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("SESSION_DURATION must be positive")
	}
	if c.CardAPITimeout <= 0 {
		return fmt.Errorf("CARD_API_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
