package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const defaultAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type Config struct {
	// Environment
	Environment string

	// Game server (TCP)
	Host string
	Port string

	// Admin API (HTTP)
	AdminPort string

	// Lobby / game settings
	MinPlayers      int
	MaxPlayers      int
	CodeLength      int
	AllowedAttempts int
	Alphabet        string

	// Match records
	ResultsBackend string // "xml" or "postgres"
	ResultsDir     string
	DatabaseURL    string

	// Redis (optional event publishing)
	RedisURL string

	// Connection tuning
	SendQueueSize    int
	WriteTimeoutSecs int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),

		Host:      getEnv("HOST", "0.0.0.0"),
		Port:      getEnv("PORT", "8888"),
		AdminPort: getEnv("ADMIN_PORT", "8080"),

		MinPlayers:      getEnvInt("MIN_PLAYERS", 2),
		MaxPlayers:      getEnvInt("MAX_PLAYERS", 4),
		CodeLength:      getEnvInt("CODE_LENGTH", 4),
		AllowedAttempts: getEnvInt("ALLOWED_ATTEMPTS", 10),
		Alphabet:        getEnv("ALPHABET", defaultAlphabet),

		ResultsBackend: getEnv("RESULTS_BACKEND", "xml"),
		ResultsDir:     getEnv("RESULTS_DIR", "game_results"),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/codemaster?sslmode=disable"),

		RedisURL: getEnv("REDIS_URL", ""),

		SendQueueSize:    getEnvInt("SEND_QUEUE_SIZE", 64),
		WriteTimeoutSecs: getEnvInt("WRITE_TIMEOUT_SECONDS", 10),
	}
}

// Validate checks the lobby and code settings for consistency.
func (c *Config) Validate() error {
	if c.MinPlayers < 1 {
		return fmt.Errorf("MIN_PLAYERS must be at least 1, got %d", c.MinPlayers)
	}
	if c.MinPlayers > c.MaxPlayers {
		return fmt.Errorf("MIN_PLAYERS (%d) must not exceed MAX_PLAYERS (%d)", c.MinPlayers, c.MaxPlayers)
	}
	if c.CodeLength < 1 {
		return fmt.Errorf("CODE_LENGTH must be positive, got %d", c.CodeLength)
	}
	if c.AllowedAttempts < 1 {
		return fmt.Errorf("ALLOWED_ATTEMPTS must be positive, got %d", c.AllowedAttempts)
	}
	if len(c.Alphabet) == 0 {
		return fmt.Errorf("ALPHABET must not be empty")
	}
	if c.ResultsBackend != "xml" && c.ResultsBackend != "postgres" {
		return fmt.Errorf("RESULTS_BACKEND must be \"xml\" or \"postgres\", got %q", c.ResultsBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
