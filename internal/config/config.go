package config

import (
	"fmt"     // For DSN formatting
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list splitting
	"time"    // For duration settings

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	JWTSecret  string // JWT secret key
	RedisAddr  string // Redis server address
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment

	AdminIdentity          string        // The only identity allowed to run admin operations
	AdminKeyHash           string        // Bcrypt hash of the admin session key
	LedgerURL              string        // Base URL of the ledger transfer service
	LedgerTimeout          time.Duration // Per-call ledger timeout
	TreasuryIdentity       string        // Owner of the account rewards are paid from
	RoundDurationOverride  time.Duration // Round duration forced on every restore
	SnapshotInterval       time.Duration // How often state is saved
	SnapshotKeep           int           // Snapshots kept after pruning
	SessionTTL             time.Duration // Lifetime of issued session tokens
	CORSOrigins            []string      // Allowed browser origins
	TopUsersCacheTTL       time.Duration // Cache lifetime of the karma leaderboard
	AdminUsersCacheTTL     time.Duration // Cache lifetime of the admin user listing
	ProposalImageURLPrefix string        // Accepted prefix for proposal image paths, empty allows any
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    envOr("APP_PORT", "8080"),      // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     envOr("DB_HOST", "127.0.0.1"),  // Database host
		DBPort:     envOr("DB_PORT", "3306"),       // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment

		AdminIdentity:          os.Getenv("ADMIN_IDENTITY"),
		AdminKeyHash:           os.Getenv("ADMIN_KEY_HASH"),
		LedgerURL:              envOr("LEDGER_URL", "http://127.0.0.1:4943"),
		LedgerTimeout:          durationOr("LEDGER_TIMEOUT", 30*time.Second),
		TreasuryIdentity:       os.Getenv("TREASURY_IDENTITY"),
		RoundDurationOverride:  durationOr("ROUND_DURATION_OVERRIDE", 25*time.Hour),
		SnapshotInterval:       durationOr("SNAPSHOT_INTERVAL", 10*time.Minute),
		SnapshotKeep:           intOr("SNAPSHOT_KEEP", 48),
		SessionTTL:             durationOr("SESSION_TTL", 24*time.Hour),
		CORSOrigins:            listOr("CORS_ORIGINS", []string{"*"}),
		TopUsersCacheTTL:       durationOr("TOP_USERS_CACHE_TTL", 30*time.Second),
		AdminUsersCacheTTL:     durationOr("ADMIN_USERS_CACHE_TTL", 60*time.Second),
		ProposalImageURLPrefix: os.Getenv("PROPOSAL_IMAGE_URL_PREFIX"),
	}
}

// MySQLDSN builds the Data Source Name for the snapshot database
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// envOr returns the variable or def when unset
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// durationOr parses a Go duration ("90s", "25h"), falling back to def
func durationOr(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return def
	}
	return d
}

func intOr(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

// listOr splits a comma separated variable
func listOr(key string, def []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
