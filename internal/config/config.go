// Package config loads the portal settings from configs/.env and the
// environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	CORSOrigins []string

	StoreURL     string
	StoreTimeout time.Duration

	// DatabaseDSN is empty when sessions and intent logs should stay in memory.
	DatabaseDSN string
	// RedisURL is empty when drafts and the reference cache should stay in memory.
	RedisURL string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	InstitutionalCompanyID string
	DraftTTL               time.Duration
	ReferenceTTL           time.Duration

	LookupRPS   float64
	LookupBurst int
}

// Load reads configs/.env when present; variables already set in the
// environment win.
func Load() Config {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}
	return FromEnv()
}

func FromEnv() Config {
	return Config{
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getList("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),

		StoreURL:     getEnv("STORE_URL", "http://localhost:3000"),
		StoreTimeout: getDuration("STORE_TIMEOUT", 15*time.Second),

		DatabaseDSN: databaseDSN(),
		RedisURL:    getEnv("REDIS_URL", ""),

		S3Bucket:   getEnv("S3_BUCKET", ""),
		S3Region:   getEnv("S3_REGION", "us-east-1"),
		S3Endpoint: getEnv("S3_ENDPOINT", ""),
		S3Prefix:   getEnv("S3_PREFIX", "drafts/"),

		InstitutionalCompanyID: getEnv("INSTITUTIONAL_COMPANY_ID", ""),
		DraftTTL:               getDuration("DRAFT_TTL", 24*time.Hour),
		ReferenceTTL:           getDuration("REFERENCE_TTL", 10*time.Minute),

		LookupRPS:   getFloat("LOOKUP_RPS", 10),
		LookupBurst: getInt("LOOKUP_BURST", 20),
	}
}

// databaseDSN prefers DATABASE_URL, then assembles one from DB_* variables.
// Without DB_HOST there is no database.
func databaseDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return ""
	}
	return "postgres://" + getEnv("DB_USER", "postgres") + ":" + getEnv("DB_PASSWORD", "postgres") +
		"@" + host + ":" + getEnv("DB_PORT", "5432") + "/" + getEnv("DB_NAME", "postgres") +
		"?sslmode=" + getEnv("DB_SSLMODE", "disable")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config: invalid duration %s=%q, using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config: invalid integer %s=%q, using %d", key, raw, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config: invalid number %s=%q, using %v", key, raw, fallback)
		return fallback
	}
	return f
}

// getList splits a comma separated value, dropping blanks.
func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
