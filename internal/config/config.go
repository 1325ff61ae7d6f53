package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Staff granted by configuration, on top of users.is_staff
	StaffEmails  []string
	StaffUserIDs []string

	// Moderation
	ModerationTerminal bool

	// Story pictures (S3 compatible storage)
	PictureEndpoint  string
	PictureRegion    string
	PictureBucket    string
	PictureKey       string
	PictureSecret    string
	PicturePublicURL string
	PictureMaxBytes  int

	// Server
	Port        string
	CORSOrigins string

	// Seed data
	AreasConfigPath string
}

func Load() *Config {
	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "ilivehere"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTAccessExpiry:  parseDuration(getEnv("JWT_ACCESS_EXPIRY", "15m")),
		JWTRefreshExpiry: parseDuration(getEnv("JWT_REFRESH_EXPIRY", "168h")),

		StaffEmails:  parseCSV(getEnv("STAFF_EMAILS", "")),
		StaffUserIDs: parseCSV(getEnv("STAFF_USER_IDS", "")),

		ModerationTerminal: parseBool(getEnv("MODERATION_TERMINAL", "false")),

		PictureEndpoint:  getEnv("PICTURE_ENDPOINT", ""),
		PictureRegion:    getEnv("PICTURE_REGION", "us-east-1"),
		PictureBucket:    getEnv("PICTURE_BUCKET", ""),
		PictureKey:       getEnv("PICTURE_KEY", ""),
		PictureSecret:    getEnv("PICTURE_SECRET", ""),
		PicturePublicURL: getEnv("PICTURE_PUBLIC_URL", ""),
		PictureMaxBytes:  parseInt(getEnv("PICTURE_MAX_BYTES", "4194304"), 4*1024*1024),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),

		AreasConfigPath: getEnv("AREAS_CONFIG_PATH", "areas.json"),
	}
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

// PicturesEnabled reports whether picture uploads have somewhere to go.
func (c *Config) PicturesEnabled() bool {
	return c.PictureBucket != "" && c.PictureKey != "" && c.PictureSecret != ""
}

// IsConfiguredStaff reports whether the email or user id is listed in STAFF_EMAILS or STAFF_USER_IDS.
func (c *Config) IsConfiguredStaff(email, userID string) bool {
	return contains(c.StaffEmails, email) || contains(c.StaffUserIDs, userID)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false
	}
	return b
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	if val == "" {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
