package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	StoreBackend    string
	FirebaseProject string

	FirebaseServiceAccountJSON string
	FirebaseServiceAccountPath string

	MySQLDSN string

	IdentityProvider  string
	IdentityCacheSize int
	JWTSecret         string
	JWTExpiry         int64

	MatchingServiceURL string
	MatchingTimeoutMs  int64

	RejectDuplicatePending bool
	CascadeDeleteMessages  bool

	RateLimitPerMinute int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		StoreBackend:    strings.ToLower(getEnv("STORE_BACKEND", "memory")),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),

		FirebaseServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		FirebaseServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		IdentityProvider:  strings.ToLower(getEnv("IDENTITY_PROVIDER", "jwt")),
		IdentityCacheSize: int(getEnvAsInt64("IDENTITY_CACHE_SIZE", 1024)),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:         getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours

		MatchingServiceURL: getEnv("MATCHING_SERVICE_URL", ""),
		MatchingTimeoutMs:  getEnvAsInt64("MATCHING_TIMEOUT_MS", 5000),

		RejectDuplicatePending: getEnvAsBool("REJECT_DUPLICATE_PENDING", false),
		CascadeDeleteMessages:  getEnvAsBool("CASCADE_DELETE_MESSAGES", false),

		RateLimitPerMinute: int(getEnvAsInt64("RATE_LIMIT_PER_MINUTE", 60)),
	}

	return config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}
