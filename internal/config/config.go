package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion

	"github.com/joho/godotenv" // For loading .env files
)

// PhonePeConfig holds the payment aggregator credentials. The salt key is a
// shared secret: it is injected here once and must never be logged or sent
// in any payload.
type PhonePeConfig struct {
	APIURL      string // Aggregator base URL
	MerchantID  string // Merchant account id
	SaltKey     string // Checksum secret
	SaltIndex   string // Key index appended to every checksum
	CallbackURL string // Where the aggregator posts payment outcomes
	RedirectURL string // Where the user lands after paying
}

// Config holds the application configuration
type Config struct {
	AppPort    string        // Application port
	DBUser     string        // Database user
	DBPassword string        // Database password
	DBHost     string        // Database host
	DBPort     string        // Database port
	DBName     string        // Database name
	JWTSecret  string        // JWT secret key
	RedisAddr  string        // Redis server address
	RedisPass  string        // Redis password
	RedisDB    int           // Redis database number
	IsProd     bool          // Is production environment
	PhonePe    PhonePeConfig // Payment aggregator credentials
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return &Config{
		AppPort:    os.Getenv("APP_PORT"),          // Application port
		DBUser:     os.Getenv("DB_USER"),           // Database user
		DBPassword: os.Getenv("DB_PASSWORD"),       // Database password
		DBHost:     os.Getenv("DB_HOST"),           // Database host
		DBPort:     os.Getenv("DB_PORT"),           // Database port
		DBName:     os.Getenv("DB_NAME"),           // Database name
		JWTSecret:  os.Getenv("JWT_SECRET"),        // JWT secret key
		RedisAddr:  os.Getenv("REDIS_ADDR"),        // Redis server address
		RedisPass:  os.Getenv("REDIS_PASS"),        // Redis password
		RedisDB:    redisDB,                        // Redis database number
		IsProd:     os.Getenv("IS_PROD") == "true", // Is production environment
		PhonePe: PhonePeConfig{
			APIURL:      getEnv("PHONEPE_API_URL", "https://api.phonepe.com/apis/hermes"), // Aggregator base URL
			MerchantID:  os.Getenv("PHONEPE_MERCHANT_ID"),                                 // Merchant account id
			SaltKey:     os.Getenv("PHONEPE_SALT_KEY"),                                    // Checksum secret
			SaltIndex:   getEnv("PHONEPE_SALT_INDEX", "1"),                                // Key index
			CallbackURL: os.Getenv("PHONEPE_CALLBACK_URL"),                                // Callback endpoint URL
			RedirectURL: os.Getenv("PHONEPE_REDIRECT_URL"),                                // Post-payment redirect URL
		},
	}
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
