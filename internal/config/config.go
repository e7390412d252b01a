package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the server reads from the environment. Provider
// credentials are optional: missing values degrade the matching channel to a
// simulated delivery instead of failing startup.
type Config struct {
	Port        string
	MongoURI    string
	MongoDBName string
	JWTSecret   string
	AppBaseURL  string

	// Transactional email relay.
	EmailRelayURL string
	EmailAPIKey   string
	EmailSender   string

	// Push provider REST API.
	PushAPIURL       string
	PushClientID     string
	PushClientSecret string
}

// LoadConfig reads the .env file (if present) and assembles the Config.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, relying on environment variables")
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:      getEnv("MONGO_DB_NAME", "costwatch"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		AppBaseURL:       getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailRelayURL:    getEnv("EMAIL_RELAY_URL", ""),
		EmailAPIKey:      getEnv("EMAIL_API_KEY", ""),
		EmailSender:      getEnv("EMAIL_SENDER", "noreply@costwatch.app"),
		PushAPIURL:       getEnv("PUSH_API_URL", ""),
		PushClientID:     getEnv("PUSH_CLIENT_ID", ""),
		PushClientSecret: getEnv("PUSH_CLIENT_SECRET", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
