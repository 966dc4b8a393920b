package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// BackendMode selects how rows and auth are reached: "rest" talks to a
	// hosted backend over HTTP, "postgres" goes straight at the database.
	BackendMode string

	// Hosted backend (rest mode)
	BackendURL        string
	BackendAnonKey    string
	BackendServiceKey string
	BackendJWTSecret  string

	// Direct database (postgres mode)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	ServerPort string

	RedisURL string

	SessionMaxAge int

	// CookieSecure sets the Secure attribute on the session cookie. On by
	// default; only switch it off for plain-HTTP local development.
	CookieSecure bool

	// AutoConfirm marks new identities as confirmed immediately. Postgres
	// mode only; hosted confirmation is a backend setting.
	AutoConfirm bool

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	mode := os.Getenv("BACKEND_MODE")
	if mode == "" {
		mode = "rest"
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	sslMode := os.Getenv("DB_SSLMODE")
	if sslMode == "" {
		sslMode = "require"
	}

	sessionMaxAge, err := strconv.Atoi(os.Getenv("SESSION_MAX_AGE"))
	if err != nil || sessionMaxAge <= 0 {
		sessionMaxAge = 604800 // 7 days
	}

	autoConfirm, _ := strconv.ParseBool(os.Getenv("AUTO_CONFIRM"))

	cookieSecure := true
	if raw := os.Getenv("COOKIE_SECURE"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			cookieSecure = parsed
		}
	}

	return &Config{
		BackendMode: mode,

		BackendURL:        os.Getenv("BACKEND_URL"),
		BackendAnonKey:    os.Getenv("BACKEND_ANON_KEY"),
		BackendServiceKey: os.Getenv("BACKEND_SERVICE_KEY"),
		BackendJWTSecret:  os.Getenv("BACKEND_JWT_SECRET"),

		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBSSLMode:  sslMode,

		ServerPort: serverPort,

		RedisURL: os.Getenv("REDIS_URL"),

		SessionMaxAge: sessionMaxAge,

		CookieSecure: cookieSecure,

		AutoConfirm: autoConfirm,

		R2AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		R2AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2BucketName:      os.Getenv("R2_BUCKET_NAME"),
		R2PublicURL:       os.Getenv("R2_PUBLIC_URL"),
	}, nil
}
