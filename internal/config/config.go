package config

import (
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// DevAuthSecret is only ever used outside production. Tokens signed with
// it are forgeable by anyone who has read this file.
const DevAuthSecret = "dev-secret-change-me"

type Config struct {
	Port        string
	Environment string

	// StoreDriver selects the user store: "postgres" or "file".
	StoreDriver string
	DatabaseURL string
	UsersFile   string

	AuthSecret           string
	AuthSecretIsFallback bool
	JWTExpiresInSeconds  int64
	PBKDF2Iterations     int
	AuthReturnResetToken bool

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "development")
	if env != "production" {
		_ = godotenv.Load()
		env = getEnv("ENVIRONMENT", env)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		host := getEnv("PSQL_HOST", "localhost")
		port := getEnv("PSQL_PORT", "5432")
		user := getEnv("PSQL_USER", "postgres")
		password := getEnv("PSQL_PASSWORD", "postgres")
		dbName := getEnv("PSQL_DB_NAME", "calcapi")

		u := &url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(user, password),
			Host:   host + ":" + port,
			Path:   dbName,
		}
		q := u.Query()
		q.Set("sslmode", "disable")
		u.RawQuery = q.Encode()
		databaseURL = u.String()
	}

	secret := os.Getenv("AUTH_SECRET")
	fallback := secret == ""
	if fallback {
		secret = DevAuthSecret
		log.Println("WARNING: AUTH_SECRET not set, using insecure development secret")
	}

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          env,
		StoreDriver:          getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:          databaseURL,
		UsersFile:            getEnv("USERS_FILE", "users.json"),
		AuthSecret:           secret,
		AuthSecretIsFallback: fallback,
		JWTExpiresInSeconds:  getEnvInt64("JWT_EXPIRES_IN", 604800),
		PBKDF2Iterations:     int(getEnvInt64("PBKDF2_ITERATIONS", 120000)),
		AuthReturnResetToken: getEnvBool("AUTH_RETURN_RESET_TOKEN", false),
		SMTPHost:             os.Getenv("SMTP_HOST"),
		SMTPPort:             getEnv("SMTP_PORT", "587"),
		SMTPUser:             os.Getenv("SMTP_USER"),
		SMTPPassword:         os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:             os.Getenv("SMTP_FROM"),
		SMTPUseTLS:           getEnvBool("SMTP_USE_TLS", false),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
