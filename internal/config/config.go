package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Required variables are enforced by must()
// and missing values cause the program to exit with a fatal log message.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLHours int    // access token time-to-live in hours
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing
	AdminLoginID   string // bootstrap administrator login id
	AdminPassword  string // bootstrap administrator password
	UploadDir      string // root directory for uploaded profile images
	WebOrigin      string // allowed CORS origin for the web frontend
	AMQPURL        string // RabbitMQ broker URL, empty disables events
	RateLimit      int    // requests per window per ip+route, 0 disables
	RateWindowSecs int    // rate limit window length in seconds
}

// Load reads configuration values from environment variables and
// returns a Config. Optional values fall back to sensible defaults so
// a dev environment only needs the database and JWT settings.
func Load() Config {
	return Config{
		Env:            getenv("APP_ENV", "dev"),
		Port:           getenv("APP_PORT", "8080"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLHours: getenvInt("ACCESS_TOKEN_TTL_HOURS", 24),
		RefreshTTLDays: getenvInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:     getenvInt("BCRYPT_COST", 12),
		AdminLoginID:   getenv("ADMIN_USERNAME", "admin"),
		AdminPassword:  must("ADMIN_PASSWORD"),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		WebOrigin:      getenv("WEB_ORIGIN", "http://localhost:3000"),
		AMQPURL:        os.Getenv("RABBITMQ_URL"),
		RateLimit:      getenvInt("RATE_LIMIT", 120),
		RateWindowSecs: getenvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
