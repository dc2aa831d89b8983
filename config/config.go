package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     string
	GinMode  string
	LogLevel string

	// Storage
	Store         string // "mongo" or "memory"
	MongoURI      string
	MongoDatabase string

	// Cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Identity
	AuthProvider            string // "firebase" or "local"
	FirebaseProjectID       string
	FirebaseCredentialsFile string
	JWTSecret               string

	// Media
	CloudinaryURL string

	// Mail
	MailProvider string // "resend", "smtp" or "none"
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// Payments
	PayUKey        string
	PayUSalt       string
	PayUBaseURL    string
	PayUSuccessURL string
	PayUFailureURL string
	PayUCallback   string

	// Web push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	CORSOrigins        []string
	RateLimitPerMinute int
}

// LoadDotEnvs loads .env files, most specific first. godotenv never overrides
// a variable that is already set, so earlier files win.
func LoadDotEnvs() {
	env := os.Getenv("KAVYALOK_ENV")
	if env == "" {
		env = "dev"
	}
	_ = godotenv.Load(".env." + env + ".local")
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env." + env)
	_ = godotenv.Load(".env")
}

func Load() *Config {
	LoadDotEnvs()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	smtpPort, _ := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	ttlSeconds, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "300"))
	if err != nil || ttlSeconds <= 0 {
		ttlSeconds = 300
	}
	ratePerMinute, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "120"))
	if err != nil || ratePerMinute <= 0 {
		ratePerMinute = 120
	}

	return &Config{
		Env:      getEnv("KAVYALOK_ENV", "dev"),
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Store:         getEnv("STORE", "mongo"),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://127.0.0.1:27017"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "kavyalok"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
		CacheTTL:      time.Duration(ttlSeconds) * time.Second,

		AuthProvider:            getEnv("AUTH_PROVIDER", "firebase"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		JWTSecret:               getEnv("JWT_SECRET", ""),

		CloudinaryURL: getEnv("CLOUDINARY_URL", ""),

		MailProvider: getEnv("MAIL_PROVIDER", "none"),
		ResendAPIKey: getEnv("RESEND_API_KEY", ""),
		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     smtpPort,
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "Kavyalok <noreply@kavyalok.in>"),

		PayUKey:        getEnv("PAYU_KEY", ""),
		PayUSalt:       getEnv("PAYU_SALT", ""),
		PayUBaseURL:    getEnv("PAYU_BASE_URL", "https://test.payu.in/_payment"),
		PayUSuccessURL: getEnv("PAYU_SUCCESS_URL", "http://localhost:3000/competitions/success"),
		PayUFailureURL: getEnv("PAYU_FAILURE_URL", "http://localhost:3000/competitions/failure"),
		PayUCallback:   getEnv("PAYU_CALLBACK_URL", "http://localhost:8080/api/payments/callback"),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:admin@kavyalok.in"),

		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		RateLimitPerMinute: ratePerMinute,
	}
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Store {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI must be set when STORE=mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.AuthProvider {
	case "firebase":
		if c.FirebaseProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID must be set when AUTH_PROVIDER=firebase")
		}
	case "local":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET must be set when AUTH_PROVIDER=local")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	switch c.MailProvider {
	case "resend":
		if c.ResendAPIKey == "" {
			return fmt.Errorf("RESEND_API_KEY must be set when MAIL_PROVIDER=resend")
		}
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST must be set when MAIL_PROVIDER=smtp")
		}
	case "none":
	default:
		return fmt.Errorf("unknown MAIL_PROVIDER %q", c.MailProvider)
	}

	if (c.PayUKey == "") != (c.PayUSalt == "") {
		return fmt.Errorf("PAYU_KEY and PAYU_SALT must be set together")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
