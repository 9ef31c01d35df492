package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"passagens/internal/utils"

	"github.com/joho/godotenv"
)

type Env struct {
	AppAddr   string
	GinMode   string
	LogLevel  string
	LogFormat string

	DBHost string
	DBUser string
	DBPass string
	DBName string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
	TripCacheTTL  time.Duration

	JWTSecret string
	JWTTTL    time.Duration
	OTPTTL    time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	MercadoPagoToken   string
	MercadoPagoBaseURL string
	ReconcileSchedule  string

	ReservationBaseURL string
	ReservationToken   string
	LocalitiesFile     string

	DriveCredentialsFile string
	DriveFolderID        string

	CORSOrigins []string
}

// LoadEnv reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func LoadEnv() Env {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env não pôde ser lido: %v", err)
	}

	return Env{
		AppAddr:   getEnv("APP_ADDR", ":8080"),
		GinMode:   getEnv("GIN_MODE", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DBHost: getEnv("DB_HOST", "127.0.0.1:3306"),
		DBUser: getEnv("DB_USER", "root"),
		DBPass: getEnv("DB_PASS", ""),
		DBName: getEnv("DB_NAME", "passagens"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		SessionTTL:    getDurationEnv("SESSION_TTL", 2*time.Hour),
		TripCacheTTL:  getDurationEnv("TRIP_CACHE_TTL", 60*time.Second),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTL:    getDurationEnv("JWT_TTL", 7*24*time.Hour),
		OTPTTL:    getDurationEnv("OTP_TTL", 10*time.Minute),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getIntEnv("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", "no-reply@passagens.local"),

		MercadoPagoToken:   getEnv("MP_ACCESS_TOKEN", ""),
		MercadoPagoBaseURL: getEnv("MP_BASE_URL", "https://api.mercadopago.com"),
		ReconcileSchedule:  getEnv("PAYMENT_RECONCILE_SCHEDULE", "@every 2m"),

		ReservationBaseURL: getEnv("RESERVATION_BASE_URL", ""),
		ReservationToken:   getEnv("RESERVATION_TOKEN", ""),
		LocalitiesFile:     getEnv("LOCALITIES_FILE", ""),

		DriveCredentialsFile: getEnv("DRIVE_CREDENTIALS_FILE", ""),
		DriveFolderID:        getEnv("DRIVE_FOLDER_ID", ""),

		CORSOrigins: getListEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}),
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return utils.SplitList(value)
}
