package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// TwilioAccount holds the credentials for one Twilio account used by the
// failover dispatcher. WhatsAppNumber is the "whatsapp:+E164" from-address.
type TwilioAccount struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
}

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	DefaultCountryCode string

	UploadsDir          string
	MediaStorage        string
	MediaFetchTimeout   time.Duration
	S3Bucket            string
	S3Prefix            string
	AWSRegion           string
	AWSEndpointOverride string

	GradingServiceURL    string
	GradingTimeout       time.Duration
	GradingFallbackGrade string
	GradingFallbackScore int

	WorkerCount       int
	TaskQueueSize     int
	GradeSweepInterval time.Duration
	GradeSweepMaxAge   time.Duration

	WebhookDedup bool

	TwilioAccounts []TwilioAccount

	GreenAPIURL           string
	GreenAPIIDInstance    string
	GreenAPITokenInstance string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DefaultCountryCode: getEnv("DEFAULT_COUNTRY_CODE", "+91"),

		UploadsDir:          getEnv("UPLOADS_DIR", "public/uploads"),
		MediaStorage:        strings.ToLower(strings.TrimSpace(getEnv("MEDIA_STORAGE", "local"))),
		MediaFetchTimeout:   getEnvAsDuration("MEDIA_FETCH_TIMEOUT", 30*time.Second),
		S3Bucket:            getEnv("S3_BUCKET", ""),
		S3Prefix:            getEnv("S3_PREFIX", "uploads"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		GradingServiceURL:    getEnv("GRADING_SERVICE_URL", ""),
		GradingTimeout:       getEnvAsDuration("GRADING_TIMEOUT", 30*time.Second),
		GradingFallbackGrade: getEnv("GRADING_FALLBACK_GRADE", "Grade B"),
		GradingFallbackScore: getEnvAsInt("GRADING_FALLBACK_SCORE", 75),

		WorkerCount:        getEnvAsInt("WORKER_COUNT", 2),
		TaskQueueSize:      getEnvAsInt("TASK_QUEUE_SIZE", 128),
		GradeSweepInterval: getEnvAsDuration("GRADE_SWEEP_INTERVAL", 5*time.Minute),
		GradeSweepMaxAge:   getEnvAsDuration("GRADE_SWEEP_MAX_AGE", 10*time.Minute),

		WebhookDedup: getEnvAsBool("WEBHOOK_DEDUP", true),

		TwilioAccounts: loadTwilioAccounts(),

		GreenAPIURL:           getEnv("GREEN_API_URL", ""),
		GreenAPIIDInstance:    getEnv("GREEN_API_ID_INSTANCE", ""),
		GreenAPITokenInstance: getEnv("GREEN_API_TOKEN_INSTANCE", ""),
	}
}

// loadTwilioAccounts collects TWILIO_ACCOUNT_SID_1..5 style account sets, and
// falls back to the unnumbered primary variables when none are present.
func loadTwilioAccounts() []TwilioAccount {
	var accounts []TwilioAccount
	for i := 1; i <= 5; i++ {
		suffix := "_" + strconv.Itoa(i)
		sid := getEnv("TWILIO_ACCOUNT_SID"+suffix, "")
		token := getEnv("TWILIO_AUTH_TOKEN"+suffix, "")
		if sid == "" || token == "" {
			continue
		}
		number := getEnv("TWILIO_WHATSAPP_NUMBER"+suffix, getEnv("TWILIO_WHATSAPP_NUMBER", ""))
		accounts = append(accounts, TwilioAccount{
			AccountSID:     sid,
			AuthToken:      token,
			WhatsAppNumber: number,
		})
	}
	if len(accounts) == 0 {
		sid := getEnv("TWILIO_ACCOUNT_SID", "")
		token := getEnv("TWILIO_AUTH_TOKEN", "")
		if sid != "" && token != "" {
			accounts = append(accounts, TwilioAccount{
				AccountSID:     sid,
				AuthToken:      token,
				WhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
			})
		}
	}
	return accounts
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
