package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Stripe   StripeConfig
	Tickets  TicketConfig
	Push     PushConfig
	Email    EmailConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	AutoMigrate  bool
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

type RedisConfig struct {
	Addr       string
	ProfileTTL time.Duration
	PaymentTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	GroupID string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	TicketIssued    string
	TicketCheckedIn string
	EventUpdated    string
}

type AuthConfig struct {
	// Mode is "oidc" or "unverified". Unverified trusts the bearer token's
	// sub claim without signature checks and is meant for local runs.
	Mode       string
	OIDCIssuer string
}

type StripeConfig struct {
	SecretKey       string
	WebhookSecret   string
	DefaultCurrency string
	PaymentTimeout  time.Duration
}

type TicketConfig struct {
	QRSecret            string
	CapacityPolicy      string
	CheckinRequireEvent bool
	FontPath            string
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
	Concurrency     int
	Timeout         time.Duration
	PruneThreshold  int
	TTL             int
}

type EmailConfig struct {
	MailerSendAPIKey string
	FromEmail        string
	FromName         string
	TemplateID       string
	EventURLBase     string
}

const (
	CapacityEnforce  = "enforce"
	CapacityAdvisory = "advisory"
)

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "eventpass"),
			Password:     getEnv("DB_PASSWORD", "eventpass"),
			Database:     getEnv("DB_NAME", "eventpass"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
			AutoMigrate:  getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			ProfileTTL: getEnvDuration("PROFILE_CACHE_TTL", 10*time.Minute),
			PaymentTTL: getEnvDuration("PAYMENT_CACHE_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			GroupID: getEnv("KAFKA_GROUP_ID", "eventpass-group"),
			Enabled: getEnvBool("KAFKA_ENABLED", true),
			Topics: TopicConfig{
				TicketIssued:    getEnv("KAFKA_TOPIC_TICKET_ISSUED", "ticketing.ticket.issued"),
				TicketCheckedIn: getEnv("KAFKA_TOPIC_TICKET_CHECKED_IN", "ticketing.ticket.checked_in"),
				EventUpdated:    getEnv("KAFKA_TOPIC_EVENT_UPDATED", "ticketing.events.updated"),
			},
		},
		Auth: AuthConfig{
			Mode:       getEnv("AUTH_MODE", "oidc"),
			OIDCIssuer: getEnv("OIDC_ISSUER", ""),
		},
		Stripe: StripeConfig{
			SecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
			DefaultCurrency: strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
			PaymentTimeout:  getEnvDuration("PAYMENT_TIMEOUT", 10*time.Second),
		},
		Tickets: TicketConfig{
			QRSecret:            getEnv("QR_SECRET_KEY", ""),
			CapacityPolicy:      getEnv("CAPACITY_POLICY", CapacityEnforce),
			CheckinRequireEvent: getEnvBool("CHECKIN_REQUIRE_EVENT", true),
			FontPath:            getEnv("TICKET_FONT_PATH", "./fonts/DejaVuSans.ttf"),
		},
		Push: PushConfig{
			VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
			Subscriber:      getEnv("VAPID_SUBSCRIBER", "mailto:ops@eventpass.local"),
			Concurrency:     getEnvInt("PUSH_CONCURRENCY", 8),
			Timeout:         getEnvDuration("PUSH_TIMEOUT", 5*time.Second),
			PruneThreshold:  getEnvInt("PUSH_PRUNE_THRESHOLD", 5),
			TTL:             getEnvInt("PUSH_TTL_SECONDS", 3600),
		},
		Email: EmailConfig{
			MailerSendAPIKey: getEnv("MAILERSEND_API_KEY", ""),
			FromEmail:        getEnv("MAILERSEND_FROM_EMAIL", "no-reply@eventpass.local"),
			FromName:         getEnv("MAILERSEND_FROM_NAME", "EventPass"),
			TemplateID:       getEnv("MAILERSEND_UPDATE_TEMPLATE_ID", ""),
			EventURLBase:     getEnv("EVENT_URL_BASE", "http://localhost:3000/events"),
		},
	}
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Tickets.QRSecret == "" {
		return fmt.Errorf("QR_SECRET_KEY must be set")
	}
	if c.Auth.Mode == "oidc" && c.Auth.OIDCIssuer == "" {
		return fmt.Errorf("OIDC_ISSUER must be set when AUTH_MODE=oidc")
	}
	switch c.Tickets.CapacityPolicy {
	case CapacityEnforce, CapacityAdvisory:
	default:
		return fmt.Errorf("CAPACITY_POLICY must be %q or %q, got %q", CapacityEnforce, CapacityAdvisory, c.Tickets.CapacityPolicy)
	}
	if c.Push.Concurrency < 1 {
		return fmt.Errorf("PUSH_CONCURRENCY must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
