package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CAPACITY_POLICY", "")
	t.Setenv("CHECKIN_REQUIRE_EVENT", "")
	t.Setenv("PUSH_CONCURRENCY", "")

	cfg := Load()

	assert.Equal(t, CapacityEnforce, cfg.Tickets.CapacityPolicy)
	assert.True(t, cfg.Tickets.CheckinRequireEvent)
	assert.Equal(t, 8, cfg.Push.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Stripe.PaymentTimeout)
	assert.Equal(t, "ticketing.events.updated", cfg.Kafka.Topics.EventUpdated)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("PUSH_TIMEOUT", "750ms")
	t.Setenv("PUSH_PRUNE_THRESHOLD", "3")
	t.Setenv("CHECKIN_REQUIRE_EVENT", "false")
	t.Setenv("STRIPE_CURRENCY", "LKR")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.Push.Timeout)
	assert.Equal(t, 3, cfg.Push.PruneThreshold)
	assert.False(t, cfg.Tickets.CheckinRequireEvent)
	assert.Equal(t, "lkr", cfg.Stripe.DefaultCurrency)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("PUSH_TIMEOUT", "soon")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Push.Timeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestValidate(t *testing.T) {
	t.Setenv("QR_SECRET_KEY", "s3cret")
	t.Setenv("AUTH_MODE", "unverified")
	t.Setenv("CAPACITY_POLICY", "advisory")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	cfg.Tickets.CapacityPolicy = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg.Tickets.CapacityPolicy = CapacityEnforce
	cfg.Tickets.QRSecret = ""
	assert.Error(t, cfg.Validate())

	cfg.Tickets.QRSecret = "s3cret"
	cfg.Auth.Mode = "oidc"
	cfg.Auth.OIDCIssuer = ""
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Username: "u", Password: "p", Host: "db", Port: "5432", Database: "ep", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/ep?sslmode=disable", d.DSN())
}
