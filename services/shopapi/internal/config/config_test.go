package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, ProviderMock, cfg.PaymentProvider)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 30*time.Second, cfg.CatalogMaxAge)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UseKafka())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET"},
		{"bad port", map[string]string{"SHOPAPI_HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"unknown store", map[string]string{"SHOPAPI_STORE": "mongo"}, "SHOPAPI_STORE"},
		{"bcrypt cost", map[string]string{"BCRYPT_COST": "2"}, "BCRYPT_COST"},
		{"unknown provider", map[string]string{"PAYMENT_PROVIDER": "paypal"}, "PAYMENT_PROVIDER"},
		{"mock outside development", map[string]string{"ENVIRONMENT": "production"}, "only allowed in development"},
		{"stripe without keys", map[string]string{"PAYMENT_PROVIDER": "stripe"}, "STRIPE_SECRET_KEY"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "1.5"}, "OTEL_SAMPLE_RATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			assert.Nil(t, cfg)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_Stripe(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PAYMENT_PROVIDER", "stripe")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderStripe, cfg.PaymentProvider)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.UseKafka())
}

func TestLoad_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shopapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"SHOPAPI_STORE: memory\n"+
			"JWT_SECRET: "+testSecret+"\n"+
			"BCRYPT_COST: 4\n"+
			"SHOPAPI_HTTP_PORT: 9000\n"), 0o600))
	t.Setenv("SHOPAPI_CONFIG_FILE", path)
	t.Setenv("SHOPAPI_HTTP_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, 4, cfg.BcryptCost)
	assert.Equal(t, 9100, cfg.HTTPPort, "environment wins over the file")
}
