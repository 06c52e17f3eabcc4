package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "PORT"} {
		t.Setenv(key, "")
	}
}

func load(t *testing.T) (*Config, error) {
	t.Helper()
	return loadConfig(aconfig.Config{SkipFlags: true})
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("CATALOG_DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("CATALOG_JWT_SECRET", "s3cret")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Equal(t, "ADMIN", cfg.JWT.RequiredRole)
	assert.Equal(t, "ADMIN", cfg.JWT.StockRole)
	assert.Equal(t, "allow", cfg.Stock.NegativePolicy)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_PlatformFallbacks(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("DATABASE_URL", "postgres://platform/catalog")
	t.Setenv("JWT_SECRET", "platform-secret")
	t.Setenv("PORT", "9090")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform/catalog", cfg.DatabaseURL)
	assert.Equal(t, "platform-secret", cfg.JWT.Secret)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("CATALOG_DATABASE_URL", "postgres://localhost/catalog")
	t.Setenv("CATALOG_JWT_SECRET", "s3cret")
	t.Setenv("CATALOG_JWT_REQUIRED_ROLE", "EDITOR")
	t.Setenv("CATALOG_STOCK_NEGATIVE_POLICY", "clamp")
	t.Setenv("CATALOG_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "EDITOR", cfg.JWT.RequiredRole)
	assert.Equal(t, "EDITOR", cfg.JWT.StockRole, "stock role follows the required role")
	assert.Equal(t, "clamp", cfg.Stock.NegativePolicy)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "catalog.product.created", cfg.Kafka.ProductTopic)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "no database",
			env:  map[string]string{"CATALOG_JWT_SECRET": "s3cret"},
			want: "database URL is required",
		},
		{
			name: "no secret",
			env:  map[string]string{"CATALOG_DATABASE_URL": "postgres://localhost/catalog"},
			want: "JWT secret is required",
		},
		{
			name: "bad policy",
			env: map[string]string{
				"CATALOG_DATABASE_URL":          "postgres://localhost/catalog",
				"CATALOG_JWT_SECRET":            "s3cret",
				"CATALOG_STOCK_NEGATIVE_POLICY": "ignore",
			},
			want: "unknown stock policy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearPlatformEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
