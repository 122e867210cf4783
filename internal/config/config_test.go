package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealmail/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "usda", cfg.Nutrition.Primary.Provider)
	assert.Equal(t, 100, cfg.Nutrition.Primary.BackoffMillis)
	assert.Equal(t, "openfoodfacts", cfg.Nutrition.Secondary.Provider)
	assert.Equal(t, 200, cfg.Nutrition.Secondary.BackoffMillis)
	assert.Equal(t, "memory", cfg.Nutrition.CacheBackend)
	assert.Equal(t, 3, cfg.Classifier.MinStrongIndicators)
	assert.Equal(t, 3, cfg.Classifier.RestaurantMinLen)
	assert.Equal(t, 49, cfg.Classifier.RestaurantMaxLen)
	assert.Empty(t, cfg.Classifier.PaymentTokens)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "noop", cfg.Email.Provider)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEALMAIL_NUTRITION_PRIMARY_PROVIDER", "Nutritionix")
	t.Setenv("MEALMAIL_NUTRITION_PRIMARY_APP_ID", "app-1")
	t.Setenv("MEALMAIL_NUTRITION_CACHE_BACKEND", "SQLite")
	t.Setenv("MEALMAIL_CLASSIFIER_PAYMENT_TOKENS", "Apple Pay, PayPal ,,with")
	t.Setenv("MEALMAIL_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("MEALMAIL_WEBHOOK_SIGNING_KEY", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "nutritionix", cfg.Nutrition.Primary.Provider)
	assert.Equal(t, "app-1", cfg.Nutrition.Primary.AppID)
	assert.Equal(t, "sqlite", cfg.Nutrition.CacheBackend)
	assert.Equal(t, []string{"Apple Pay", "PayPal", "with"}, cfg.Classifier.PaymentTokens)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "secret", cfg.Webhook.SigningKey)
}

func TestLoad_PortFromPlatformEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Port)
}

func TestLoad_RejectsInvertedRestaurantBounds(t *testing.T) {
	t.Setenv("MEALMAIL_CLASSIFIER_RESTAURANT_MIN_LEN", "60")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestNutritionConfig_SecondaryConfig(t *testing.T) {
	n := config.NutritionConfig{}
	assert.Nil(t, n.SecondaryConfig())

	n.Secondary.Provider = "openfoodfacts"
	require.NotNil(t, n.SecondaryConfig())
	assert.Equal(t, "openfoodfacts", n.SecondaryConfig().Provider)
}

func TestDBConfig_DSN(t *testing.T) {
	d := config.DBConfig{User: "u", Password: "p", Host: "h", Port: 5432, Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", d.DSN())
}

func TestLoadWithFlags_ExplicitFlagWins(t *testing.T) {
	t.Setenv("MEALMAIL_NUTRITION_PRIMARY_PROVIDER", "nutritionix")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("primary-source", "usda", "")
	fs.String("cache-backend", "memory", "")
	require.NoError(t, fs.Parse([]string{"--primary-source", "OpenFoodFacts"}))

	cfg, err := config.LoadWithFlags(fs, map[string]string{
		"nutrition.primary.provider": "primary-source",
		"nutrition.cache_backend":    "cache-backend",
	})
	require.NoError(t, err)
	assert.Equal(t, "openfoodfacts", cfg.Nutrition.Primary.Provider)
	assert.Equal(t, "memory", cfg.Nutrition.CacheBackend)
}

func TestLoadWithFlags_UnsetFlagKeepsEnv(t *testing.T) {
	t.Setenv("MEALMAIL_NUTRITION_PRIMARY_PROVIDER", "nutritionix")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("primary-source", "usda", "")
	require.NoError(t, fs.Parse(nil))

	cfg, err := config.LoadWithFlags(fs, map[string]string{"nutrition.primary.provider": "primary-source"})
	require.NoError(t, err)
	assert.Equal(t, "nutritionix", cfg.Nutrition.Primary.Provider)
}

func TestLoadWithFlags_UnknownFlag(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	_, err := config.LoadWithFlags(fs, map[string]string{"nutrition.primary.provider": "missing"})
	assert.Error(t, err)
}
