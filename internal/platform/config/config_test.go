package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("NEXT_PUBLIC_SUPABASE_URL", "https://demo.supabase.co/")
	t.Setenv("NEXT_PUBLIC_SUPABASE_ANON_KEY", "anon")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "pointer_browser", cfg.Session.CookieName)
	assert.Equal(t, "https://demo.supabase.co", cfg.Supabase.IdentityURL())
	assert.Equal(t, "https://demo.supabase.co", cfg.Supabase.DataURL())
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestServerURLPreferredForData(t *testing.T) {
	s := Supabase{URL: "https://public.example", ServerURL: "http://internal:54321"}

	assert.Equal(t, "https://public.example", s.IdentityURL())
	assert.Equal(t, "http://internal:54321", s.DataURL())
}

func TestValidateIdentity(t *testing.T) {
	t.Run("missing url", func(t *testing.T) {
		err := Supabase{AnonKey: "anon"}.ValidateIdentity()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NEXT_PUBLIC_SUPABASE_URL")
	})

	t.Run("missing anon key", func(t *testing.T) {
		err := Supabase{URL: "https://x"}.ValidateIdentity()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	})

	t.Run("complete", func(t *testing.T) {
		assert.NoError(t, Supabase{URL: "https://x", AnonKey: "anon"}.ValidateIdentity())
	})
}

func TestValidatePricing(t *testing.T) {
	err := Supabase{URL: "https://x", AnonKey: "anon"}.ValidatePricing()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_SERVICE_ROLE_KEY")

	assert.NoError(t, Supabase{ServerURL: "https://x", ServiceRoleKey: "srv"}.ValidatePricing())
}

func TestValidateSession(t *testing.T) {
	assert.Error(t, Session{Secret: "short", CookieName: "c"}.Validate())
	assert.NoError(t, Session{Secret: "0123456789abcdef0123456789abcdef", CookieName: "c"}.Validate())
}

func TestKafkaBrokersAreSplit(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}
