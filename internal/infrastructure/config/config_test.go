package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if yaml != "" {
		require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	}
	return v
}

func TestDefaults(t *testing.T) {
	v := newViper(t, "jwt:\n  secret: test-secret\n")

	cfg, err := unmarshal(v)
	require.NoError(t, err)

	assert.Equal(t, "arcTestnet", cfg.Bridge.HubChain)
	assert.Equal(t, 15*time.Second, cfg.Bridge.AttestationPollInterval)
	assert.Equal(t, 60, cfg.Bridge.AttestationMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Bridge.ExecutionPollInterval)
	assert.Equal(t, 15, cfg.Bridge.ExecutionMaxAttempts)
	assert.Equal(t, []time.Duration{20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second},
		cfg.Bridge.DeliveryBackoff)
	assert.Equal(t, "0", cfg.Bridge.MaxFee)
	assert.Equal(t, uint32(0), cfg.Bridge.MinFinalityThreshold)
	assert.Equal(t, 45*time.Minute, cfg.Bridge.BackgroundTimeout)

	assert.Equal(t, "SCA", cfg.Circle.AccountType)
	assert.Equal(t, "ArcHub-Autonomous-v3", cfg.Circle.WalletSetName)
	assert.Equal(t, "AGENT-SCA-UNIVERSAL", cfg.Circle.WalletMetadataName)
	assert.Equal(t, "MEDIUM", cfg.Circle.FeeLevel)
	assert.Equal(t, []string{"arcTestnet", "ethereumSepolia", "baseSepolia"}, cfg.Circle.SupportedChains)
	assert.Equal(t, "sandbox", cfg.CCTP.Environment)

	assert.Equal(t, "@every 5m", cfg.Workers.RecoverySchedule)
	assert.Equal(t, 30*time.Minute, cfg.Workers.StaleAfter)

	assert.Equal(t, "postgres://postgres:@localhost:5432/hub_bridge?sslmode=disable", cfg.Database.URL)
	assert.False(t, cfg.IsProduction())
}

func TestYAMLOverrides(t *testing.T) {
	v := newViper(t, `
environment: production
jwt:
  secret: s
bridge:
  delivery_backoff: ["1s", "2s"]
  background_timeout: 10m
chains:
  baseSepolia:
    rpc_urls: ["https://a.example", "https://b.example"]
    min_native_gas: "0.001"
`)

	cfg, err := unmarshal(v)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, cfg.Bridge.DeliveryBackoff)
	assert.Equal(t, 10*time.Minute, cfg.Bridge.BackgroundTimeout)

	// viper lowercases map keys
	override, ok := cfg.Chains["basesepolia"]
	require.True(t, ok)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, override.RPCURLs)
	assert.Equal(t, "0.001", override.MinNativeGas)
}

func TestValidate(t *testing.T) {
	t.Run("missing jwt secret", func(t *testing.T) {
		_, err := unmarshal(newViper(t, ""))
		assert.ErrorContains(t, err, "JWT secret")
	})

	t.Run("api key without entity secret", func(t *testing.T) {
		_, err := unmarshal(newViper(t, "jwt:\n  secret: s\ncircle:\n  api_key: k\n"))
		assert.ErrorContains(t, err, "entity secret")
	})

	t.Run("ciphertext is enough", func(t *testing.T) {
		_, err := unmarshal(newViper(t, "jwt:\n  secret: s\ncircle:\n  api_key: k\n  entity_secret_ciphertext: c\n"))
		assert.NoError(t, err)
	})

	t.Run("empty backoff table", func(t *testing.T) {
		_, err := unmarshal(newViper(t, "jwt:\n  secret: s\nbridge:\n  delivery_backoff: []\n"))
		assert.ErrorContains(t, err, "delivery backoff")
	})

	t.Run("negative backoff delay", func(t *testing.T) {
		_, err := unmarshal(newViper(t, "jwt:\n  secret: s\nbridge:\n  delivery_backoff: [20s, -1s]\n"))
		assert.ErrorContains(t, err, "backoff[1] is negative")
	})
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"arcTestnet", "baseSepolia"}, splitList(" arcTestnet, ,baseSepolia "))
	assert.Nil(t, splitList(" , "))
}
