package config

import (
	"testing"
	"time"

	"lol-tracker/internal/constants"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresAPIKey(t *testing.T) {
	t.Setenv("RIOT_API_KEY", "")

	_, err := Load(zerolog.Nop())
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	for _, key := range []string{"FETCH_BUDGET", "TRACKED_QUEUE", "API_MAX_RETRIES", "CATALOG_TTL", "REFRESH_ON_START", "TRACKED_YEAR"} {
		t.Setenv(key, "")
	}

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, constants.FetchBudget, cfg.FetchBudget)
	assert.Equal(t, constants.RankedSoloID, cfg.TrackedQueue)
	assert.Equal(t, constants.APIMaxRetries, cfg.APIMaxRetries)
	assert.Equal(t, constants.CatalogTTL, cfg.CatalogTTL)
	assert.Equal(t, time.Now().UTC().Year(), cfg.TrackedYear)
	assert.True(t, cfg.RefreshOnStart)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("RIOT_API_KEY", "RGAPI-test")
	t.Setenv("FETCH_BUDGET", "7")
	t.Setenv("TRACKED_YEAR", "2024")
	t.Setenv("TRACKED_QUEUE", "0")
	t.Setenv("API_CALL_DEADLINE", "15s")
	t.Setenv("REFRESH_ON_START", "false")
	t.Setenv("CATALOG_LOCALE", "fr_FR")

	cfg, err := Load(zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.FetchBudget)
	assert.Equal(t, 2024, cfg.TrackedYear)
	assert.Equal(t, 0, cfg.TrackedQueue)
	assert.Equal(t, 15*time.Second, cfg.APICallDeadline)
	assert.False(t, cfg.RefreshOnStart)
	assert.Equal(t, "fr_FR", cfg.CatalogLocale)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("RIOT_API_KEY", "RGAPI-test")

	t.Run("non numeric budget", func(t *testing.T) {
		t.Setenv("FETCH_BUDGET", "many")
		_, err := Load(zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("zero retries", func(t *testing.T) {
		t.Setenv("FETCH_BUDGET", "")
		t.Setenv("API_MAX_RETRIES", "0")
		_, err := Load(zerolog.Nop())
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("API_MAX_RETRIES", "")
		t.Setenv("CATALOG_TTL", "tomorrow")
		_, err := Load(zerolog.Nop())
		require.Error(t, err)
	})
}
