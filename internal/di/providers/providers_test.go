package providers

import (
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/openshelf-server/internal/clock"
	"github.com/openshelf/openshelf-server/internal/config"
)

func TestProvideClock(t *testing.T) {
	clk, err := ProvideClock(do.New())
	require.NoError(t, err)
	require.NotNil(t, clk)
	assert.IsType(t, clock.System{}, clk)
}

func TestProvideRateLimiter(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, &config.Config{
		RateLimit: config.RateLimitConfig{RPS: 5, Burst: 10},
	})

	h, err := ProvideRateLimiter(injector)
	require.NoError(t, err)
	require.NotNil(t, h.KeyedRateLimiter)
	assert.True(t, h.Allow("sess-1"))
	require.NoError(t, h.Shutdown())
}
