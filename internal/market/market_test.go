package market

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_MarketData(t *testing.T) {
	c := NewCollector(rand.New(rand.NewSource(1)))

	data, err := c.MarketData(context.Background(), []string{"USDC", "SOL"})
	require.NoError(t, err)

	sol := data.Prices["SOL"]
	assert.GreaterOrEqual(t, sol.PriceUSD, 34.0)
	assert.LessOrEqual(t, sol.PriceUSD, 36.0)
	assert.InDelta(t, 1.0, data.Prices["USDC"].PriceUSD, 0.005)
	assert.GreaterOrEqual(t, sol.Change24h, -5.0)
	assert.Less(t, sol.Change24h, 5.0)

	require.Len(t, data.Pools, 2)
	assert.Equal(t, "Orca SOL/USDC", data.Pools[0].Name)
	assert.Equal(t, 5_000_000.0, data.Pools[0].Liquidity)
	assert.Equal(t, 4_800_000.0, data.Pools[1].Liquidity)
}

func TestCollector_BonkPool(t *testing.T) {
	c := NewCollector(rand.New(rand.NewSource(2)))

	data, err := c.MarketData(context.Background(), []string{"usdc", "bonk"})
	require.NoError(t, err)
	require.Len(t, data.Pools, 1)
	assert.Equal(t, 1_200_000.0, data.Pools[0].Liquidity)
	assert.Less(t, data.Prices["bonk"].PriceUSD, 0.0001)
}

func TestCollector_Deterministic(t *testing.T) {
	a, _ := NewCollector(rand.New(rand.NewSource(7))).MarketData(context.Background(), []string{"SOL"})
	b, _ := NewCollector(rand.New(rand.NewSource(7))).MarketData(context.Background(), []string{"SOL"})
	assert.Equal(t, a.Prices, b.Prices)
}

func TestSentimentAnalyzer_Ranges(t *testing.T) {
	s := NewSentimentAnalyzer(rand.New(rand.NewSource(3)))

	tests := []struct {
		token     string
		sentiment float64
		trending  float64
	}{
		{"SOL", 0.6, 0.7},
		{"USDC", 0.3, 0.2},
		{"BONK", 0.5, 0.8},
		{"XYZ", 0.0, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				d, err := s.Sentiment(context.Background(), tt.token)
				require.NoError(t, err)
				assert.InDelta(t, tt.sentiment, d.SentimentScore, 0.2+1e-9)
				assert.InDelta(t, tt.trending, d.TrendingScore, 0.2+1e-9)
				assert.GreaterOrEqual(t, d.TrendingScore, 0.0)
			}
		})
	}
}

func TestSentimentAnalyzer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSentimentAnalyzer(rand.New(rand.NewSource(1))).Sentiment(ctx, "SOL")
	assert.ErrorIs(t, err, context.Canceled)
}
