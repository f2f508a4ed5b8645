// Package market provides market and sentiment snapshots for evaluation.
// Both providers are simulated from a seeded generator.
package market

import (
	"context"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"solana-mev-agent/internal/domain"
)

// DataSource returns a market snapshot for the given tokens.
type DataSource interface {
	MarketData(ctx context.Context, tokens []string) (*domain.MarketData, error)
}

// SentimentSource returns a sentiment snapshot for one token.
type SentimentSource interface {
	Sentiment(ctx context.Context, token string) (*domain.SentimentData, error)
}

// lockedRand shares one seeded generator between concurrent fetches.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) Int63n(n int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Int63n(n)
}

// Collector simulates market data.
type Collector struct {
	rng *lockedRand
	now func() time.Time
}

// NewCollector creates a Collector drawing from rng.
func NewCollector(rng *rand.Rand) *Collector {
	return &Collector{rng: &lockedRand{rng: rng}, now: time.Now}
}

var _ DataSource = (*Collector)(nil)

// MarketData returns simulated prices for tokens and the known pools among them.
func (c *Collector) MarketData(ctx context.Context, tokens []string) (*domain.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	upper := make([]string, len(tokens))
	for i, t := range tokens {
		upper[i] = strings.ToUpper(t)
	}

	data := &domain.MarketData{
		Prices:    make(map[string]domain.TokenPrice, len(tokens)),
		Timestamp: c.now().Unix(),
	}
	for i, sym := range upper {
		data.Prices[tokens[i]] = domain.TokenPrice{
			Symbol:    tokens[i],
			PriceUSD:  c.price(sym),
			Change24h: c.rng.Float64()*10 - 5,
			Volume24h: c.rng.Float64() * 1_000_000,
		}
	}

	has := func(sym string) bool { return slices.Contains(upper, sym) }
	if has("SOL") && has("USDC") {
		data.Pools = append(data.Pools,
			domain.PoolSnapshot{Name: "Orca SOL/USDC", TokenA: "SOL", TokenB: "USDC", Liquidity: 5_000_000, Volume24h: 1_000_000, FeeRate: 0.0025},
			domain.PoolSnapshot{Name: "Raydium SOL/USDC", TokenA: "SOL", TokenB: "USDC", Liquidity: 4_800_000, Volume24h: 950_000, FeeRate: 0.003},
		)
	}
	if has("BONK") && has("USDC") {
		data.Pools = append(data.Pools,
			domain.PoolSnapshot{Name: "Orca BONK/USDC", TokenA: "BONK", TokenB: "USDC", Liquidity: 1_200_000, Volume24h: 350_000, FeeRate: 0.003},
		)
	}
	return data, nil
}

func (c *Collector) price(sym string) float64 {
	switch sym {
	case "SOL":
		return 35 + c.rng.Float64()*2 - 1
	case "USDC":
		return 1 + c.rng.Float64()*0.01 - 0.005
	case "BONK":
		return 0.00001 + c.rng.Float64()*0.000001
	default:
		return 1
	}
}

// SentimentAnalyzer simulates social sentiment.
type SentimentAnalyzer struct {
	rng *lockedRand
	now func() time.Time
}

// NewSentimentAnalyzer creates a SentimentAnalyzer drawing from rng.
func NewSentimentAnalyzer(rng *rand.Rand) *SentimentAnalyzer {
	return &SentimentAnalyzer{rng: &lockedRand{rng: rng}, now: time.Now}
}

var _ SentimentSource = (*SentimentAnalyzer)(nil)

// Sentiment returns a simulated sentiment snapshot for token.
func (a *SentimentAnalyzer) Sentiment(ctx context.Context, token string) (*domain.SentimentData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sentiment, trending float64
	switch strings.ToUpper(token) {
	case "SOL":
		sentiment, trending = 0.6, 0.7
	case "USDC":
		sentiment, trending = 0.3, 0.2
	case "BONK":
		sentiment, trending = 0.5, 0.8
	default:
		sentiment, trending = 0, 0.3
	}

	jitter := a.rng.Float64()*0.4 - 0.2
	return &domain.SentimentData{
		Token:          token,
		SentimentScore: clamp(sentiment+jitter, -1, 1),
		SocialVolume:   a.rng.Int63n(1000),
		TrendingScore:  clamp(trending+jitter, 0, 1),
		Timestamp:      a.now().Unix(),
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
