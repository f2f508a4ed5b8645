package domain

// TokenPrice is a point-in-time price snapshot for one token.
type TokenPrice struct {
	Symbol    string  `json:"symbol"`
	PriceUSD  float64 `json:"price_usd"`
	Volume24h float64 `json:"volume_24h"`
	Change24h float64 `json:"change_24h"` // percent
}

// PoolSnapshot describes one liquidity pool.
type PoolSnapshot struct {
	Name      string  `json:"name"`
	TokenA    string  `json:"token_a"`
	TokenB    string  `json:"token_b"`
	Liquidity float64 `json:"liquidity"`
	Volume24h float64 `json:"volume_24h"`
	FeeRate   float64 `json:"fee_rate"`
}

// MarketData is fetched fresh for every transaction and never cached.
type MarketData struct {
	Prices    map[string]TokenPrice `json:"prices"`
	Pools     []PoolSnapshot        `json:"pools"`
	Timestamp int64                 `json:"timestamp"`
}

// SentimentData is a social sentiment snapshot for one token.
type SentimentData struct {
	Token          string  `json:"token"`
	SentimentScore float64 `json:"sentiment_score"` // -1..1
	SocialVolume   int64   `json:"social_volume"`
	TrendingScore  float64 `json:"trending_score"` // 0..1
	Timestamp      int64   `json:"timestamp"`
}
