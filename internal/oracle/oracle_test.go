package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-agent/internal/domain"
)

func sampleTx() domain.SwapTransaction {
	return domain.SwapTransaction{
		TokenIn:            "USDC",
		TokenOut:           "BONK",
		AmountIn:           250,
		EstimatedAmountOut: 1_000_000,
		Slippage:           0.02,
		PoolName:           "Orca",
		WalletAddress:      "wallet",
		Signature:          "sig",
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name   string
		tx     domain.SwapTransaction
		jitter float64
		want   float64
	}{
		{
			name: "small unknown pair",
			tx:   domain.SwapTransaction{TokenIn: "RAY", TokenOut: "SRM", AmountIn: 10, Slippage: 0.001, PoolName: "Jupiter"},
			want: 0.04 + 0.03 + 0.1 + 0.1,
		},
		{
			name: "sol to usdc on raydium",
			tx:   domain.SwapTransaction{TokenIn: "SOL", TokenOut: "USDC", AmountIn: 50, Slippage: 0.005, PoolName: "Raydium"},
			want: 0.2 + 0.15 + 0.15 + 0.2,
		},
		{
			name:   "clamped",
			tx:     sampleTx(),
			jitter: 0.19,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.tx, tt.jitter), 1e-9)
		})
	}
}

func TestHeuristic_Decision(t *testing.T) {
	h := NewHeuristic(rand.New(rand.NewSource(42)))

	d, err := h.Evaluate(context.Background(), Request{Tx: sampleTx()})
	require.NoError(t, err)

	// 0.4 + 0.3 + 0.2 + 0.3 already saturates.
	assert.Equal(t, 1.0, d.OpportunityScore)
	assert.Equal(t, domain.ActionEnter, d.Action)
	assert.Equal(t, domain.RiskHigh, d.RiskLevel)
	assert.Contains(t, d.Reasoning, "USDC -> BONK on Orca")
	assert.Contains(t, d.Reasoning, "potential opportunity")
	assert.NoError(t, Validate(d))
}

func TestHeuristic_Skip(t *testing.T) {
	h := NewHeuristic(rand.New(rand.NewSource(1)))
	tx := domain.SwapTransaction{TokenIn: "RAY", TokenOut: "SRM", AmountIn: 1, Slippage: 0.001, PoolName: "Jupiter"}

	for i := 0; i < 20; i++ {
		d, _ := h.Evaluate(context.Background(), Request{Tx: tx})
		assert.Equal(t, domain.ActionSkip, d.Action)
		assert.Equal(t, domain.RiskLow, d.RiskLevel)
		assert.Less(t, d.OpportunityScore, 0.7)
	}
}

func TestHeuristic_SameSeedSameDecisions(t *testing.T) {
	// 0.2 size + 0.06 slippage + 0.1 venue + 0.1 pair, plus up to 0.2 jitter.
	tx := domain.SwapTransaction{TokenIn: "RAY", TokenOut: "SRM", AmountIn: 50, Slippage: 0.002, PoolName: "Jupiter"}
	const base = 0.46

	run := func(seed int64) []domain.AgentDecision {
		h := NewHeuristic(rand.New(rand.NewSource(seed)))
		var out []domain.AgentDecision
		for i := 0; i < 5; i++ {
			d, err := h.Evaluate(context.Background(), Request{Tx: tx})
			require.NoError(t, err)
			out = append(out, d)
		}
		return out
	}

	first, second := run(7), run(7)
	assert.Equal(t, first, second)
	for _, d := range first {
		assert.GreaterOrEqual(t, d.OpportunityScore, base)
		assert.Less(t, d.OpportunityScore, base+0.2)
		assert.NoError(t, Validate(d))
	}
	assert.NotEqual(t, first, run(8))
}

func TestValidate(t *testing.T) {
	ok := domain.AgentDecision{OpportunityScore: 0.5, Action: "skip", RiskLevel: "low"}
	assert.NoError(t, Validate(ok))

	bad := []domain.AgentDecision{
		{OpportunityScore: 1.2, Action: "skip", RiskLevel: "low"},
		{OpportunityScore: 0.5, Action: "buy", RiskLevel: "low"},
		{OpportunityScore: 0.5, Action: "enter", RiskLevel: "extreme"},
	}
	for _, d := range bad {
		assert.True(t, errors.Is(Validate(d), domain.ErrOracle))
	}
}

func fastRemoteConfig(endpoint string) RemoteConfig {
	return RemoteConfig{
		Endpoint:          endpoint,
		APIKey:            "secret",
		RequestsPerSecond: 1000,
		Burst:             10,
		RetryMax:          1,
		RetryWaitMin:      time.Millisecond,
		RetryWaitMax:      2 * time.Millisecond,
	}
}

func TestRemote_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "USDC", req.Transaction.TokenIn)
		assert.JSONEq(t, `{"prices":{}}`, string(req.MarketData))
		assert.Equal(t, "null", string(req.SentimentData))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"opportunity_score": 0.92,
			"action":            "enter",
			"risk_level":        "high",
			"reasoning":         "large swap",
		})
	}))
	defer server.Close()

	logger, _ := test.NewNullLogger()
	r := NewRemote(fastRemoteConfig(server.URL), NewHeuristic(rand.New(rand.NewSource(1))), logger)

	d, err := r.Evaluate(context.Background(), Request{Tx: sampleTx(), MarketJSON: json.RawMessage(`{"prices":{}}`)})
	require.NoError(t, err)
	assert.Equal(t, 0.92, d.OpportunityScore)
	assert.Equal(t, "large swap", d.Reasoning)
	assert.Equal(t, SourceRemote, r.LastSource())
}

func TestRemote_FallsBack(t *testing.T) {
	var calls atomic.Int32

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"opportunity_score": "high"`))
		}},
		{"out of range", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte(`{"opportunity_score": 3, "action": "enter", "risk_level": "low"}`))
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			logger, hook := test.NewNullLogger()
			r := NewRemote(fastRemoteConfig(server.URL), NewHeuristic(rand.New(rand.NewSource(1))), logger)

			d, err := r.Evaluate(context.Background(), Request{Tx: sampleTx()})
			require.NoError(t, err)
			assert.NoError(t, Validate(d))
			assert.Equal(t, SourceFallback, r.LastSource())
			require.NotNil(t, hook.LastEntry())
			assert.Equal(t, "remote oracle failed, using heuristic", hook.LastEntry().Message)
		})
	}
	assert.Positive(t, calls.Load())
}

func TestNew_Selection(t *testing.T) {
	h := NewHeuristic(rand.New(rand.NewSource(1)))

	assert.Same(t, h, New(RemoteConfig{}, h, nil))
	_, ok := New(RemoteConfig{Endpoint: "http://localhost"}, h, nil).(*Remote)
	assert.True(t, ok)
}
