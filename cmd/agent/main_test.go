package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-mev-agent/internal/discovery"
	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/executor"
	"solana-mev-agent/internal/solana/stub"
	"solana-mev-agent/internal/stream"
)

func TestWriteHistory(t *testing.T) {
	out, sig, notes := 1295.0, "5VERv8", "Error: blockhash not found"
	logs := []*domain.TradeLog{
		{
			ID: "a", Timestamp: time.Unix(1700000000, 0), TokenIn: "USDC", TokenOut: "SOL",
			AmountIn: 50000, AmountOut: &out, Strategy: domain.StrategySandwich, TxSignature: &sig, Success: true,
		},
		{
			ID: "b", Timestamp: time.Unix(1700000060, 0), TokenIn: "SOL", TokenOut: "BONK",
			AmountIn: 2.5, Strategy: domain.StrategySnipe, Notes: &notes,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, logs))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "2023-11-14T22:13:20Z")
	assert.Contains(t, lines[1], "USDC/SOL")
	assert.Contains(t, lines[1], "1295")
	assert.Contains(t, lines[1], "5VERv8")
	assert.Contains(t, lines[2], "failed")
	assert.Equal(t, "2 trades, 1 succeeded, 1 failed", lines[4])
}

func TestWriteHistory_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHistory(&buf, nil))
	assert.Equal(t, "no trades logged\n", buf.String())
}

func TestWriteHistoryJSON(t *testing.T) {
	logs := []*domain.TradeLog{
		{ID: "a", TokenIn: "USDC", TokenOut: "SOL", Strategy: domain.StrategyArbitrage, Success: true},
	}
	var buf bytes.Buffer
	require.NoError(t, writeHistoryJSON(&buf, logs))

	var got domain.TradeLog
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, domain.StrategyArbitrage, got.Strategy)
}

func TestHandleStatus(t *testing.T) {
	logger, _ := test.NewNullLogger()
	a := &agent{
		logger:   logger,
		dryRun:   true,
		stream:   stream.New(&stub.WSClient{}, stub.NewRPCClient(), discovery.NewDEXParser(nil), stream.DefaultConfig(), logger),
		executor: executor.New(executor.Deps{}, executor.Config{DryRun: true}, logger),
		queue:    make(chan domain.SwapTransaction, 100),
		started:  time.Now().Add(-time.Minute),
	}
	a.queue <- domain.SwapTransaction{TokenIn: "USDC", TokenOut: "SOL"}

	rec := httptest.NewRecorder()
	a.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "running", resp.Status)
	assert.True(t, resp.DryRun)
	assert.Equal(t, "disconnected", resp.StreamState)
	assert.Equal(t, 1, resp.QueueLength)
	assert.Equal(t, 100, resp.QueueCapacity)
}
