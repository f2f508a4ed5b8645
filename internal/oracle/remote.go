package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
)

// RemoteConfig configures the HTTP scoring oracle.
type RemoteConfig struct {
	Endpoint          string
	APIKey            string
	RequestsPerSecond float64
	Burst             int
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
}

// DefaultRemoteConfig returns pacing and retry defaults.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		RequestsPerSecond: 5,
		Burst:             1,
		RetryMax:          3,
		RetryWaitMin:      500 * time.Millisecond,
		RetryWaitMax:      3 * time.Second,
	}
}

// Remote calls an HTTP scoring endpoint and falls back to a Heuristic on any
// failure. Evaluate never returns an error.
type Remote struct {
	endpoint string
	apiKey   string
	client   *retryablehttp.Client
	limiter  *rate.Limiter
	fallback *Heuristic
	logger   logrus.FieldLogger
	last     atomic.Value // string
}

// NewRemote creates a remote oracle. A nil logger uses the logrus standard logger.
func NewRemote(cfg RemoteConfig, fallback *Heuristic, logger logrus.FieldLogger) *Remote {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	def := DefaultRemoteConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = def.RetryWaitMin
	}
	if cfg.RetryWaitMax <= 0 {
		cfg.RetryWaitMax = def.RetryWaitMax
	}

	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	c.RetryWaitMin = cfg.RetryWaitMin
	c.RetryWaitMax = cfg.RetryWaitMax
	c.Logger = nil

	r := &Remote{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   c,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		fallback: fallback,
		logger:   logger.WithField("component", "oracle"),
	}
	r.last.Store(SourceRemote)
	return r
}

var _ Oracle = (*Remote)(nil)

// LastSource implements Sourced.
func (r *Remote) LastSource() string {
	return r.last.Load().(string)
}

// Evaluate scores req remotely, or with the fallback heuristic when the remote
// call fails or returns an invalid verdict.
func (r *Remote) Evaluate(ctx context.Context, req Request) (domain.AgentDecision, error) {
	start := time.Now()
	d, err := r.call(ctx, req)
	observability.RecordOracleLatency(SourceRemote, time.Since(start).Seconds())
	if err == nil {
		r.last.Store(SourceRemote)
		return d, nil
	}

	observability.RecordOracleFallback()
	r.logger.WithError(err).WithFields(logrus.Fields{
		"pair":      req.Tx.Pair(),
		"signature": req.Tx.Signature,
	}).Warn("remote oracle failed, using heuristic")

	r.last.Store(SourceFallback)
	return r.fallback.Evaluate(ctx, req)
}

type remoteRequest struct {
	Transaction   domain.SwapTransaction `json:"transaction"`
	MarketData    json.RawMessage        `json:"market_data"`
	SentimentData json.RawMessage        `json:"sentiment_data"`
}

func (r *Remote) call(ctx context.Context, req Request) (domain.AgentDecision, error) {
	const op = "oracle.remote"

	if err := r.limiter.Wait(ctx); err != nil {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op, err)
	}

	body, err := json.Marshal(remoteRequest{
		Transaction:   req.Tx,
		MarketData:    nullIfEmpty(req.MarketJSON),
		SentimentData: nullIfEmpty(req.SentimentJSON),
	})
	if err != nil {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op, fmt.Errorf("marshal request: %w", err))
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	var d domain.AgentDecision
	if err := json.Unmarshal(respBody, &d); err != nil {
		return domain.AgentDecision{}, domain.NewError(domain.ErrOracle, op, fmt.Errorf("decode response: %w", err))
	}
	if err := Validate(d); err != nil {
		return domain.AgentDecision{}, err
	}
	return d, nil
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// New selects the remote oracle when an endpoint is configured, the heuristic otherwise.
func New(cfg RemoteConfig, heuristic *Heuristic, logger logrus.FieldLogger) Oracle {
	if cfg.Endpoint == "" {
		return heuristic
	}
	return NewRemote(cfg, heuristic, logger)
}
