// Package router talks to the Jupiter v6 swap API.
package router

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/solana"
)

// DefaultEndpoint is the public Jupiter v6 API.
const DefaultEndpoint = "https://quote-api.jup.ag/v6"

// Quote failures. Both wrap domain.ErrValidation.
var (
	ErrNoRoute     = errors.New("no route")
	ErrBelowMinOut = errors.New("quote below minimum output")
)

// Config configures the router client.
type Config struct {
	Endpoint          string
	SlippageBps       int
	RequestsPerSecond float64
	Burst             int
	RetryMax          int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
}

// DefaultConfig returns the router defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:          DefaultEndpoint,
		SlippageBps:       50,
		RequestsPerSecond: 10,
		Burst:             2,
		RetryMax:          3,
		RetryWaitMin:      200 * time.Millisecond,
		RetryWaitMax:      2 * time.Second,
	}
}

// RPC is the subset of the chain client the router needs.
type RPC interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*solana.AccountInfo, error)
	SendTransaction(ctx context.Context, tx []byte) (string, error)
}

// Quote is a Jupiter route. Raw is sent back verbatim when building the swap.
type Quote struct {
	InputMint            string
	OutputMint           string
	InAmount             uint64
	OutAmount            uint64
	OtherAmountThreshold uint64
	SlippageBps          int
	PriceImpactPct       string
	Raw                  json.RawMessage
}

// TokenInfo is the decoded mint account.
type TokenInfo struct {
	Mint     string
	Decimals uint8
	Supply   uint64
}

// Client is a Jupiter API client.
type Client struct {
	endpoint    string
	slippageBps int
	http        *retryablehttp.Client
	limiter     *rate.Limiter
	rpc         RPC
	logger      logrus.FieldLogger

	mu       sync.RWMutex
	decimals map[string]TokenInfo // mint decimals never change
}

// New creates a router client. A nil logger uses the logrus standard logger.
func New(cfg Config, rpc RPC, logger logrus.FieldLogger) *Client {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.SlippageBps <= 0 {
		cfg.SlippageBps = def.SlippageBps
	}
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

	hc := retryablehttp.NewClient()
	hc.RetryMax = cfg.RetryMax
	hc.RetryWaitMin = cfg.RetryWaitMin
	hc.RetryWaitMax = cfg.RetryWaitMax
	hc.Logger = nil

	return &Client{
		endpoint:    strings.TrimRight(cfg.Endpoint, "/"),
		slippageBps: cfg.SlippageBps,
		http:        hc,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		rpc:         rpc,
		logger:      logger.WithField("component", "router"),
		decimals:    make(map[string]TokenInfo),
	}
}

// BestQuote asks for the best route selling amount of inputMint.
// A quote whose output is below minOut is rejected with ErrBelowMinOut.
func (c *Client) BestQuote(ctx context.Context, inputMint, outputMint string, amount, minOut uint64) (*Quote, error) {
	const op = "router.BestQuote"

	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(c.slippageBps))

	body, status, err := c.do(ctx, http.MethodGet, c.endpoint+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.NewError(domain.ErrConnectivity, op, err)
	}
	if status != http.StatusOK {
		if isNoRoute(body) {
			return nil, domain.NewError(domain.ErrValidation, op, ErrNoRoute)
		}
		return nil, domain.NewError(domain.ErrConnectivity, op, fmt.Errorf("status %d: %s", status, string(body)))
	}

	quote, err := parseQuote(body)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, op, err)
	}
	if quote.OutAmount == 0 {
		return nil, domain.NewError(domain.ErrValidation, op, ErrNoRoute)
	}
	if quote.OutAmount < minOut {
		return nil, domain.NewError(domain.ErrValidation, op,
			fmt.Errorf("%w: %d < %d", ErrBelowMinOut, quote.OutAmount, minOut))
	}
	return quote, nil
}

type swapRequest struct {
	QuoteResponse                 json.RawMessage `json:"quoteResponse"`
	UserPublicKey                 string          `json:"userPublicKey"`
	WrapAndUnwrapSol              bool            `json:"wrapAndUnwrapSol"`
	ComputeUnitPriceMicroLamports uint64          `json:"computeUnitPriceMicroLamports,omitempty"`
}

type swapResponse struct {
	SwapTransaction      string `json:"swapTransaction"`
	LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
}

// BuildSwap returns the unsigned serialized swap transaction for userPubkey.
// A zero priorityFee leaves the compute-unit price to the router.
func (c *Client) BuildSwap(ctx context.Context, quote *Quote, userPubkey string, priorityFee uint64) ([]byte, error) {
	const op = "router.BuildSwap"

	payload, err := json.Marshal(swapRequest{
		QuoteResponse:                 quote.Raw,
		UserPublicKey:                 userPubkey,
		WrapAndUnwrapSol:              true,
		ComputeUnitPriceMicroLamports: priorityFee,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal swap request: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, c.endpoint+"/swap", payload)
	if err != nil {
		return nil, domain.NewError(domain.ErrConnectivity, op, err)
	}
	if status != http.StatusOK {
		return nil, domain.NewError(domain.ErrExecution, op, fmt.Errorf("status %d: %s", status, string(body)))
	}

	var resp swapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domain.NewError(domain.ErrExecution, op, fmt.Errorf("decode swap response: %w", err))
	}
	raw, err := base64.StdEncoding.DecodeString(resp.SwapTransaction)
	if err != nil || len(raw) == 0 {
		return nil, domain.NewError(domain.ErrExecution, op, fmt.Errorf("decode swap transaction: %v", err))
	}
	return raw, nil
}

// Swap builds, signs and sends quote at the router's default priority.
func (c *Client) Swap(ctx context.Context, quote *Quote, signer *solana.Keypair) (string, error) {
	return c.send(ctx, quote, signer, 0)
}

// SwapWithPriorityFee is Swap with an explicit compute-unit price in micro-lamports.
func (c *Client) SwapWithPriorityFee(ctx context.Context, quote *Quote, signer *solana.Keypair, fee uint64) (string, error) {
	return c.send(ctx, quote, signer, fee)
}

func (c *Client) send(ctx context.Context, quote *Quote, signer *solana.Keypair, fee uint64) (string, error) {
	const op = "router.Swap"

	raw, err := c.BuildSwap(ctx, quote, signer.PublicKey(), fee)
	if err != nil {
		return "", err
	}
	signed, _, err := solana.SignTransaction(raw, signer)
	if err != nil {
		return "", domain.NewError(domain.ErrExecution, op, err)
	}
	sig, err := c.rpc.SendTransaction(ctx, signed)
	if err != nil {
		return "", domain.NewError(domain.ErrExecution, op, err)
	}

	c.logger.WithFields(logrus.Fields{
		"signature":    sig,
		"input_mint":   quote.InputMint,
		"output_mint":  quote.OutputMint,
		"in_amount":    quote.InAmount,
		"priority_fee": fee,
	}).Info("swap sent")
	return sig, nil
}

// TokenInfo reads mint decimals and supply over RPC. Results are cached.
func (c *Client) TokenInfo(ctx context.Context, mint string) (*TokenInfo, error) {
	const op = "router.TokenInfo"

	c.mu.RLock()
	info, ok := c.decimals[mint]
	c.mu.RUnlock()
	if ok {
		return &info, nil
	}

	acc, err := c.rpc.GetAccountInfo(ctx, mint)
	if err != nil {
		return nil, domain.NewError(domain.ErrConnectivity, op, err)
	}
	if acc == nil {
		return nil, domain.NewError(domain.ErrValidation, op, fmt.Errorf("mint account %s not found", mint))
	}
	m, err := solana.ParseMint(acc.Data)
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, op, err)
	}

	info = TokenInfo{Mint: mint, Decimals: m.Decimals, Supply: m.Supply}
	c.mu.Lock()
	c.decimals[mint] = info
	c.mu.Unlock()
	return &info, nil
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var rawBody interface{}
	if payload != nil {
		rawBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, target, rawBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

type quoteFields struct {
	InputMint            string `json:"inputMint"`
	OutputMint           string `json:"outputMint"`
	InAmount             string `json:"inAmount"`
	OutAmount            string `json:"outAmount"`
	OtherAmountThreshold string `json:"otherAmountThreshold"`
	SlippageBps          int    `json:"slippageBps"`
	PriceImpactPct       string `json:"priceImpactPct"`
	Error                string `json:"error"`
}

func parseQuote(body []byte) (*Quote, error) {
	var f quoteFields
	if err := json.Unmarshal(body, &f); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if f.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoRoute, f.Error)
	}

	q := &Quote{
		InputMint:      f.InputMint,
		OutputMint:     f.OutputMint,
		SlippageBps:    f.SlippageBps,
		PriceImpactPct: f.PriceImpactPct,
		Raw:            json.RawMessage(body),
	}
	var err error
	if q.InAmount, err = parseAmount(f.InAmount); err != nil {
		return nil, fmt.Errorf("inAmount: %w", err)
	}
	if q.OutAmount, err = parseAmount(f.OutAmount); err != nil {
		return nil, fmt.Errorf("outAmount: %w", err)
	}
	if q.OtherAmountThreshold, err = parseAmount(f.OtherAmountThreshold); err != nil {
		return nil, fmt.Errorf("otherAmountThreshold: %w", err)
	}
	return q, nil
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func isNoRoute(body []byte) bool {
	var e struct {
		Error     string `json:"error"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return false
	}
	return e.ErrorCode == "COULD_NOT_FIND_ANY_ROUTE" || strings.Contains(strings.ToLower(e.Error), "no route")
}
