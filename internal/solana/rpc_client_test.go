package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newRPCServer answers every request with result(req) as the JSON-RPC result.
func newRPCServer(t *testing.T, method string, result func(req rpcRequest) interface{}) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		if method != "" && req.Method != method {
			t.Errorf("expected method %s, got %s", method, req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result(req),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPClient_GetTransaction(t *testing.T) {
	server := newRPCServer(t, "getTransaction", func(rpcRequest) interface{} {
		return map[string]interface{}{
			"slot":      int64(123456),
			"blockTime": int64(1700000000),
			"meta": map[string]interface{}{
				"err":          nil,
				"fee":          5000,
				"logMessages":  []string{"Program log: Hello", "Program log: World"},
				"preBalances":  []uint64{10_000_000, 0},
				"postBalances": []uint64{9_995_000, 0},
				"loadedAddresses": map[string]interface{}{
					"writable": []string{"addr3"},
					"readonly": []string{"addr4"},
				},
			},
			"transaction": map[string]interface{}{
				"signatures": []string{"sigA"},
				"message": map[string]interface{}{
					"accountKeys": []string{"addr1", "addr2"},
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "testsig123")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx == nil {
		t.Fatal("expected transaction, got nil")
	}

	if tx.Slot != 123456 {
		t.Errorf("expected slot 123456, got %d", tx.Slot)
	}
	if tx.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000, got %d", tx.BlockTime)
	}
	if tx.Signature != "sigA" {
		t.Errorf("expected signature sigA, got %s", tx.Signature)
	}
	if tx.Meta == nil {
		t.Fatal("expected meta, got nil")
	}
	if tx.Meta.Fee != 5000 {
		t.Errorf("expected fee 5000, got %d", tx.Meta.Fee)
	}
	if len(tx.Meta.LogMessages) != 2 {
		t.Errorf("expected 2 log messages, got %d", len(tx.Meta.LogMessages))
	}
	if tx.Message == nil {
		t.Fatal("expected message, got nil")
	}
	// Loaded addresses follow the static keys.
	want := []string{"addr1", "addr2", "addr3", "addr4"}
	if len(tx.Message.AccountKeys) != len(want) {
		t.Fatalf("expected %d account keys, got %d", len(want), len(tx.Message.AccountKeys))
	}
	for i, k := range want {
		if tx.Message.AccountKeys[i] != k {
			t.Errorf("account key %d: expected %s, got %s", i, k, tx.Message.AccountKeys[i])
		}
	}
	if tx.Signer() != "addr1" {
		t.Errorf("expected signer addr1, got %s", tx.Signer())
	}
	if tx.Failed() {
		t.Error("expected successful transaction")
	}
}

func TestHTTPClient_GetTransaction_NotFound(t *testing.T) {
	server := newRPCServer(t, "getTransaction", func(rpcRequest) interface{} { return nil })

	client := NewHTTPClient(server.URL)
	tx, err := client.GetTransaction(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx != nil {
		t.Errorf("expected nil for not found, got %+v", tx)
	}
}

func TestHTTPClient_GetBlock(t *testing.T) {
	server := newRPCServer(t, "getBlock", func(req rpcRequest) interface{} {
		opts, _ := req.Params[1].(map[string]interface{})
		if opts["transactionDetails"] != "full" {
			t.Errorf("expected full transaction details, got %v", opts["transactionDetails"])
		}
		return map[string]interface{}{
			"blockTime": int64(1700000000),
			"transactions": []map[string]interface{}{
				{
					"transaction": map[string]interface{}{
						"signatures": []string{"sig1"},
						"message": map[string]interface{}{
							"accountKeys": []string{"wallet1", "ata1"},
						},
					},
					"meta": map[string]interface{}{
						"err": nil,
						"preTokenBalances": []map[string]interface{}{
							{
								"accountIndex": 1,
								"mint":         "mintA",
								"owner":        "wallet1",
								"uiTokenAmount": map[string]interface{}{
									"amount":   "1500000",
									"decimals": 6,
								},
							},
						},
					},
				},
			},
		}
	})

	client := NewHTTPClient(server.URL)
	block, err := client.GetBlock(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetBlock: %v", err)
	}

	if block.Slot != 12345 {
		t.Errorf("expected slot 12345, got %d", block.Slot)
	}
	if block.BlockTime == nil || *block.BlockTime != 1700000000 {
		t.Errorf("expected blockTime 1700000000")
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if tx.Signature != "sig1" {
		t.Errorf("expected sig1, got %s", tx.Signature)
	}
	if tx.Slot != 12345 {
		t.Errorf("expected transaction slot 12345, got %d", tx.Slot)
	}
	if len(tx.Meta.PreTokenBalances) != 1 {
		t.Fatalf("expected 1 pre token balance, got %d", len(tx.Meta.PreTokenBalances))
	}
	bal := tx.Meta.PreTokenBalances[0]
	if bal.Mint != "mintA" || bal.Owner != "wallet1" || bal.Amount != "1500000" || bal.Decimals != 6 {
		t.Errorf("unexpected token balance: %+v", bal)
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)

	slot, err := client.GetSlot(context.Background())
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}
	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RetryExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond),
	)

	_, err := client.GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error after retries")
	}
	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	_, err := client.GetSlot(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %T", err)
	}
	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
	// Node errors are not retried.
	if attempts.Load() != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts.Load())
	}
}

func TestHTTPClient_GetAccountInfo(t *testing.T) {
	server := newRPCServer(t, "getAccountInfo", func(rpcRequest) interface{} {
		return map[string]interface{}{
			"value": map[string]interface{}{
				"lamports":   uint64(1000000),
				"owner":      "11111111111111111111111111111111",
				"data":       []string{"SGVsbG8gV29ybGQ=", "base64"},
				"executable": false,
				"rentEpoch":  uint64(100),
			},
		}
	})

	client := NewHTTPClient(server.URL)
	info, err := client.GetAccountInfo(context.Background(), "testpubkey")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info == nil {
		t.Fatal("expected account info, got nil")
	}
	if info.Lamports != 1000000 {
		t.Errorf("expected lamports 1000000, got %d", info.Lamports)
	}
	if info.Owner != "11111111111111111111111111111111" {
		t.Errorf("unexpected owner: %s", info.Owner)
	}
	if info.Data != "SGVsbG8gV29ybGQ=" {
		t.Errorf("unexpected data: %s", info.Data)
	}
}

func TestHTTPClient_GetAccountInfo_NotFound(t *testing.T) {
	server := newRPCServer(t, "getAccountInfo", func(rpcRequest) interface{} {
		return map[string]interface{}{"value": nil}
	})

	client := NewHTTPClient(server.URL)
	info, err := client.GetAccountInfo(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetAccountInfo: %v", err)
	}
	if info != nil {
		t.Errorf("expected nil for not found, got %+v", info)
	}
}

func TestHTTPClient_SimulateTransaction(t *testing.T) {
	payload := []byte{1, 2, 3, 4}

	server := newRPCServer(t, "simulateTransaction", func(req rpcRequest) interface{} {
		if req.Params[0] != base64.StdEncoding.EncodeToString(payload) {
			t.Errorf("unexpected encoded transaction: %v", req.Params[0])
		}
		opts, _ := req.Params[1].(map[string]interface{})
		if opts["sigVerify"] != false {
			t.Errorf("expected sigVerify=false, got %v", opts["sigVerify"])
		}
		return map[string]interface{}{
			"context": map[string]interface{}{"slot": 1},
			"value": map[string]interface{}{
				"err":           map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
				"logs":          []string{"Program failed"},
				"unitsConsumed": 1200,
			},
		}
	})

	client := NewHTTPClient(server.URL)
	res, err := client.SimulateTransaction(context.Background(), payload)
	if err != nil {
		t.Fatalf("SimulateTransaction: %v", err)
	}
	if res.Succeeded() {
		t.Error("expected simulation failure")
	}
	if res.UnitsConsumed != 1200 {
		t.Errorf("expected 1200 units, got %d", res.UnitsConsumed)
	}
	if len(res.Logs) != 1 {
		t.Errorf("expected 1 log line, got %d", len(res.Logs))
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := newRPCServer(t, "sendTransaction", func(rpcRequest) interface{} {
		return "5xSignature"
	})

	client := NewHTTPClient(server.URL)
	sig, err := client.SendTransaction(context.Background(), []byte{9, 9})
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}
	if sig != "5xSignature" {
		t.Errorf("expected 5xSignature, got %s", sig)
	}
}

func TestHTTPClient_GetVersionAndBalance(t *testing.T) {
	server := newRPCServer(t, "", func(req rpcRequest) interface{} {
		switch req.Method {
		case "getVersion":
			return map[string]interface{}{"solana-core": "1.18.22", "feature-set": 3469865029}
		case "getBalance":
			return map[string]interface{}{"context": map[string]interface{}{"slot": 1}, "value": 50_000_000}
		}
		t.Errorf("unexpected method %s", req.Method)
		return nil
	})

	client := NewHTTPClient(server.URL)
	v, err := client.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.SolanaCore != "1.18.22" {
		t.Errorf("expected 1.18.22, got %s", v.SolanaCore)
	}

	bal, err := client.GetBalance(context.Background(), "wallet")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal != 50_000_000 {
		t.Errorf("expected 50000000 lamports, got %d", bal)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
