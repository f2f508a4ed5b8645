package main

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	cacheredis "solana-mev-agent/internal/cache/redis"
	"solana-mev-agent/internal/config"
	"solana-mev-agent/internal/discovery"
	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/evaluator"
	"solana-mev-agent/internal/executor"
	"solana-mev-agent/internal/market"
	"solana-mev-agent/internal/notify"
	"solana-mev-agent/internal/observability"
	"solana-mev-agent/internal/oracle"
	"solana-mev-agent/internal/pipeline"
	"solana-mev-agent/internal/router"
	"solana-mev-agent/internal/solana"
	"solana-mev-agent/internal/storage"
	chstore "solana-mev-agent/internal/storage/clickhouse"
	"solana-mev-agent/internal/storage/jsonl"
	"solana-mev-agent/internal/storage/memory"
	pgstore "solana-mev-agent/internal/storage/postgres"
	"solana-mev-agent/internal/stream"
	"solana-mev-agent/internal/tokens"
)

const shutdownGrace = 30 * time.Second

func runStart(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	cfgPath := commonFlags(fs)
	sim := fs.Bool("sim", false, "Simulation mode: evaluate and simulate, never send transactions")
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	dryRun := *sim || cfg.Agent.DryRun
	if dryRun {
		logger.Info("running in SIMULATION mode, no transactions will be sent")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go handleSignals(logger, cancel, done)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.Observability.OTelEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracer()

	a, err := newAgent(ctx, cfg, dryRun, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if cfg.Observability.MetricsAddr != "" {
		srv := a.startHTTPServer(cfg.Observability.MetricsAddr)
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	if err := a.Run(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// handleSignals cancels on the first SIGINT/SIGTERM and exits the process on a
// second signal or when shutdown takes longer than shutdownGrace.
func handleSignals(logger logrus.FieldLogger, cancel context.CancelFunc, done <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig).Info("shutdown signal received, stopping")
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig).Error("second signal received, forcing exit")
		os.Exit(1)
	case <-time.After(shutdownGrace):
		logger.Error("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	case <-done:
	}
}

// agent owns the long-running components of the start command.
type agent struct {
	logger   logrus.FieldLogger
	dryRun   bool
	stream   *stream.SwapStream
	pipeline *pipeline.Pipeline
	executor *executor.Executor
	queue    chan domain.SwapTransaction
	started  time.Time
	closers  []func()
}

func newAgent(ctx context.Context, cfg *config.Config, dryRun bool, logger *logrus.Logger) (_ *agent, err error) {
	a := &agent{
		logger:  logger.WithField("component", "agent"),
		dryRun:  dryRun,
		queue:   make(chan domain.SwapTransaction, cfg.Agent.QueueSize),
		started: time.Now(),
	}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	signer, err := loadSigner(cfg, dryRun, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.WithField("wallet", signer.PublicKey()).Info("wallet loaded")

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithCommitment(cfg.Solana.Commitment))
	registry := tokens.Default()

	scfg := stream.DefaultConfig()
	scfg.Backoff = cfg.StreamBackoff()
	scfg.MaxRetries = uint64(cfg.Stream.MaxRetries)
	scfg.ConfirmationLag = int64(cfg.Stream.ConfirmationLag)
	scfg.TargetTokens = cfg.Agent.TargetTokens
	a.stream = stream.New(solana.NewWSClient(cfg.Solana.WSURL, nil), rpc, discovery.NewDEXParser(registry), scfg, logger)

	guard, err := newGuard(ctx, cfg, a)
	if err != nil {
		return nil, err
	}

	rcfg := router.DefaultConfig()
	rcfg.Endpoint = cfg.Router.Endpoint
	rcfg.SlippageBps = cfg.Router.SlippageBps
	a.executor = executor.New(executor.Deps{
		Router: router.New(rcfg, rpc, logger),
		RPC:    rpc,
		Signer: signer,
		Tokens: registry,
		Guard:  guard,
	}, executor.Config{
		DryRun:      dryRun,
		PriorityFee: cfg.Router.PriorityFee,
		GuardTTL:    cfg.GuardTTL(),
	}, logger)

	tradeLog, err := newTradeLog(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	evaluations, err := newEvaluationStore(ctx, cfg, a)
	if err != nil {
		return nil, err
	}
	notifier, err := newNotifier(cfg, a, logger)
	if err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	ocfg := oracle.DefaultRemoteConfig()
	ocfg.Endpoint = cfg.Oracle.Endpoint
	ocfg.APIKey = cfg.Oracle.APIKey
	ocfg.RequestsPerSecond = cfg.Oracle.RequestsPerSecond
	ocfg.RetryMax = cfg.Oracle.RetryMax
	scoring := oracle.New(ocfg, oracle.NewHeuristic(rand.New(rand.NewSource(seed))), logger)

	a.pipeline = pipeline.New(pipeline.Deps{
		Evaluator: evaluator.NewOpportunityEvaluator(
			market.NewCollector(rand.New(rand.NewSource(seed+1))),
			market.NewSentimentAnalyzer(rand.New(rand.NewSource(seed+2))),
			scoring,
			logger),
		Scorer:        evaluator.NewScorer(cfg.Agent.MinOpportunityScore, uint8(cfg.Agent.MaxRiskLevel)),
		DecisionMaker: evaluator.NewDecisionMaker(cfg.Agent.MinProfitThreshold),
		RiskAnalyzer:  evaluator.NewRiskAnalyzer(uint8(cfg.Agent.MaxRiskThreshold)),
		Executor:      a.executor,
		Notifier:      notifier,
		TradeLog:      tradeLog,
		Evaluations:   evaluations,
	}, logger)

	return a, nil
}

// loadSigner reads the wallet. In simulation mode a missing wallet is replaced
// by an ephemeral key, which is enough for quoting and simulateTransaction.
func loadSigner(cfg *config.Config, dryRun bool, logger logrus.FieldLogger) (*solana.Keypair, error) {
	kp, err := solana.LoadKeypair(cfg.WalletFile())
	if err == nil {
		return kp, nil
	}
	if !dryRun {
		return nil, fmt.Errorf("load wallet %s: %w", cfg.WalletFile(), err)
	}

	logger.WithError(err).Warn("wallet unavailable, using an ephemeral key for simulation")
	seed := make([]byte, 32)
	if _, err := crand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	return solana.NewKeypairFromSeed(seed)
}

func newGuard(ctx context.Context, cfg *config.Config, a *agent) (storage.ExecutionGuard, error) {
	if cfg.Redis.Addr == "" {
		return memory.NewExecutionGuard(), nil
	}
	client, err := cacheredis.New(ctx, cacheredis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.logger.WithField("addr", cfg.Redis.Addr).Info("execution guard: redis")
	return cacheredis.NewExecutionGuard(client), nil
}

func newTradeLog(ctx context.Context, cfg *config.Config, a *agent) (storage.TradeLogStore, error) {
	file, err := jsonl.NewTradeLogStore(cfg.Storage.TradeLogDir)
	if err != nil {
		return nil, err
	}
	a.logger.WithField("path", file.Path()).Info("trade log: jsonl")
	if n := file.Truncated(); n > 0 {
		a.logger.WithFields(logrus.Fields{"path": file.Path(), "bytes": n}).Warn("trade log: dropped torn final line")
	}

	if cfg.Storage.PostgresDSN == "" {
		return file, nil
	}
	pool, err := pgstore.Open(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	a.logger.Info("trade log: mirroring to postgres")
	return storage.NewTeeTradeLogStore(file, pgstore.NewTradeLogStore(pool)), nil
}

// newEvaluationStore returns nil without ClickHouse; evaluations are then not recorded.
func newEvaluationStore(ctx context.Context, cfg *config.Config, a *agent) (storage.EvaluationStore, error) {
	if cfg.Storage.ClickhouseDSN == "" {
		return nil, nil
	}
	conn, err := chstore.Open(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = conn.Close() })
	a.logger.Info("evaluations: clickhouse")
	return chstore.NewEvaluationStore(conn), nil
}

func newNotifier(cfg *config.Config, a *agent, logger logrus.FieldLogger) (notify.Notifier, error) {
	var multi notify.Multi

	tg := notify.NewTelegram(notify.TelegramConfig{
		BotToken: cfg.Notify.TelegramBotToken,
		ChatID:   cfg.Notify.TelegramChatID,
		RetryMax: 2,
	}, logger)
	if tg.Configured() {
		multi = append(multi, tg)
	} else {
		a.logger.Info("telegram not configured, notifications disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := notify.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			return nil, err
		}
		k := notify.NewKafka(producer, cfg.Kafka.Topic, logger)
		a.closers = append(a.closers, func() { _ = k.Close() })
		multi = append(multi, k)
	}

	if len(multi) == 0 {
		return notify.Nop{}, nil
	}
	return multi, nil
}

// Run starts the stream producer and the pipeline consumer and blocks until
// ctx is cancelled or one of them fails.
func (a *agent) Run(ctx context.Context) error {
	a.logger.Info("agent running, monitoring for MEV opportunities")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(a.queue)
		err := a.stream.Run(gctx, a.queue)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := a.pipeline.Run(gctx, a.queue)
		if errors.Is(err, pipeline.ErrQueueClosed) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	return g.Wait()
}

// close releases connections in reverse order of acquisition.
func (a *agent) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// startHTTPServer serves /health, /metrics and /status in the background.
func (a *agent) startHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", a.handleStatus)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		a.logger.WithField("addr", addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
	return srv
}

// StatusResponse is the JSON body of /status.
type StatusResponse struct {
	Status        string    `json:"status"`
	Uptime        string    `json:"uptime"`
	Started       time.Time `json:"started"`
	DryRun        bool      `json:"dry_run"`
	StreamState   string    `json:"stream_state"`
	ExecutorState string    `json:"executor_state"`
	QueueLength   int       `json:"queue_length"`
	QueueCapacity int       `json:"queue_capacity"`
}

func (a *agent) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "running",
		Uptime:        time.Since(a.started).Round(time.Second).String(),
		Started:       a.started,
		DryRun:        a.dryRun,
		StreamState:   a.stream.State().String(),
		ExecutorState: a.executor.LastState().String(),
		QueueLength:   len(a.queue),
		QueueCapacity: cap(a.queue),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
