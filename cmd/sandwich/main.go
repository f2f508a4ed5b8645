// Command sandwich walks through a sandwich against a sample victim swap:
// a priority-fee front leg, a wait for the victim, then the back leg.
// It runs dry unless --live is given.
package main

import (
	"context"
	crand "crypto/rand"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/config"
	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/evaluator"
	"solana-mev-agent/internal/executor"
	"solana-mev-agent/internal/logging"
	"solana-mev-agent/internal/router"
	"solana-mev-agent/internal/solana"
	"solana-mev-agent/internal/storage/memory"
	"solana-mev-agent/internal/tokens"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("MEV_CONFIG"), "Path to TOML config file (optional)")
	live := flag.Bool("live", false, "Send both legs on chain")
	gap := flag.Duration("gap", 2*time.Second, "Wait between front and back legs")
	frontAmount := flag.Float64("front-amount", 50, "SOL sold in the front leg")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger, !*live, *gap, *frontAmount); err != nil {
		logger.WithError(err).Fatal("sandwich failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, dryRun bool, gap time.Duration, frontAmount float64) error {
	signer, err := loadSigner(cfg, dryRun)
	if err != nil {
		return err
	}

	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithCommitment(cfg.Solana.Commitment))
	rcfg := router.DefaultConfig()
	rcfg.Endpoint = cfg.Router.Endpoint
	rcfg.SlippageBps = cfg.Router.SlippageBps

	exec := executor.New(executor.Deps{
		Router: router.New(rcfg, rpc, logger),
		RPC:    rpc,
		Signer: signer,
		Tokens: tokens.Default(),
		Guard:  memory.NewExecutionGuard(),
	}, executor.Config{
		DryRun:      dryRun,
		PriorityFee: cfg.Router.PriorityFee,
		GuardTTL:    cfg.GuardTTL(),
	}, logger)

	victim := domain.SwapTransaction{
		TokenIn:            "USDC",
		TokenOut:           "SOL",
		AmountIn:           50000,
		EstimatedAmountOut: 1400,
		Slippage:           0.05,
		PoolName:           "Orca",
		WalletAddress:      "9rgeN6mbhCVbnZPpMBg2QCFhYJnuRyGrqnKULNbreAha",
		Timestamp:          time.Now().Unix(),
	}
	front, back := legs(victim, frontAmount)

	fmt.Println("Sandwich example")
	fmt.Println("----------------")
	fmt.Printf("Victim: %g %s -> %s with %g%% slippage on %s\n",
		victim.AmountIn, victim.TokenIn, victim.TokenOut, victim.Slippage*100, victim.PoolName)
	fmt.Printf("Front:  %g %s -> %s (min out %g)\n", front.AmountIn, front.TokenIn, front.TokenOut, front.ExpectedMinOut)
	fmt.Printf("Back:   %g %s -> %s (min out %g)\n", back.AmountIn, back.TokenIn, back.TokenOut, back.ExpectedMinOut)
	if dryRun {
		fmt.Println("Mode:   dry run")
	}

	frontSig, backSig, err := exec.ExecuteSandwich(ctx, front, back, gap)
	if frontSig != "" {
		fmt.Printf("\nFront leg: %s\n", frontSig)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Back leg:  %s\n", backSig)
	fmt.Printf("\nSandwich complete: started with %g SOL, targeting at least %g SOL back\n",
		front.AmountIn, back.ExpectedMinOut)
	return nil
}

// legs sizes both halves around the victim's implied price. The front leg
// sells frontAmount SOL at a price pushed by the victim's slippage; the back
// leg buys back slightly more than the front's proceeds.
func legs(victim domain.SwapTransaction, frontAmount float64) (*domain.TradeDecision, *domain.TradeDecision) {
	price := victim.AmountIn / victim.EstimatedAmountOut // USDC per SOL
	frontOut := frontAmount * price * (1 - victim.Slippage)
	backIn := frontOut * (1 + victim.Slippage/2)
	backOut := frontAmount * (1 - victim.Slippage/2)

	src := victim
	src.Signature = fmt.Sprintf("demo-%d", victim.Timestamp)

	front := &domain.TradeDecision{
		ID:              evaluator.DecisionID(src, domain.StrategySandwichFront),
		TokenIn:         "SOL",
		TokenOut:        "USDC",
		AmountIn:        frontAmount,
		ExpectedMinOut:  frontOut,
		ConfidenceScore: 0.9,
		RiskLevel:       2,
		Strategy:        domain.StrategySandwichFront,
	}
	back := &domain.TradeDecision{
		ID:              evaluator.DecisionID(src, domain.StrategySandwichBack),
		TokenIn:         "USDC",
		TokenOut:        "SOL",
		AmountIn:        backIn,
		ExpectedMinOut:  backOut,
		ConfidenceScore: 0.9,
		RiskLevel:       2,
		Strategy:        domain.StrategySandwichBack,
	}
	return front, back
}

func loadSigner(cfg *config.Config, dryRun bool) (*solana.Keypair, error) {
	kp, err := solana.LoadKeypair(cfg.WalletFile())
	if err == nil || !dryRun {
		return kp, err
	}
	seed := make([]byte, 32)
	if _, err := crand.Read(seed); err != nil {
		return nil, err
	}
	return solana.NewKeypairFromSeed(seed)
}
