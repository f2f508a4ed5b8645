package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/solana"
	"solana-mev-agent/internal/tokens"
)

// lowBalanceSOL triggers a warning in init.
const lowBalanceSOL = 0.1

// runInit checks the node, the wallet and its token accounts. Problems are
// reported as warnings; only configuration errors fail the command.
func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath := commonFlags(fs)
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := logger.WithField("component", "init")
	rpc := solana.NewHTTPClient(cfg.Solana.RPCURL, solana.WithCommitment(cfg.Solana.Commitment))

	log.WithField("rpc", cfg.Solana.RPCURL).Info("connecting to solana rpc")
	if v, err := rpc.GetVersion(ctx); err != nil {
		log.WithError(err).Warn("could not connect to solana rpc")
	} else {
		log.WithField("version", v.SolanaCore).Info("connected to solana node")
	}

	kp, err := solana.LoadKeypair(cfg.WalletFile())
	if err != nil {
		log.WithError(err).WithField("path", cfg.WalletFile()).Warn("could not read wallet")
		log.Info("initialization finished with warnings")
		return nil
	}
	wallet := kp.PublicKey()
	log.WithField("wallet", wallet).Info("using wallet")

	if lamports, err := rpc.GetBalance(ctx, wallet); err != nil {
		log.WithError(err).Warn("could not get wallet balance")
	} else {
		sol := float64(lamports) / solana.LamportsPerSOL
		log.WithField("balance_sol", sol).Info("wallet balance")
		if sol < lowBalanceSOL {
			log.Warn("wallet balance is low, transactions may fail for lack of fees")
		}
	}

	checkTokenAccounts(ctx, log, rpc, tokens.Default(), wallet, cfg.Agent.TargetTokens)

	log.Info("initialization complete")
	return nil
}

// checkTokenAccounts reports whether the wallet's associated token account
// exists for each target token. Native SOL needs none.
func checkTokenAccounts(ctx context.Context, log logrus.FieldLogger, rpc *solana.HTTPClient, registry *tokens.Registry, wallet string, symbols []string) {
	for _, sym := range symbols {
		mint, err := registry.Mint(sym)
		if err != nil {
			log.WithError(err).WithField("token", sym).Warn("unknown target token")
			continue
		}
		if mint == tokens.MintSOL {
			continue
		}

		ata, err := solana.AssociatedTokenAddress(wallet, mint)
		if err != nil {
			log.WithError(err).WithField("token", sym).Warn("could not derive token account")
			continue
		}
		fields := logrus.Fields{"token": sym, "account": ata}

		info, err := rpc.GetAccountInfo(ctx, ata)
		switch {
		case err != nil:
			log.WithError(err).WithFields(fields).Warn("could not fetch token account")
		case info == nil:
			log.WithFields(fields).Warn("token account missing, it will be created on first swap")
		default:
			log.WithFields(fields).Info("token account found")
		}
	}
}
