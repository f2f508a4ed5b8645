package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/storage"
	"solana-mev-agent/internal/storage/jsonl"
	pgstore "solana-mev-agent/internal/storage/postgres"
)

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	cfgPath := commonFlags(fs)
	source := fs.String("source", "jsonl", "Trade log to read: jsonl or postgres")
	limit := fs.Int("limit", 0, "Show only the last n records (0 for all)")
	asJSON := fs.Bool("json", false, "Print records as JSON lines")
	fs.Parse(args)

	cfg, _, err := setup(*cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store storage.TradeLogStore
	switch *source {
	case "jsonl":
		s, err := jsonl.NewTradeLogStore(cfg.Storage.TradeLogDir)
		if err != nil {
			return err
		}
		store = s
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("history: storage.postgres_dsn is not configured")
		}
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = pgstore.NewTradeLogStore(pool)
	default:
		return fmt.Errorf("history: unknown source %q (valid: jsonl, postgres)", *source)
	}

	logs, err := store.History(ctx)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if *limit > 0 && len(logs) > *limit {
		logs = logs[len(logs)-*limit:]
	}

	if *asJSON {
		return writeHistoryJSON(os.Stdout, logs)
	}
	return writeHistory(os.Stdout, logs)
}

func writeHistoryJSON(w io.Writer, logs []*domain.TradeLog) error {
	enc := json.NewEncoder(w)
	for _, l := range logs {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	return nil
}

// writeHistory prints a table followed by a success summary.
func writeHistory(w io.Writer, logs []*domain.TradeLog) error {
	if len(logs) == 0 {
		_, err := fmt.Fprintln(w, "no trades logged")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTRATEGY\tPAIR\tAMOUNT IN\tAMOUNT OUT\tRESULT\tSIGNATURE")

	succeeded := 0
	for _, l := range logs {
		result := "failed"
		if l.Success {
			result = "ok"
			succeeded++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%g\t%s\t%s\t%s\n",
			l.Timestamp.UTC().Format(time.RFC3339),
			l.Strategy,
			l.TokenIn, l.TokenOut,
			l.AmountIn,
			optFloat(l.AmountOut),
			result,
			optString(l.TxSignature),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d trades, %d succeeded, %d failed\n", len(logs), succeeded, len(logs)-succeeded)
	return err
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func optString(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}
