// Command agent runs the MEV pipeline and its maintenance subcommands.
//
// Usage:
//
//	agent start   [--config path] [--sim]
//	agent init    [--config path]
//	agent history [--config path] [--source jsonl|postgres] [--limit n] [--json]
//	agent archive [--config path] [--file path]
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/config"
	"solana-mev-agent/internal/logging"
)

const usage = `usage: agent <command> [flags]

commands:
  start    monitor swaps and execute opportunities
  init     check RPC connectivity, wallet and token accounts
  history  print the trade log
  archive  upload the JSONL trade log to S3

run "agent <command> -h" for command flags`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "start":
		err = runStart(args)
	case "init":
		err = runInit(args)
	case "history":
		err = runHistory(args)
	case "archive":
		err = runArchive(args)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		logrus.WithError(err).Fatal("agent failed")
	}
}

// commonFlags registers --config on fs and returns its value pointer.
func commonFlags(fs *flag.FlagSet) *string {
	return fs.String("config", os.Getenv("MEV_CONFIG"), "Path to TOML config file (optional)")
}

// setup loads and validates configuration and builds the process logger.
// The logger is also installed as the logrus standard logger.
func setup(path string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)
	logrus.SetLevel(logger.GetLevel())
	logrus.SetFormatter(logger.Formatter)
	return cfg, logger, nil
}
