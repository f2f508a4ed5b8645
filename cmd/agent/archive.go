package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"solana-mev-agent/internal/archive"
	"solana-mev-agent/internal/storage/jsonl"
)

func runArchive(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	cfgPath := commonFlags(fs)
	file := fs.String("file", "", "Trade log to upload (default: <trade_log_dir>/"+jsonl.FileName+")")
	fs.Parse(args)

	cfg, logger, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	if cfg.S3.Bucket == "" {
		return fmt.Errorf("archive: s3.bucket is not configured")
	}

	path := *file
	if path == "" {
		path = filepath.Join(cfg.Storage.TradeLogDir, jsonl.FileName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := archive.NewS3Client(ctx, archive.Config{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return err
	}

	key, err := archive.NewS3Archiver(client, cfg.S3.Bucket, logger).Archive(ctx, path)
	if err != nil {
		return err
	}
	fmt.Printf("archived %s to s3://%s/%s\n", path, cfg.S3.Bucket, key)
	return nil
}
