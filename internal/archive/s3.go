// Package archive uploads trade logs to S3-compatible object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// KeyPrefix is the object prefix for archived trade logs.
const KeyPrefix = "trade-logs"

// ErrEmptyLog is returned when the trade log has nothing to archive.
var ErrEmptyLog = errors.New("trade log is empty")

// Config holds the connection settings for an S3-compatible store.
// Endpoint is empty for AWS S3; MinIO and R2 need it with ForcePathStyle.
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	AccessKey      string
	SecretKey      string
	UseSSL         bool
	ForcePathStyle bool
}

// ObjectPutter is the subset of *s3.Client used by the archiver.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads JSONL trade logs as single objects.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("archive: region is required")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("archive: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint, cfg.UseSSL)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// NewS3Archiver creates an archiver writing to bucket. A nil logger uses the
// logrus standard logger.
func NewS3Archiver(client ObjectPutter, bucket string, logger logrus.FieldLogger) *S3Archiver {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &S3Archiver{
		client: client,
		bucket: bucket,
		logger: logger.WithField("component", "archiver"),
		now:    time.Now,
	}
}

// Archive uploads the file at path and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("archive: stat %s: %w", path, err)
	}
	if info.Size() == 0 {
		return "", ErrEmptyLog
	}

	key := ObjectKey(path, a.now())
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("archive: put object %s: %w", key, err)
	}

	a.logger.WithFields(logrus.Fields{
		"bucket": a.bucket,
		"key":    key,
		"bytes":  info.Size(),
	}).Info("trade log archived")
	return key, nil
}

// ObjectKey returns trade-logs/YYYY/MM/DD/<basename>-<unix>.jsonl for path at t (UTC).
func ObjectKey(path string, t time.Time) string {
	t = t.UTC()
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s-%d.jsonl",
		KeyPrefix, t.Year(), int(t.Month()), t.Day(), base, t.Unix())
}

func normaliseEndpoint(endpoint string, useSSL bool) string {
	// "host:port" parses as a scheme, so look for the separator instead.
	if strings.Contains(endpoint, "://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}
