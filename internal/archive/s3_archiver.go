package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// s3Archiver implements Archiver by writing one object per webhook event to
// an S3 bucket, keyed by delivery date and event ID.
type s3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewS3Archiver creates an S3-based webhook event archiver.
func NewS3Archiver(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Archiver, error) {
	logger = logger.With().Str("component", "s3-event-archiver").Logger()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := s3.NewFromConfig(cfg)

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 event archiver initialised")

	return &s3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}, nil
}

// objectKey builds the archive key for one event. The delivery date is
// embedded so the audit trail is browsable by day.
func objectKey(prefix, eventType, eventID string, deliveredAt time.Time) string {
	return fmt.Sprintf("%s%s/%s_%s.json",
		prefix,
		deliveredAt.UTC().Format("2006/01/02"),
		eventType,
		eventID,
	)
}

// Archive stores one verified webhook payload.
func (a *s3Archiver) Archive(ctx context.Context, eventID, eventType string, body []byte) error {
	key := objectKey(a.prefix, eventType, eventID, time.Now())

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error().
			Err(err).
			Str("bucket", a.bucket).
			Str("key", key).
			Msg("failed to archive webhook event")
		return fmt.Errorf("failed to archive webhook event %s: %w", eventID, err)
	}

	a.logger.Debug().
		Str("bucket", a.bucket).
		Str("key", key).
		Msg("webhook event archived")

	return nil
}
