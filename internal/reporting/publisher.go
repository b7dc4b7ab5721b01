// Package reporting publishes written report files to object storage.
package reporting

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// Publisher copies a finished report somewhere durable and returns its
// location
type Publisher interface {
	Publish(ctx context.Context, reportPath string) (string, error)
}

// Uploader is the subset of the S3 upload manager used for publishing
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config configures the S3 publisher
type S3Config struct {
	Bucket string
	Prefix string
	Region string
}

// S3Publisher uploads reports to an S3 bucket
type S3Publisher struct {
	uploader Uploader
	bucket   string
	prefix   string
	log      zerolog.Logger
}

// NewS3Publisher creates a publisher using the default AWS credential chain
func NewS3Publisher(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return NewS3PublisherWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, log), nil
}

// NewS3PublisherWithUploader creates a publisher around an existing uploader
func NewS3PublisherWithUploader(uploader Uploader, bucket, prefix string, log zerolog.Logger) *S3Publisher {
	return &S3Publisher{
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		log:      log.With().Str("service", "s3_publisher").Logger(),
	}
}

// ObjectKey returns the object key a report file is stored under
func (p *S3Publisher) ObjectKey(reportPath string) string {
	name := filepath.Base(reportPath)
	if p.prefix == "" {
		return name
	}
	return path.Join(p.prefix, name)
}

// Publish uploads the report and returns its s3:// location
func (p *S3Publisher) Publish(ctx context.Context, reportPath string) (string, error) {
	file, err := os.Open(reportPath)
	if err != nil {
		return "", fmt.Errorf("failed to open report: %w", err)
	}
	defer file.Close()

	key := p.ObjectKey(reportPath)
	startTime := time.Now()

	_, err = p.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, p.bucket, err)
	}

	location := fmt.Sprintf("s3://%s/%s", p.bucket, key)
	p.log.Info().
		Str("location", location).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Report published")

	return location, nil
}

// NoopPublisher is used when no bucket is configured
type NoopPublisher struct{}

// Publish does nothing and returns an empty location
func (NoopPublisher) Publish(context.Context, string) (string, error) {
	return "", nil
}
