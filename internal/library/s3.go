package library

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config describes an S3 or S3-compatible (MinIO) bucket.
type S3Config struct {
	Endpoint  string // empty for AWS; e.g. "http://localhost:9000" for MinIO
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

// S3API is the subset of *s3.Client the sink uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// S3Sink uploads tiles as objects under Prefix in Bucket.
type S3Sink struct {
	client  S3API
	bucket  string
	prefix  string
	format  Format
	quality int
}

// NewS3Client builds an S3 client from cfg. Static credentials are used when
// an access key is set; otherwise the default AWS credential chain applies.
// A custom endpoint switches to path-style addressing, which MinIO needs.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Sink returns a sink writing to cfg.Bucket through client.
func NewS3Sink(client S3API, cfg S3Config, format Format, quality int) *S3Sink {
	return &S3Sink{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		format:  format,
		quality: quality,
	}
}

// Key returns the object key for a tile name.
func (s *S3Sink) Key(name string) string {
	return path.Join(s.prefix, name+s.format.Ext())
}

// EnsureBucket creates the bucket if HeadBucket cannot see it.
func (s *S3Sink) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	log.Printf("Created bucket: %s", s.bucket)
	return nil
}

// Save encodes img in memory and uploads it as a single object.
func (s *S3Sink) Save(ctx context.Context, name string, img image.Image) error {
	var buf bytes.Buffer
	if err := s.format.Encoder(s.quality)(&buf, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	key := s.Key(name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(s.format.ContentType()),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
