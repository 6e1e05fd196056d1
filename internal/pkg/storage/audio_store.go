package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofiber/fiber/v2/log"

	"github.com/soundhaven/soundhaven/internal/pkg/env"
)

// DefaultStreamURLTTL bounds how long a presigned stream URL stays valid.
const DefaultStreamURLTTL = 15 * time.Minute

var defaultStore *AudioStore

// Setup initializes the shared audio store from the environment.
func Setup(ctx context.Context) error {
	store, err := NewAudioStoreFromEnv(ctx)
	if err != nil {
		return err
	}
	defaultStore = store
	return nil
}

// GetAudioStore returns the shared audio store, or nil before Setup.
func GetAudioStore() *AudioStore {
	return defaultStore
}

// AudioStore holds audio objects in an S3-compatible bucket and hands out
// short-lived presigned URLs for playback.
type AudioStore struct {
	s3Client *s3.Client
	presign  *s3.PresignClient
	bucket   string
}

// NewAudioStoreFromEnv builds the store from S3_* environment variables.
func NewAudioStoreFromEnv(ctx context.Context) (*AudioStore, error) {
	region := env.GetEnv("S3_REGION", "us-east-1")
	bucket := env.GetEnv("S3_AUDIO_BUCKET", "")
	if bucket == "" {
		return nil, fmt.Errorf("S3_AUDIO_BUCKET is not configured")
	}

	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			env.GetEnv("S3_ACCESS_KEY_ID", ""),
			env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := strings.TrimSpace(env.GetEnv("S3_ENDPOINT_URL", ""))
	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// MinIO and B2 need path-style URLs
			o.UsePathStyle = true
			o.UseAccelerate = false
		}
	})

	store := &AudioStore{
		s3Client: s3Client,
		presign:  s3.NewPresignClient(s3Client),
		bucket:   bucket,
	}

	if _, err := s3Client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if env.IsDev() {
			log.Warnf("[AudioStore] Bucket %s not found, attempting to create it", bucket)
			if cerr := store.createBucket(ctx, region, endpoint); cerr != nil {
				return nil, cerr
			}
		} else {
			return nil, fmt.Errorf("bucket %s not accessible: %w", bucket, err)
		}
	}

	log.Infof("[AudioStore] Initialized S3 client for bucket: %s", bucket)
	return store, nil
}

func (s *AudioStore) createBucket(ctx context.Context, region, endpoint string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	}
	if endpoint == "" && region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(region),
		}
	}
	if _, err := s.s3Client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put stores an audio object under the given key.
func (s *AudioStore) Put(ctx context.Context, key, contentType string, size int64, body io.Reader) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("failed to upload audio object %s: %w", key, err)
	}
	return nil
}

// Delete removes an audio object.
func (s *AudioStore) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete audio object %s: %w", key, err)
	}
	return nil
}

// Exists reports whether an audio object is present.
func (s *AudioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check audio object %s: %w", key, err)
	}
	return true, nil
}

// PresignStreamURL returns a time-limited GET URL for direct playback.
func (s *AudioStore) PresignStreamURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultStreamURLTTL
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign stream url for %s: %w", key, err)
	}
	return req.URL, nil
}
