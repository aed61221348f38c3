// Package blobstore is the Blob Store Adapter (spec §6): get/put/download/
// upload of opaque byte blobs keyed by string, plus JSON convenience. It is
// the only persistence primitive the pipeline core uses.
package blobstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/ekusiadadus/ek-transcript/internal/models"
)

// Store is the blob store contract every pipeline stage depends on.
// Keys are case-sensitive, "/"-delimited strings; Put is atomic by key.
type Store interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, localPath, bucket, key, contentType string) error
	GetJSON(ctx context.Context, bucket, key string, out interface{}) error
	PutJSON(ctx context.Context, bucket, key string, value interface{}) error
}

// S3Store is an S3-backed Store, the out-of-process collaborator named in
// spec §6's blob store contract.
type S3Store struct {
	client     *s3.S3
	downloader *s3manager.Downloader
	uploader   *s3manager.Uploader
}

// Config configures the S3-backed store.
type Config struct {
	Endpoint       string
	Region         string
	ForcePathStyle bool
}

// NewS3Store creates an S3-backed blob store, following the teacher's
// session-based client construction idiom (see clients/*.go's http.Client
// setup) adapted to AWS SDK v1 session/config wiring.
func NewS3Store(cfg Config) (*S3Store, error) {
	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.ForcePathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 session: %w", err)
	}

	client := s3.New(sess)
	return &S3Store{
		client:     client,
		downloader: s3manager.NewDownloaderWithClient(client),
		uploader:   s3manager.NewUploaderWithClient(client),
	}, nil
}

// Get downloads a blob fully into memory.
func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, models.NewStageError(models.TransientBlobIO, "blobstore.Get", fmt.Errorf("s3://%s/%s: %w", bucket, key, err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, models.NewStageError(models.TransientBlobIO, "blobstore.Get", fmt.Errorf("read body s3://%s/%s: %w", bucket, key, err))
	}
	return data, nil
}

// Put writes a blob atomically under key: readers either see the whole
// write or nothing, never a partial object.
func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return models.NewStageError(models.TransientBlobIO, "blobstore.Put", fmt.Errorf("s3://%s/%s: %w", bucket, key, err))
	}
	return nil
}

// Download streams a blob to a local file path, for stages that hand the
// result to an external tool (ffmpeg) that wants a real file.
func (s *S3Store) Download(ctx context.Context, bucket, key, localPath string) error {
	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create local file %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.downloader.DownloadWithContext(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.NewStageError(models.TransientBlobIO, "blobstore.Download", fmt.Errorf("s3://%s/%s -> %s: %w", bucket, key, localPath, err))
	}
	return nil
}

// Upload streams a local file to the blob store under key.
func (s *S3Store) Upload(ctx context.Context, localPath, bucket, key, contentType string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open local file %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return models.NewStageError(models.TransientBlobIO, "blobstore.Upload", fmt.Errorf("%s -> s3://%s/%s: %w", localPath, bucket, key, err))
	}
	return nil
}

// GetJSON is a convenience wrapper that unmarshals the blob at key into out.
func (s *S3Store) GetJSON(ctx context.Context, bucket, key string, out interface{}) error {
	data, err := s.Get(ctx, bucket, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return models.NewStageError(models.CorruptInput, "blobstore.GetJSON", fmt.Errorf("unmarshal s3://%s/%s: %w", bucket, key, err))
	}
	return nil
}

// PutJSON is a convenience wrapper that marshals value and writes it as a
// JSON blob at key.
func (s *S3Store) PutJSON(ctx context.Context, bucket, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value for s3://%s/%s: %w", bucket, key, err)
	}
	return s.Put(ctx, bucket, key, data, "application/json")
}
