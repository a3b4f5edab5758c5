package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	s3config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/jatinpathania/University-assignment-approval-system/internal/errdefs"
)

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// UploadResult points at the stored artifact. Key doubles as the public
// id for later deletion.
type UploadResult struct {
	URL              string
	Key              string
	OriginalFileName string
}

type DocumentStore struct {
	client   *s3.Client
	bucket   *string
	endpoint string
}

var allowedExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true,
	".ppt": true, ".pptx": true, ".txt": true,
	".png": true, ".jpg": true, ".jpeg": true,
}

func New(ctx context.Context, cfg Config) (*DocumentStore, error) {
	s3Cfg, err := s3config.LoadDefaultConfig(ctx,
		s3config.WithRegion(cfg.Region),
		s3config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(s3Cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	store := &DocumentStore{
		client:   client,
		bucket:   aws.String(cfg.Bucket),
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
	}

	if err := store.createBucket(ctx, cfg.Bucket); err != nil {
		return nil, err
	}
	return store, nil
}

// Upload stores the file and returns a stable retrieval URL. Callers
// persist the URL on the record only after the upload succeeds, so a
// failed upload aborts the whole transition.
func (s *DocumentStore) Upload(ctx context.Context, data []byte, filename string) (*UploadResult, error) {
	extension := strings.ToLower(path.Ext(filename))
	if extension == "" || !allowedExtensions[extension] {
		return nil, errdefs.NewValidationError("file", fmt.Sprintf("file type %q is not allowed", extension))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	key := "assignments/" + id.String() + extension

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to upload document: %v", errdefs.ErrUpstream, err)
	}

	return &UploadResult{
		URL:              fmt.Sprintf("%s/%s/%s", s.endpoint, *s.bucket, key),
		Key:              key,
		OriginalFileName: filename,
	}, nil
}

func (s *DocumentStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to delete document: %v", errdefs.ErrUpstream, err)
	}
	return nil
}

func (s *DocumentStore) createBucket(ctx context.Context, name string) error {
	_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
	if err != nil {
		var opErr *awshttp.ResponseError
		if errors.As(err, &opErr) && opErr.HTTPStatusCode() == 409 {
			return nil
		}
		return fmt.Errorf("failed to create bucket %s: %w", name, err)
	}
	return nil
}
