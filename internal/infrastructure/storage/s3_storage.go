// Package storage provides the media file sources the media synchronizer reads from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/erp/bridge/internal/application/syncer"
	infraconfig "github.com/erp/bridge/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Ensure S3MediaStore implements MediaStore
var _ syncer.MediaStore = (*S3MediaStore)(nil)

// S3MediaStore reads media files from an S3 bucket. It is compatible with any
// S3-compatible storage (AWS S3, RustFS, MinIO, etc.)
type S3MediaStore struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3MediaStoreOption is a functional option for configuring S3MediaStore
type S3MediaStoreOption func(*S3MediaStore)

// WithLogger sets a custom logger for S3MediaStore
func WithLogger(logger *zap.Logger) S3MediaStoreOption {
	return func(s *S3MediaStore) {
		s.logger = logger
	}
}

// NewS3MediaStore creates a new S3MediaStore from configuration.
// Without an access key the default AWS credential chain is used.
func NewS3MediaStore(ctx context.Context, cfg *infraconfig.S3Config, opts ...S3MediaStoreOption) (*S3MediaStore, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey == "" {
		return nil, errors.New("storage secret access key is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // session token (not used for static credentials)
		)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	var endpoint string
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		if _, err := url.Parse(endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	store := &S3MediaStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// List returns every object below the configured prefix
func (s *S3MediaStore) List(ctx context.Context) ([]syncer.MediaObject, error) {
	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix + "/")
	}

	var objects []syncer.MediaObject
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list media objects: %w", err)
		}
		for _, obj := range page.Contents {
			name := s.name(aws.ToString(obj.Key))
			if name == "" || strings.HasSuffix(name, "/") {
				continue
			}
			o := syncer.MediaObject{Name: name, Size: obj.Size}
			if obj.LastModified != nil {
				o.ModifiedAt = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}
	s.logger.Debug("Listed media objects",
		zap.String("bucket", s.bucket),
		zap.Int("count", len(objects)),
	)
	return objects, nil
}

// Stat resolves size and content type. Objects without a usable content type
// are sniffed from their first bytes.
func (s *S3MediaStore) Stat(ctx context.Context, name string) (*syncer.MediaObject, error) {
	if name == "" {
		return nil, errors.New("media name is required")
	}
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
		}
		return nil, fmt.Errorf("failed to stat media object: %w", err)
	}

	obj := &syncer.MediaObject{
		Name:        name,
		Size:        head.ContentLength,
		ContentType: aws.ToString(head.ContentType),
	}
	if head.LastModified != nil {
		obj.ModifiedAt = *head.LastModified
	}
	if !isGenericContentType(obj.ContentType) {
		return obj, nil
	}

	sniffed, err := s.sniff(ctx, name)
	if err != nil {
		s.logger.Warn("Failed to sniff media content type",
			zap.String("name", name),
			zap.Error(err),
		)
		obj.ContentType = DetectContentType(name, nil)
		return obj, nil
	}
	obj.ContentType = sniffed
	return obj, nil
}

// Open streams the object content. The caller closes the reader.
func (s *S3MediaStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if name == "" {
		return nil, errors.New("media name is required")
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", syncer.ErrMediaNotFound, name)
		}
		return nil, fmt.Errorf("failed to open media object: %w", err)
	}
	return out.Body, nil
}

// GetBucket returns the bucket name
func (s *S3MediaStore) GetBucket() string {
	return s.bucket
}

// sniff reads the head of the object with a ranged GET
func (s *S3MediaStore) sniff(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
		Range:  aws.String(fmt.Sprintf("bytes=0-%d", sniffLength-1)),
	})
	if err != nil {
		return "", err
	}
	defer out.Body.Close()

	head, err := io.ReadAll(io.LimitReader(out.Body, sniffLength))
	if err != nil {
		return "", err
	}
	return DetectContentType(name, head), nil
}

func (s *S3MediaStore) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *S3MediaStore) name(key string) string {
	if s.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, s.prefix+"/")
}

func isNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	// Some S3-compatible services return this differently
	return strings.Contains(err.Error(), "NotFound") || strings.Contains(err.Error(), "NoSuchKey")
}
