// Package s3store implements blob.Store over an S3-compatible object store
// (AWS S3, MinIO). The credential token is "ACCESS_KEY:SECRET_KEY" and the
// destination is the bucket name.
package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"tgdrive/internal/blob"
	"tgdrive/internal/domain"
)

// LinkTTL is the lifetime of presigned download links
const LinkTTL = 15 * time.Minute

// objectAPI is the subset of *s3.Client the store calls
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Seams for tests
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newObjectAPI = func(cfg aws.Config, optFns ...func(*s3.Options)) (objectAPI, presigner) {
		c := s3.NewFromConfig(cfg, optFns...)
		return c, s3.NewPresignClient(c)
	}
)

// Options configures the S3 endpoint shared by every account
type Options struct {
	Endpoint string // empty = AWS default resolution
	Region   string
}

// Store is a blob.Store bound to one access key pair
type Store struct {
	api     objectAPI
	presign presigner
	logger  *slog.Logger
}

// NewFactory returns a blob.Factory building one Store per key pair
func NewFactory(opts Options, logger *slog.Logger) blob.Factory {
	return func(token string) (blob.Store, error) {
		return New(context.Background(), token, opts, logger)
	}
}

// New creates a Store for token "ACCESS_KEY:SECRET_KEY"
func New(ctx context.Context, token string, opts Options, logger *slog.Logger) (*Store, error) {
	accessKey, secretKey, ok := strings.Cut(token, ":")
	if !ok || accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("s3 token must be ACCESS_KEY:SECRET_KEY: %w", domain.ErrCredentialCorrupted)
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	api, ps := newObjectAPI(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{api: api, presign: ps, logger: logger}, nil
}

// objectKey returns a fresh date-partitioned key
func objectKey(now time.Time) string {
	return fmt.Sprintf("blobs/%d/%02d/%02d/%s", now.Year(), now.Month(), now.Day(), uuid.NewString())
}

// blob refs carry the bucket so fetches need no destination
func splitBlobRef(ref string) (bucket, key string, err error) {
	bucket, key, ok := strings.Cut(ref, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed blob ref %q: %w", ref, domain.ErrRemoteUnavailable)
	}
	return bucket, key, nil
}

func (s *Store) StoreBlob(ctx context.Context, destination string, r io.Reader, name string) (*blob.StoredBlob, error) {
	// The SDK signs the payload and needs a seekable body of known length.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &domain.UploadError{Reason: "read content", Err: err}
	}

	key := objectKey(time.Now())
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(destination),
		Key:                aws.String(key),
		Body:               bytes.NewReader(data),
		ContentLength:      aws.Int64(int64(len(data))),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", name)),
	})
	if err != nil {
		return nil, &domain.UploadError{Reason: "put object", Err: err}
	}

	return &blob.StoredBlob{MessageRef: key, BlobRef: destination + "/" + key}, nil
}

func (s *Store) GetBlobLink(ctx context.Context, blobRef string) (string, error) {
	bucket, key, err := splitBlobRef(blobRef)
	if err != nil {
		return "", err
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(LinkTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %v: %w", err, domain.ErrRemoteUnavailable)
	}
	return req.URL, nil
}

func (s *Store) GetBlobStream(ctx context.Context, blobRef string) (io.ReadCloser, error) {
	bucket, key, err := splitBlobRef(blobRef)
	if err != nil {
		return nil, err
	}

	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object: %v: %w", err, domain.ErrRemoteUnavailable)
	}
	return out.Body, nil
}

func (s *Store) DeleteBlob(ctx context.Context, destination, messageRef string) bool {
	_, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(destination),
		Key:    aws.String(messageRef),
	})
	if err != nil {
		s.logger.Warn("remote delete failed", "bucket", destination, "key", messageRef, "error", err)
		return false
	}
	return true
}

func (s *Store) ValidateCredential(ctx context.Context) bool {
	if _, err := s.api.ListBuckets(ctx, &s3.ListBucketsInput{}); err != nil {
		s.logger.Info("credential rejected", "error", err)
		return false
	}
	return true
}

func (s *Store) SendProbe(ctx context.Context, destination string) bool {
	if _, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(destination)}); err != nil {
		s.logger.Info("bucket probe failed", "bucket", destination, "error", err)
		return false
	}
	return true
}
