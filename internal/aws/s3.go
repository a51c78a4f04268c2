package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client used by S3Service.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Presigner creates presigned GetObject requests.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Service handles S3 operations
type S3Service struct {
	client    S3API
	presigner Presigner
	cfg       *Config
}

// NewS3Service creates a new S3 service
func NewS3Service(client *s3.Client, cfg *Config) *S3Service {
	return &S3Service{client: client, presigner: s3.NewPresignClient(client), cfg: cfg}
}

// CheckObjectExists uses HeadObject to determine if the object already exists.
func (s *S3Service) CheckObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UploadFile uploads the given file to the specified bucket and key.
func (s *S3Service) UploadFile(ctx context.Context, bucket, key, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
		Body:   f,
	})
	return err
}

// GetObject downloads an object into memory.
func (s *S3Service) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("object s3://%s/%s not found: %w", bucket, key, err)
		}
		return nil, err
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading s3://%s/%s: %w", bucket, key, err)
	}
	return raw, nil
}

// PresignGetURL returns a time-limited URL for downloading an object.
func (s *S3Service) PresignGetURL(ctx context.Context, bucket, key string) (string, error) {
	expiry := s.cfg.Get().PresignExpiry
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// HeadBucket checks if bucket exists and is accessible
func (s *S3Service) HeadBucket(ctx context.Context, bucket string) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: &bucket,
	})
	return err
}

// ParseObjectURI splits an s3:// URI or an S3 https URL (path or virtual-hosted style)
// into bucket and key.
func ParseObjectURI(uri string) (string, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse object URI %q: %w", uri, err)
	}

	var bucket, key string
	switch {
	case u.Scheme == "s3":
		bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	case u.Scheme == "https" && (strings.HasPrefix(u.Host, "s3.") || u.Host == "s3.amazonaws.com"):
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if len(parts) == 2 {
			bucket, key = parts[0], parts[1]
		}
	case u.Scheme == "https" && strings.Contains(u.Host, ".s3."):
		bucket = u.Host[:strings.Index(u.Host, ".s3.")]
		key = strings.TrimPrefix(u.Path, "/")
	}
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("not an S3 object URI: %q", uri)
	}
	return bucket, key, nil
}

// isNotFoundError determines if an error from AWS indicates a "not found" condition.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var (
		notFound  *s3types.NotFound
		noSuchKey *s3types.NoSuchKey
	)
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFoundException", "NotFound", "NoSuchKey", "404":
			return true
		}
	}
	return strings.Contains(err.Error(), "NotFound:")
}
