// Package storage uploads caption images to S3 and hands back a URL the
// browser can load.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PresignExpiry is how long a presigned GET URL stays valid when no public
// base URL is configured. Seven days is the SigV4 maximum.
const PresignExpiry = 7 * 24 * time.Hour

// UploadResult describes a stored object.
type UploadResult struct {
	Key string
	URL string
}

type putAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store writes images under a key prefix in a single bucket.
type S3Store struct {
	client        putAPI
	presigner     presignAPI
	bucket        string
	prefix        string
	publicBaseURL string
	now           func() time.Time
}

// Options configures an S3Store.
type Options struct {
	Bucket string
	// Prefix is prepended to every key, e.g. "posts".
	Prefix string
	// PublicBaseURL, when set, is joined with the key to form the returned
	// URL (a CloudFront domain or a public bucket endpoint). When empty a
	// presigned GET URL is returned instead.
	PublicBaseURL string
}

// NewS3Store creates an S3Store from an S3 client.
func NewS3Store(client *s3.Client, opts Options) *S3Store {
	return &S3Store{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        opts.Bucket,
		prefix:        strings.Trim(opts.Prefix, "/"),
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		now:           time.Now,
	}
}

// Upload stores data under a fresh key and returns its URL.
func (s *S3Store) Upload(ctx context.Context, data []byte, contentType string) (UploadResult, error) {
	if len(data) == 0 {
		return UploadResult{}, fmt.Errorf("refusing to upload empty object")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := s.newKey(contentType)

	log.Debug().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("size", len(data)).
		Str("content_type", contentType).
		Msg("Uploading image to S3")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentType:   &contentType,
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload image to S3: %w", err)
	}

	url, err := s.objectURL(ctx, key)
	if err != nil {
		return UploadResult{}, err
	}

	log.Info().Str("key", key).Msg("Image uploaded to S3")
	return UploadResult{Key: key, URL: url}, nil
}

// newKey returns <prefix>/<yyyy>/<mm>/<uuid><ext>.
func (s *S3Store) newKey(contentType string) string {
	now := s.now().UTC()
	name := uuid.NewString() + ExtensionFor(contentType)
	key := fmt.Sprintf("%04d/%02d/%s", now.Year(), int(now.Month()), name)
	if s.prefix != "" {
		key = s.prefix + "/" + key
	}
	return key
}

func (s *S3Store) objectURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	result, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket, Key: &key,
	}, func(opts *s3.PresignOptions) {
		opts.Expires = PresignExpiry
	})
	if err != nil {
		return "", fmt.Errorf("presign GetObject: %w", err)
	}
	return result.URL, nil
}

// ExtensionFor maps an image content type to a file extension.
func ExtensionFor(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	case "image/heic":
		return ".heic"
	case "image/heif":
		return ".heif"
	default:
		return ""
	}
}
