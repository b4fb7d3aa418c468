// Package storage uploads profile images to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"linkbio-service/config"
	"linkbio-service/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Kind selects the bucket an image is written to.
type Kind string

const (
	KindAvatar     Kind = "avatar"
	KindBackground Kind = "background"
)

var allowedExtensions = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var loadAWSConfig = awsconfig.LoadDefaultConfig

type S3Store struct {
	client        putObjectAPI
	presigner     presignAPI
	buckets       map[Kind]string
	publicBaseURL string
	signedURLs    bool
	signedURLTTL  time.Duration
	maxBytes      int64
	now           func() time.Time
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	awsCfg, err := loadAWSConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Store(client, s3.NewPresignClient(client), cfg), nil
}

func newS3Store(client putObjectAPI, presigner presignAPI, cfg config.StorageConfig) *S3Store {
	return &S3Store{
		client:    client,
		presigner: presigner,
		buckets: map[Kind]string{
			KindAvatar:     cfg.AvatarBucket,
			KindBackground: cfg.BackgroundBucket,
		},
		publicBaseURL: cfg.PublicBaseURL,
		signedURLs:    cfg.SignedURLs,
		signedURLTTL:  cfg.SignedURLTTL,
		maxBytes:      cfg.MaxUploadBytes,
		now:           time.Now,
	}
}

// Extension returns the lowercased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// ObjectKey lays objects out as {userID}/{unixMillis}.{ext}.
func ObjectKey(userID string, at time.Time, ext string) string {
	return fmt.Sprintf("%s/%d.%s", userID, at.UnixMilli(), ext)
}

// Upload writes the image and returns the URL clients should load it from.
func (s *S3Store) Upload(ctx context.Context, kind Kind, userID, filename, contentType string, body io.Reader, size int64) (string, error) {
	bucket, ok := s.buckets[kind]
	if !ok || bucket == "" {
		return "", models.NewValidationError("kind", fmt.Sprintf("unknown image kind %q", kind))
	}
	ext := Extension(filename)
	defaultType, ok := allowedExtensions[ext]
	if !ok {
		return "", models.NewValidationError("file", "unsupported image type")
	}
	if size <= 0 {
		return "", models.NewValidationError("file", "empty upload")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return "", models.NewValidationError("file", fmt.Sprintf("file exceeds %d bytes", s.maxBytes))
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = defaultType
	}

	key := ObjectKey(userID, s.now(), ext)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", models.Backend("upload image", err)
	}
	return s.URL(ctx, kind, key)
}

// URL resolves a stored key to either its public or a presigned address.
func (s *S3Store) URL(ctx context.Context, kind Kind, key string) (string, error) {
	bucket := s.buckets[kind]
	if !s.signedURLs {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, bucket, key), nil
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.signedURLTTL))
	if err != nil {
		return "", models.Backend("presign image url", err)
	}
	return req.URL, nil
}
