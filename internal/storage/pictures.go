package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"

	"github.com/ilivehere/backend/internal/config"
	"github.com/ilivehere/backend/internal/oops"
)

var ErrPicturesDisabled = errors.New("picture storage is not configured")

// PictureStore keeps story pictures outside the database.
type PictureStore interface {
	Put(ctx context.Context, key, contentType string, content []byte) error
	URL(key string) string
}

var reIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

func SanitizeFilename(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "unnamed"
	}
	return reIllegalFilenameChars.ReplaceAllString(filename, "_")
}

// PictureKey lays pictures out by upload date: story/2026/10/15/<uuid>/<filename>.
func PictureKey(at time.Time, filename string) string {
	return fmt.Sprintf("story/%s/%s/%s", at.UTC().Format("2006/01/02"), uuid.New().String(), SanitizeFilename(filename))
}

var allowedPictureTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// DetectPictureType sniffs the content and rejects anything that is not an image.
func DetectPictureType(content []byte) (string, error) {
	if len(content) == 0 {
		return "", oops.Validation("picture is empty")
	}
	contentType := http.DetectContentType(content)
	if !allowedPictureTypes[contentType] {
		return "", oops.Validation("picture must be a JPEG, PNG, GIF or WebP image, got %s", contentType)
	}
	return contentType, nil
}

type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, cfg *config.Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.PictureKey, cfg.PictureSecret, ""),
		),
		awsconfig.WithRegion(cfg.PictureRegion),
	}
	if cfg.PictureEndpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{URL: cfg.PictureEndpoint}, nil
		})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, oops.New(err, "failed to load picture storage config")
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.UsePathStyle = true
		}),
		bucket:    cfg.PictureBucket,
		publicURL: publicBaseURL(cfg),
	}, nil
}

// publicBaseURL is where uploaded pictures are served from. Without an
// explicit URL or custom endpoint the bucket is assumed to live on AWS.
func publicBaseURL(cfg *config.Config) string {
	if cfg.PicturePublicURL != "" {
		return strings.TrimRight(cfg.PicturePublicURL, "/")
	}
	if cfg.PictureEndpoint != "" {
		return strings.TrimRight(cfg.PictureEndpoint, "/") + "/" + cfg.PictureBucket
	}
	if cfg.PictureRegion == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", cfg.PictureBucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.PictureBucket, cfg.PictureRegion)
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, content []byte) error {
	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         &key,
			Body:        bytes.NewReader(content),
			ACL:         types.ObjectCannedACLPublicRead,
			ContentType: &contentType,
		})
		return err
	}

	err := upload()
	if err == nil {
		return nil
	}

	var apiError smithy.APIError
	if !errors.As(err, &apiError) || apiError.ErrorCode() != "NoSuchBucket" {
		return oops.New(err, "failed to upload picture")
	}

	if _, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: &s.bucket}); err != nil {
		return oops.New(err, "failed to create pictures bucket")
	}
	if err := upload(); err != nil {
		return oops.New(err, "failed to upload picture")
	}
	return nil
}

func (s *S3Store) URL(key string) string {
	if key == "" {
		return ""
	}
	return s.publicURL + "/" + key
}

// DisabledStore refuses uploads when no bucket is configured.
type DisabledStore struct{}

func (DisabledStore) Put(context.Context, string, string, []byte) error {
	return ErrPicturesDisabled
}

func (DisabledStore) URL(string) string {
	return ""
}
