// Package imagestore uploads project images to S3 as square thumbnails
// and removes them again by public URL.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/ignite/portfolio-api/internal/pkg/logger"
)

// ObjectAPI is the subset of *s3.Client the store uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// InvalidationAPI is the subset of *cloudfront.Client the store uses.
type InvalidationAPI interface {
	CreateInvalidation(ctx context.Context, params *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// Config configures a Store.
type Config struct {
	Bucket string
	Region string
	// Folder is used by Remove for URLs this store did not produce.
	Folder    string
	CDNDomain string
	// Endpoint is an S3-compatible base URL (MinIO, LocalStack); objects
	// are then addressed path-style.
	Endpoint       string
	DistributionID string
	ThumbnailSize  int
	MaxBytes       int64
}

// Store is the S3-backed image store.
type Store struct {
	cfg     Config
	objects ObjectAPI
	cdn     InvalidationAPI
}

// New creates a store. cdn may be nil; invalidation then never runs.
func New(objects ObjectAPI, cdn InvalidationAPI, cfg Config) *Store {
	if cfg.ThumbnailSize <= 0 {
		cfg.ThumbnailSize = 300
	}
	if cfg.Folder == "" {
		cfg.Folder = "projects"
	}
	return &Store{cfg: cfg, objects: objects, cdn: cdn}
}

// NewFromConfig builds the S3 client, and the CloudFront client when a
// distribution is configured, from a loaded AWS config.
func NewFromConfig(awsCfg aws.Config, cfg Config) *Store {
	objects := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Region != "" {
			o.Region = cfg.Region
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	var cdn InvalidationAPI
	if cfg.DistributionID != "" {
		cdn = cloudfront.NewFromConfig(awsCfg)
	}
	return New(objects, cdn, cfg)
}

// Store uploads data as a fill-cropped square JPEG under folder and
// returns its public URL.
func (s *Store) Store(ctx context.Context, data []byte, folder string) (string, error) {
	if s.cfg.MaxBytes > 0 && int64(len(data)) > s.cfg.MaxBytes {
		return "", ErrTooLarge
	}
	switch detectContentType(data) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", ErrUnsupportedImage
	}

	thumb, err := thumbnail(data, s.cfg.ThumbnailSize)
	if err != nil {
		return "", err
	}

	if folder = strings.Trim(folder, "/"); folder == "" {
		folder = s.cfg.Folder
	}
	key := objectKey(folder, uuid.NewString())

	_, err = s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.cfg.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(thumb),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("public, max-age=31536000"),
	})
	if err != nil {
		return "", &StoreError{Op: "upload", Key: key, Err: err}
	}

	logger.Info("image stored", "key", key, "bytes", len(thumb))
	return s.publicBase() + key, nil
}

// Remove deletes the object behind rawURL. Failures are logged and
// reported as false; they never propagate.
func (s *Store) Remove(ctx context.Context, rawURL string) bool {
	key, err := s.keyFromURL(rawURL)
	if err != nil {
		logger.Warn("image remove skipped", "url", rawURL, "error", err)
		return false
	}

	_, err = s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		logger.Warn("image delete failed", "key", key, "error", err)
		return false
	}

	s.invalidate(ctx, key)
	logger.Info("image removed", "key", key)
	return true
}

// Check verifies the bucket is reachable with the current credentials.
func (s *Store) Check(ctx context.Context) error {
	_, err := s.objects.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	if err != nil {
		return &StoreError{Op: "head bucket", Key: s.cfg.Bucket, Err: err}
	}
	return nil
}

func (s *Store) invalidate(ctx context.Context, key string) {
	if s.cdn == nil || s.cfg.DistributionID == "" {
		return
	}
	_, err := s.cdn.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(s.cfg.DistributionID),
		InvalidationBatch: &cftypes.InvalidationBatch{
			CallerReference: aws.String(fmt.Sprintf("%s-%d", key, time.Now().UnixNano())),
			Paths: &cftypes.Paths{
				Quantity: aws.Int32(1),
				Items:    []string{"/" + key},
			},
		},
	})
	if err != nil {
		logger.Warn("cdn invalidation failed", "key", key, "error", err)
	}
}

// publicBase is the URL prefix that, joined with an object key, gives
// the object's public address.
func (s *Store) publicBase() string {
	switch {
	case s.cfg.CDNDomain != "":
		return fmt.Sprintf("https://%s/", strings.TrimSuffix(s.cfg.CDNDomain, "/"))
	case s.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/", strings.TrimSuffix(s.cfg.Endpoint, "/"), s.cfg.Bucket)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.cfg.Bucket, s.cfg.Region)
	}
}

// keyFromURL recovers the object key. The content id is the last path
// segment without its extension; the folder is whatever sits between
// the public base and that segment, or the default folder for URLs this
// store did not produce.
func (s *Store) keyFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	id := contentID(u.Path)
	if id == "" {
		return "", errors.New("url has no content id")
	}

	folder := s.cfg.Folder
	if rest, ok := strings.CutPrefix(rawURL, s.publicBase()); ok {
		if dir := path.Dir(rest); dir != "." {
			folder = dir
		}
	}
	return objectKey(folder, id), nil
}

// contentID strips the folder prefix and extension from a URL path.
func contentID(p string) string {
	base := path.Base(p)
	if base == "/" || base == "." {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func objectKey(folder, id string) string {
	return folder + "/" + id + ".jpg"
}
