package export

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/swatches"
)

// Uploader stores an object in the snapshot bucket.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, body io.Reader) error
}

// S3Uploader uploads through the S3 transfer manager, creating the bucket on first use.
type S3Uploader struct {
	client   *s3.Client
	uploader *manager.Uploader
	ensured  map[string]bool
}

// NewS3Uploader builds an S3 client from the default AWS chain, overridden by static keys and a
// custom endpoint when configured.
func NewS3Uploader(ctx context.Context, cfg swatches.ExportConfig) (*S3Uploader, error) {
	loadOpts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	if cfg.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.Endpoint))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Uploader{
		client:   client,
		uploader: manager.NewUploader(client),
		ensured:  make(map[string]bool),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	if err := u.ensureBucket(ctx, bucket); err != nil {
		return err
	}
	_, err := u.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/vnd.apache.parquet"),
	})
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}
	return nil
}

// HeadObject returns the size of a stored object.
func (u *S3Uploader) HeadObject(ctx context.Context, bucket, key string) (int64, error) {
	out, err := u.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return 0, fmt.Errorf("s3 head object: %w", err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

func (u *S3Uploader) ensureBucket(ctx context.Context, bucket string) error {
	if u.ensured[bucket] {
		return nil
	}
	if _, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if _, cerr := u.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); cerr != nil && !bucketExists(cerr) {
			return fmt.Errorf("create bucket: %w", cerr)
		}
	}
	u.ensured[bucket] = true
	return nil
}

func bucketExists(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	code := apiErr.ErrorCode()
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
}

// retryable reports whether an upload error counts toward pausing uploads.
// Client faults such as access denied do not count.
func retryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorFault() != smithy.FaultClient
	}
	return true
}
