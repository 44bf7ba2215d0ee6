package objectstore

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/oops"
)

type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

var _ Store = &S3Store{}

func NewS3Store(cfg config.ObjectStoreConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, awsconfig.WithEndpointResolver(aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL: cfg.Endpoint,
			}, nil
		})))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, oops.New(err, "failed to load S3 config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// Put uploads body to objectPath. If the bucket doesn't exist yet it is
// created and the upload is tried once more.
func (s *S3Store) Put(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	// The body may be consumed by a failed attempt, so the retry needs it
	// buffered or seekable.
	seeker, seekable := body.(io.Seeker)

	upload := func() error {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      &s.bucket,
			Key:         &objectPath,
			Body:        body,
			ContentType: &contentType,
		})
		return err
	}

	err := upload()
	if err != nil {
		var apiError smithy.APIError
		if errors.As(err, &apiError) && apiError.ErrorCode() == "NoSuchBucket" && seekable {
			_, err := s.client.CreateBucket(ctx, &s3.CreateBucketInput{
				Bucket: &s.bucket,
			})
			if err != nil {
				return oops.New(err, "failed to create attachments bucket")
			}

			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return oops.New(err, "failed to rewind upload body")
			}
			err = upload()
			if err != nil {
				return oops.New(err, "failed to upload object")
			}
		} else {
			return oops.New(err, "failed to upload object")
		}
	}

	return nil
}

func (s *S3Store) Delete(ctx context.Context, objectPath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &objectPath,
	})
	if err != nil {
		return oops.New(err, "failed to delete object")
	}
	return nil
}

func (s *S3Store) IssueTemporaryAccess(ctx context.Context, objectPath string, ttl time.Duration, opts AccessOptions) (string, error) {
	input := &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &objectPath,
	}
	if opts.ForceDownloadAs != "" {
		disposition := ContentDisposition(opts.ForceDownloadAs)
		input.ResponseContentDisposition = &disposition
	}

	req, err := s.presign.PresignGetObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", oops.New(err, "failed to presign object URL")
	}
	return req.URL, nil
}
