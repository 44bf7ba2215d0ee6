package objectstore

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/opsportal/portal/src/config"
	"github.com/opsportal/portal/src/oops"
)

type MinioStore struct {
	client *minio.Client
	bucket string
	region string
}

var _ Store = &MinioStore{}

// NewMinioStore accepts the endpoint either as host:port or as a full URL.
// A URL scheme of https turns on TLS regardless of UseSSL.
func NewMinioStore(cfg config.ObjectStoreConfig) (*MinioStore, error) {
	host := cfg.Endpoint
	secure := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		host = u.Host
		secure = secure || u.Scheme == "https"
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		// Setting the region keeps presigning offline; otherwise minio-go
		// asks the server for the bucket location first.
		Region: cfg.Region,
	})
	if err != nil {
		return nil, oops.New(err, "failed to create minio client")
	}

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	seeker, seekable := body.(io.Seeker)

	upload := func() error {
		_, err := s.client.PutObject(ctx, s.bucket, objectPath, body, size, minio.PutObjectOptions{
			ContentType: contentType,
		})
		return err
	}

	err := upload()
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchBucket" && seekable {
			err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
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

func (s *MinioStore) Delete(ctx context.Context, objectPath string) error {
	err := s.client.RemoveObject(ctx, s.bucket, objectPath, minio.RemoveObjectOptions{})
	if err != nil {
		return oops.New(err, "failed to delete object")
	}
	return nil
}

func (s *MinioStore) IssueTemporaryAccess(ctx context.Context, objectPath string, ttl time.Duration, opts AccessOptions) (string, error) {
	reqParams := make(url.Values)
	if opts.ForceDownloadAs != "" {
		reqParams.Set("response-content-disposition", ContentDisposition(opts.ForceDownloadAs))
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, ttl, reqParams)
	if err != nil {
		return "", oops.New(err, "failed to presign object URL")
	}
	return u.String(), nil
}
