// Package storage issues time-limited browser upload authorizations for an
// S3-compatible bucket. File bytes never pass through the API.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedUpload is what a browser needs for a multipart POST to the bucket.
type PresignedUpload struct {
	URL       string            `json:"url"`
	Fields    map[string]string `json:"fields"`
	Key       string            `json:"key"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

type Presigner interface {
	PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error)
	ObjectURL(key string) string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	TTL       time.Duration
	MaxBytes  int64
}

type S3 struct {
	client   *minio.Client
	bucket   string
	ttl      time.Duration
	maxBytes int64
	base     *url.URL
}

func NewS3(o Options) (*S3, error) {
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: new client: %w", err)
	}
	if o.TTL <= 0 {
		o.TTL = time.Hour
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 10 << 20
	}
	return &S3{client: client, bucket: o.Bucket, ttl: o.TTL, maxBytes: o.MaxBytes, base: client.EndpointURL()}, nil
}

func (s *S3) PresignUpload(ctx context.Context, key, contentType string) (*PresignedUpload, error) {
	expires := time.Now().UTC().Add(s.ttl)

	policy := minio.NewPostPolicy()
	if err := policy.SetBucket(s.bucket); err != nil {
		return nil, err
	}
	if err := policy.SetKey(key); err != nil {
		return nil, err
	}
	if err := policy.SetExpires(expires); err != nil {
		return nil, err
	}
	if err := policy.SetContentLengthRange(1, s.maxBytes); err != nil {
		return nil, err
	}
	if contentType != "" {
		if err := policy.SetContentType(contentType); err != nil {
			return nil, err
		}
	}

	u, fields, err := s.client.PresignedPostPolicy(ctx, policy)
	if err != nil {
		return nil, fmt.Errorf("storage: presign %s: %w", key, err)
	}
	return &PresignedUpload{URL: u.String(), Fields: fields, Key: key, ExpiresAt: expires}, nil
}

// ObjectURL is the path-style URL of a stored object.
func (s *S3) ObjectURL(key string) string {
	if key == "" || strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	return s.base.JoinPath(s.bucket, key).String()
}
