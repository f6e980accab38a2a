package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/campfolio/service/internal/settings"
)

// cacheControl is applied to every cloud object; stored names are never reused.
const cacheControl = "public, max-age=31536000"

// objectAPI is the subset of *minio.Client used by CloudStorage.
type objectAPI interface {
	PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

// CloudCredentials is the bucket/region/credential tuple for the object store.
type CloudCredentials struct {
	SecretID  string
	SecretKey string
	Bucket    string
	Region    string
}

// CredentialsFrom extracts the cloud tuple from a settings snapshot.
func CredentialsFrom(s settings.Snapshot) CloudCredentials {
	return CloudCredentials{
		SecretID:  strings.TrimSpace(s.COSSecretID),
		SecretKey: strings.TrimSpace(s.COSSecretKey),
		Bucket:    strings.TrimSpace(s.COSBucket),
		Region:    strings.TrimSpace(s.COSRegion),
	}
}

// CloudStorage implements Backend on COS through its S3-compatible API.
type CloudStorage struct {
	client     objectAPI
	bucket     string
	publicHost string
}

// NewCloudStorage creates a client for the bucket described by cred. The
// endpoint is "cos.<region>.<endpointSuffix>" with virtual-host bucket lookup.
func NewCloudStorage(cred CloudCredentials, endpointSuffix string) (*CloudStorage, error) {
	endpoint := fmt.Sprintf("cos.%s.%s", cred.Region, endpointSuffix)
	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cred.SecretID, cred.SecretKey, ""),
		Secure:       true,
		Region:       cred.Region,
		BucketLookup: minio.BucketLookupDNS,
	})
	if err != nil {
		return nil, fmt.Errorf("create cos client: %w", err)
	}
	return newCloudStorage(client, cred.Bucket, cred.Bucket+"."+endpoint), nil
}

func newCloudStorage(client objectAPI, bucket, publicHost string) *CloudStorage {
	return &CloudStorage{client: client, bucket: bucket, publicHost: publicHost}
}

func (c *CloudStorage) Type() settings.StorageType { return settings.StorageCloud }

// Put uploads data as a publicly readable object and returns its https URL.
func (c *CloudStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		return "", fmt.Errorf("put object %q: %w", key, err)
	}
	return c.PublicURL(key), nil
}

// Delete removes the object at key from the bucket.
func (c *CloudStorage) Delete(ctx context.Context, key string) error {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the browser-accessible URL for the given key.
func (c *CloudStorage) PublicURL(key string) string {
	return ensureHTTPS(strings.TrimRight(c.publicHost, "/") + "/" + strings.TrimLeft(key, "/"))
}
