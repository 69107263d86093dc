package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/research-camera/internal/domain/kv"
)

// Minio stores each key as one JSON object in a bucket.
type Minio struct {
	client     *minio.Client
	bucketName string
	prefix     string
}

// MinioOptions koneksi MinIO
type MinioOptions struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// NewMinio connects to MinIO and creates the bucket when it is missing.
func NewMinio(ctx context.Context, opt MinioOptions) (*Minio, error) {
	cli, err := minio.New(opt.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKey, opt.SecretKey, ""),
		Secure: opt.UseSSL,
		Region: opt.Region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, opt.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opt.Bucket, minio.MakeBucketOptions{Region: opt.Region}); err != nil {
			return nil, err
		}
	}

	return &Minio{client: cli, bucketName: opt.Bucket, prefix: opt.Prefix}, nil
}

func (s *Minio) objectName(key string) string { return s.prefix + key + ".json" }

func (s *Minio) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, s.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioErr(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioErr(err)
	}
	return data, nil
}

func (s *Minio) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.client.PutObject(ctx, s.bucketName, s.objectName(key),
		bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	return err
}

func (s *Minio) Delete(ctx context.Context, key string) error {
	name := s.objectName(key)
	if _, err := s.client.StatObject(ctx, s.bucketName, name, minio.StatObjectOptions{}); err != nil {
		return mapMinioErr(err)
	}
	return s.client.RemoveObject(ctx, s.bucketName, name, minio.RemoveObjectOptions{})
}

func (s *Minio) Keys(ctx context.Context, prefix string) ([]string, error) {
	var out []string
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    s.prefix + prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		key := strings.TrimSuffix(strings.TrimPrefix(obj.Key, s.prefix), ".json")
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

// Ping checks the bucket is reachable.
func (s *Minio) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

func mapMinioErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return kv.ErrNotFound
	}
	return err
}
