package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
)

// objectClient is the subset of *minio.Client used by MinIOStore.
type objectClient interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// MinIOStore keeps images as objects under a prefix of one bucket.
type MinIOStore struct {
	client objectClient
	bucket string
	prefix string
}

// NewMinIOStore constructs an adapter. prefix is prepended to every object key (e.g. "images").
func NewMinIOStore(client objectClient, bucket, prefix string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Bucket returns the bucket images are written to.
func (s *MinIOStore) Bucket() string {
	return s.bucket
}

// Key returns the object key for an image name.
func (s *MinIOStore) Key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *MinIOStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := s.Key(name)

	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return "", ErrExists
	}
	if !isNoSuchKey(err) {
		return "", fmt.Errorf("stat object: %w", err)
	}

	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return "", fmt.Errorf("store object: %w", err)
	}
	return path.Join(s.bucket, key), nil
}

func (s *MinIOStore) Remove(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.Key(name), minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object: %w", err)
	}
	return nil
}

func (s *MinIOStore) List(ctx context.Context) ([]Object, error) {
	listPrefix := s.prefix
	if listPrefix != "" {
		listPrefix += "/"
	}

	var objects []Object
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: listPrefix}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list objects: %w", info.Err)
		}
		objects = append(objects, Object{
			Name:    path.Base(info.Key),
			Size:    info.Size,
			ModTime: info.LastModified,
		})
	}
	return objects, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}
