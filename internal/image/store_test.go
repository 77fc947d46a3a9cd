package image

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStoreRefusesOverwrite(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	ctx := context.Background()

	_, err := store.Put(ctx, "a.png", []byte("first"), "image/png")
	require.NoError(t, err)

	_, err = store.Put(ctx, "a.png", []byte("second"), "image/png")
	require.ErrorIs(t, err, ErrExists)

	f, err := store.Open("a.png")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "first", string(body))
}

func TestDiskStoreRejectsPathNames(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	for _, name := range []string{"", ".", "..", "../escape.png", "dir/a.png", `dir\a.png`} {
		_, err := store.Put(context.Background(), name, []byte("x"), "image/png")
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestDiskStoreListSkipsTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(dir)
	ctx := context.Background()

	_, err := store.Put(ctx, "a.png", []byte("abc"), "image/png")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"+tmpSuffix), []byte("partial"), 0o644))

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "a.png", objects[0].Name)
	assert.Equal(t, int64(3), objects[0].Size)
}

func TestDiskStoreMissingDirectory(t *testing.T) {
	store := NewDiskStore(filepath.Join(t.TempDir(), "absent"))

	objects, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, objects)

	_, err = store.Open("a.png")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, store.Remove(context.Background(), "a.png"))
}

func TestMinIOStorePutAndList(t *testing.T) {
	client := newFakeObjectClient()
	store := NewMinIOStore(client, "homelist", "/images/")
	ctx := context.Background()

	location, err := store.Put(ctx, "1_abc.png", []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "homelist/images/1_abc.png", location)
	assert.Equal(t, "image/png", client.contentTypes["images/1_abc.png"])

	_, err = store.Put(ctx, "1_abc.png", []byte("img"), "image/png")
	require.ErrorIs(t, err, ErrExists)

	objects, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, objects, 1)
	assert.Equal(t, "1_abc.png", objects[0].Name)

	require.NoError(t, store.Remove(ctx, "1_abc.png"))
	_, ok := client.objects["images/1_abc.png"]
	assert.False(t, ok)
}

func TestMinIOStoreListError(t *testing.T) {
	client := newFakeObjectClient()
	client.listErr = errors.New("connection reset")
	store := NewMinIOStore(client, "homelist", "images")

	_, err := store.List(context.Background())
	require.Error(t, err)
}

type fakeObjectClient struct {
	objects      map[string][]byte
	contentTypes map[string]string
	listErr      error
}

func newFakeObjectClient() *fakeObjectClient {
	return &fakeObjectClient{
		objects:      make(map[string][]byte),
		contentTypes: make(map[string]string),
	}
}

func (f *fakeObjectClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = data
	f.contentTypes[objectName] = opts.ContentType
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjectClient) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjectClient) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	delete(f.objects, objectName)
	return nil
}

func (f *fakeObjectClient) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(f.objects)+1)
	if f.listErr != nil {
		ch <- minio.ObjectInfo{Err: f.listErr}
	} else {
		for key, data := range f.objects {
			ch <- minio.ObjectInfo{Key: key, Size: int64(len(data))}
		}
	}
	close(ch)
	return ch
}
