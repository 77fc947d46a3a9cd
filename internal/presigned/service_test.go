package presigned

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinio struct {
	bucket string
	object string
	expiry time.Duration
	params url.Values
	err    error
}

func (m *fakeMinio) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration, params url.Values) (*url.URL, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.bucket, m.object, m.expiry, m.params = bucket, object, expiry, params
	return url.Parse("https://minio.example.com/" + bucket + "/" + object + "?X-Amz-Signature=abc")
}

func TestGenerateGetURL(t *testing.T) {
	client := &fakeMinio{}
	svc := NewService(client, time.Minute)

	got, err := svc.GenerateGetURL(context.Background(), "homelist", "images/1700000000000_0011223344556677.png")
	require.NoError(t, err)

	assert.Contains(t, got, "X-Amz-Signature")
	assert.Equal(t, "homelist", client.bucket)
	assert.Equal(t, time.Minute, client.expiry)
	assert.Equal(t, `inline; filename="1700000000000_0011223344556677.png"`, client.params.Get("response-content-disposition"))
}

func TestGenerateGetURLDefaultsTTL(t *testing.T) {
	svc := NewService(&fakeMinio{}, 0)
	assert.Equal(t, DefaultTTL, svc.TTL())
}

func TestGenerateGetURLErrors(t *testing.T) {
	svc := NewService(&fakeMinio{err: errors.New("boom")}, time.Minute)

	_, err := svc.GenerateGetURL(context.Background(), "homelist", "")
	require.ErrorIs(t, err, ErrEmptyObject)

	_, err = svc.GenerateGetURL(context.Background(), "homelist", "images/a.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "presign object")
}
