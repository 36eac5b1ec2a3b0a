package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"entrepreneur-connect-backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "aws virtual host",
			cfg:  config.StorageConfig{Bucket: "media", Region: "eu-west-3"},
			want: "https://media.s3.eu-west-3.amazonaws.com",
		},
		{
			name: "custom endpoint uses path style",
			cfg:  config.StorageConfig{Bucket: "media", Endpoint: "http://localhost:9000/"},
			want: "http://localhost:9000/media",
		},
		{
			name: "explicit public base wins",
			cfg:  config.StorageConfig{Bucket: "media", Endpoint: "http://minio:9000", PublicBaseURL: "https://cdn.example.com/"},
			want: "https://cdn.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, publicBaseURL(tt.cfg))
		})
	}
}

func TestKeyFromURL(t *testing.T) {
	base := "https://media.s3.eu-west-3.amazonaws.com"

	key, ok := keyFromURL(base, base+"/avatars/u1/u1-1700000000000.png")
	require.True(t, ok)
	assert.Equal(t, "avatars/u1/u1-1700000000000.png", key)

	key, ok = keyFromURL(base, base+"/covers/u1/a%20b.jpg?v=2")
	require.True(t, ok)
	assert.Equal(t, "covers/u1/a b.jpg", key)

	_, ok = keyFromURL(base, "https://elsewhere.example.com/avatars/u1.png")
	assert.False(t, ok)

	_, ok = keyFromURL(base, base+"/")
	assert.False(t, ok)
}

func TestPresignPutWithStaticCredentials(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Region:    "eu-west-3",
		Bucket:    "media",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		Endpoint:  "http://localhost:9000",
	})
	require.NoError(t, err)

	u, err := store.PresignPut(context.Background(), "avatars/u1/u1-1.png", "image/png", 1024, 5*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u, "http://localhost:9000/media/avatars/u1/u1-1.png?"), u)
	assert.Contains(t, u, "X-Amz-Expires=300")

	assert.Equal(t, "http://localhost:9000/media/avatars/u1/u1-1.png", store.PublicURL("avatars/u1/u1-1.png"))
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), config.StorageConfig{Region: "eu-west-3"})
	assert.Error(t, err)
}
