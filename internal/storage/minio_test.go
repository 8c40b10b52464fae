package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fdalert/internal/config"
)

func TestPublicBaseURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.MinIOConfig
		want string
	}{
		{"derived http", config.MinIOConfig{Endpoint: "minio:9000", Bucket: "evidence"}, "http://minio:9000/evidence"},
		{"derived https", config.MinIOConfig{Endpoint: "s3.local", Bucket: "evidence", UseSSL: true}, "https://s3.local/evidence"},
		{"explicit", config.MinIOConfig{Endpoint: "minio:9000", Bucket: "evidence", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com/evidence"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PublicBaseURL(tc.cfg))
		})
	}
}

func TestPublicURL(t *testing.T) {
	store, err := NewMinIOStore(config.MinIOConfig{Endpoint: "minio:9000", Bucket: "evidence", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)

	assert.Equal(t, "http://minio:9000/evidence/owner/cam/1.jpg", store.PublicURL("owner/cam/1.jpg"))
	assert.Equal(t, "http://minio:9000/evidence/owner/cam/1.jpg", store.PublicURL("/owner/cam/1.jpg"))
}
