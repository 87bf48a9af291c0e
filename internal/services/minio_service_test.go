package services

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinioService_PresignIsOffline(t *testing.T) {
	svc, err := NewMinioService("localhost:9000", "minioadmin", "minioadmin", "us-east-1", false)
	require.NoError(t, err)

	raw, err := svc.GetPresignedURL(context.Background(), "signatures", "2026/03/abc.png", 10*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.True(t, strings.HasPrefix(u.Path, "/signatures/2026/03/abc.png"))
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestParseObjectURL(t *testing.T) {
	tests := []struct {
		in      string
		bucket  string
		key     string
		wantErr bool
	}{
		{in: "s3://signatures/a/b.png", bucket: "signatures", key: "a/b.png"},
		{in: ObjectURL("sig", "x.png"), bucket: "sig", key: "x.png"},
		{in: "s3://signatures", wantErr: true},
		{in: "s3:///key.png", wantErr: true},
		{in: "https://example.com/a.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, err := ParseObjectURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}
