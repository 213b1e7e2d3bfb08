package s3archive

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPutter struct {
	input *s3.PutObjectInput
	body  []byte
}

func (r *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.input = in
	r.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2025, 2, 7, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, "webhooks/paghiper/2025/02/08/evt-1.json", ObjectKey("paghiper", "evt-1", at))
}

func TestArchive(t *testing.T) {
	putter := &recordingPutter{}
	c := &Client{s3Client: putter, bucket: "archive"}

	key, err := c.Archive(context.Background(), "paghiper", "hash:abc", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), []byte(`{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, "webhooks/paghiper/2025/01/02/hash:abc.json", key)
	assert.Equal(t, "archive", aws.ToString(putter.input.Bucket))
	assert.Equal(t, key, aws.ToString(putter.input.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))
	assert.Equal(t, `{"a":1}`, string(putter.body))
}

func TestLoadConfigRequiresBucketWhenEnabled(t *testing.T) {
	t.Setenv("S3_ARCHIVE_ENABLED", "true")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET_NAME", "")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("S3_BUCKET_NAME", "archive")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
}
