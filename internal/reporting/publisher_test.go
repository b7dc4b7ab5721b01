package reporting

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	bucket string
	key    string
	body   []byte
	err    error
}

func (f *fakeUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(input.Bucket)
	f.key = aws.ToString(input.Key)
	body, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &manager.UploadOutput{Key: input.Key}, nil
}

func writeReport(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "output-2024-3-8.txt")
	require.NoError(t, os.WriteFile(p, []byte("Finance,000001\n"), 0644))
	return p
}

func TestS3Publisher_Publish(t *testing.T) {
	up := &fakeUploader{}
	pub := NewS3PublisherWithUploader(up, "capm-reports", "daily", zerolog.New(nil).Level(zerolog.Disabled))

	location, err := pub.Publish(context.Background(), writeReport(t))
	require.NoError(t, err)

	assert.Equal(t, "s3://capm-reports/daily/output-2024-3-8.txt", location)
	assert.Equal(t, "capm-reports", up.bucket)
	assert.Equal(t, "daily/output-2024-3-8.txt", up.key)
	assert.Equal(t, "Finance,000001\n", string(up.body))
}

func TestS3Publisher_ObjectKeyWithoutPrefix(t *testing.T) {
	pub := NewS3PublisherWithUploader(&fakeUploader{}, "b", "", zerolog.New(nil).Level(zerolog.Disabled))
	assert.Equal(t, "output-2024-3-8.txt", pub.ObjectKey("/var/reports/output-2024-3-8.txt"))
}

func TestS3Publisher_Errors(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)

	_, err := NewS3PublisherWithUploader(&fakeUploader{}, "b", "", log).Publish(context.Background(), "/does/not/exist.txt")
	assert.Error(t, err)

	up := &fakeUploader{err: errors.New("access denied")}
	_, err = NewS3PublisherWithUploader(up, "b", "", log).Publish(context.Background(), writeReport(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNoopPublisher(t *testing.T) {
	location, err := NoopPublisher{}.Publish(context.Background(), "anything")
	assert.NoError(t, err)
	assert.Empty(t, location)
}
