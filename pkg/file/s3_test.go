package file_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadhustle/platform/pkg/file"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.HeadObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3Client) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.DeleteObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func newS3(t *testing.T, client file.S3Client) *file.S3Storage {
	t.Helper()
	st, err := file.NewS3Storage(context.Background(), file.S3Config{
		Bucket: "leadhustle-files",
		Region: "us-east-1",
	}, file.WithS3Client(client))
	require.NoError(t, err)
	return st
}

func TestS3Storage(t *testing.T) {
	t.Parallel()

	t.Run("save puts the object with content type", func(t *testing.T) {
		t.Parallel()
		client := new(mockS3Client)
		client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
			return *in.Bucket == "leadhustle-files" &&
				*in.Key == "imports/acc-1/leads.csv" &&
				*in.ContentType == "text/csv"
		})).Return(&s3.PutObjectOutput{}, nil)

		st := newS3(t, client)
		meta, err := st.Save(context.Background(), strings.NewReader("a,b\n"), "imports/acc-1/leads.csv", "text/csv")

		require.NoError(t, err)
		assert.Equal(t, int64(4), meta.Size)
		client.AssertExpectations(t)
	})

	t.Run("default public URL", func(t *testing.T) {
		t.Parallel()
		st := newS3(t, new(mockS3Client))
		assert.Equal(t,
			"https://leadhustle-files.s3.us-east-1.amazonaws.com/imports/a.csv",
			st.URL("imports/a.csv"))
	})

	t.Run("missing bucket rejected", func(t *testing.T) {
		t.Parallel()
		_, err := file.NewS3Storage(context.Background(), file.S3Config{Region: "us-east-1"})
		assert.ErrorIs(t, err, file.ErrInvalidConfig)
	})

	t.Run("traversal rejected before any call", func(t *testing.T) {
		t.Parallel()
		client := new(mockS3Client)
		st := newS3(t, client)
		_, err := st.Save(context.Background(), strings.NewReader("x"), "../secrets", "text/csv")
		assert.ErrorIs(t, err, file.ErrInvalidPath)
		client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything)
	})
}
