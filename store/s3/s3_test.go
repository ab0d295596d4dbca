package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/msamogh/nonechucks/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStore_Get(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", "samples/")

	t.Run("Success", func(t *testing.T) {
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Bucket == "test-bucket" && *input.Key == "samples/0001.json"
		})).Return(&s3.GetObjectOutput{
			Body: io.NopCloser(strings.NewReader(`{"id":1}`)),
		}, nil).Once()

		payload, err := s.Get(context.Background(), "0001.json")
		assert.NoError(t, err)
		assert.Equal(t, []byte(`{"id":1}`), payload)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Key == "samples/missing.json"
		})).Return(nil, &types.NoSuchKey{}).Once()

		_, err := s.Get(context.Background(), "missing.json")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("OtherError", func(t *testing.T) {
		boom := errors.New("throttled")
		mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
			return *input.Key == "samples/0002.json"
		})).Return(nil, boom).Once()

		_, err := s.Get(context.Background(), "0002.json")
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, store.ErrNotFound))
	})

	mockClient.AssertExpectations(t)
}

func TestStore_EmptyPrefix(t *testing.T) {
	mockClient := new(MockS3Client)
	s := NewStore(mockClient, "test-bucket", "")

	mockClient.On("GetObject", mock.Anything, mock.MatchedBy(func(input *s3.GetObjectInput) bool {
		return *input.Key == "0001.json"
	})).Return(&s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader("x")),
	}, nil).Once()

	_, err := s.Get(context.Background(), "0001.json")
	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}
