package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophxfer/internal/common"
)

type fakeS3 struct {
	objects map[string][]byte
	ranges  []string
	err     error
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	f.ranges = append(f.ranges, *in.Range)

	var start, end int64
	_, _ = fmt.Sscanf(*in.Range, "bytes=%d-%d", &start, &end)
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b[start : end+1]))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	delete(f.objects, *in.Bucket+"/"+*in.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func withFakeS3(t *testing.T, f *fakeS3) *s3.Options {
	t.Helper()

	oldLoad, oldNew := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig = oldLoad, oldNew
	})

	opts := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, _ ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		for _, fn := range optFns {
			fn(opts)
		}
		return f
	}
	return opts
}

func TestS3Storage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := &fakeS3{objects: map[string][]byte{}}
	opts := withFakeS3(t, f)

	s, err := NewS3Storage(ctx, S3Config{Region: "us-east-1", BaseEndpoint: "http://minio:9000", Bucket: "xfer"})
	require.NoError(t, err)
	assert.True(t, opts.UsePathStyle)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://minio:9000", *opts.BaseEndpoint)

	require.NoError(t, s.Put(ctx, "obj", []byte("hello world")))
	assert.Equal(t, []byte("hello world"), f.objects["xfer/obj"])

	got, err := s.GetRange(ctx, "obj", 6, 11)
	require.NoError(t, err)
	assert.Equal(t, []byte("world"), got)
	assert.Equal(t, []string{"bytes=6-10"}, f.ranges)

	got, err = s.GetRange(ctx, "obj", 3, 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Delete(ctx, "obj"))
	_, err = s.GetRange(ctx, "obj", 0, 1)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Storage_WrapsErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	withFakeS3(t, &fakeS3{objects: map[string][]byte{}, err: boom})

	s, err := NewS3Storage(ctx, S3Config{Bucket: "xfer"})
	require.NoError(t, err)

	require.ErrorIs(t, s.Put(ctx, "k", []byte("x")), boom)
	_, err = s.GetRange(ctx, "k", 0, 1)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, s.Delete(ctx, "k"), boom)
}

func TestS3Storage_ConfigError(t *testing.T) {
	boom := errors.New("no config")
	withFakeS3(t, &fakeS3{})
	loadDefaultAWSConfig = func(ctx context.Context, _ ...func(*config.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, boom
	}

	_, err := NewS3Storage(context.Background(), S3Config{})
	require.ErrorIs(t, err, boom)
}
