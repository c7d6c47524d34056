package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/config"
)

// fakeS3 keeps objects in a map and records calls.
type fakeS3 struct {
	objects      map[string][]byte
	bucketExists bool
	headErr      error
	createErr    error
	putErr       error
	pageSize     int
	deleteCalls  [][]string
	failKeys     map[string]bool
	created      *s3.CreateBucketInput
}

func newFake() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, bucketExists: true, pageSize: 1000, failKeys: map[string]bool{}}
}

func (f *fakeS3) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = in
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	var batch []string
	out := &s3.DeleteObjectsOutput{}
	for _, o := range in.Delete.Objects {
		k := aws.ToString(o.Key)
		batch = append(batch, k)
		if f.failKeys[k] {
			out.Errors = append(out.Errors, types.Error{Key: aws.String(k), Message: aws.String("AccessDenied")})
			continue
		}
		delete(f.objects, k)
	}
	f.deleteCalls = append(f.deleteCalls, batch)
	return out, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	// Stable order so pagination is deterministic.
	sortStrings(keys)

	start := 0
	if in.ContinuationToken != nil {
		fmt.Sscanf(*in.ContinuationToken, "%d", &start)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{}
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(fmt.Sprint(end))
	}
	return out, nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

type fakePresigner struct {
	err     error
	expires time.Duration
}

func (p *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if p.err != nil {
		return nil, p.err
	}
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	p.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "http://minio.test/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key) + "?X-Amz-Signature=abc",
		Method: "GET",
	}, nil
}

func newStore(f *fakeS3, p *fakePresigner) *Store {
	return NewWithClient(f, p, "clockwork-images", "us-east-1", logging.Nop())
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("7d5f8e2a-1b3c-4d6e-9f0a-2b4c6d8e0f12")

	assert.Equal(t, "1/10/5_7d5f8e2a-1b3c-4d6e-9f0a-2b4c6d8e0f12.png", ImageKey(1, 10, 5, id, "png"))
	assert.Equal(t, "1/10/", SessionPrefix(1, 10))
	assert.Equal(t, "1/10/5_", LapPrefix(1, 10, 5))
	assert.True(t, strings.HasPrefix(ImageKey(1, 10, 5, id, "png"), LapPrefix(1, 10, 5)))
	assert.False(t, strings.HasPrefix(ImageKey(1, 10, 51, id, "png"), LapPrefix(1, 10, 5)))
}

func TestEnsureBucket(t *testing.T) {
	t.Run("exists", func(t *testing.T) {
		f := newFake()
		require.NoError(t, newStore(f, &fakePresigner{}).EnsureBucket(context.Background()))
		assert.Nil(t, f.created)
	})

	t.Run("missing is created", func(t *testing.T) {
		f := newFake()
		f.bucketExists = false
		require.NoError(t, newStore(f, &fakePresigner{}).EnsureBucket(context.Background()))
		require.NotNil(t, f.created)
		assert.Equal(t, "clockwork-images", aws.ToString(f.created.Bucket))
		assert.Nil(t, f.created.CreateBucketConfiguration)
	})

	t.Run("generic api not found code", func(t *testing.T) {
		f := newFake()
		f.headErr = &smithy.GenericAPIError{Code: "NoSuchBucket"}
		require.NoError(t, newStore(f, &fakePresigner{}).EnsureBucket(context.Background()))
		assert.NotNil(t, f.created)
	})

	t.Run("non us-east-1 sets location", func(t *testing.T) {
		f := newFake()
		f.bucketExists = false
		s := NewWithClient(f, &fakePresigner{}, "b", "eu-west-1", logging.Nop())
		require.NoError(t, s.EnsureBucket(context.Background()))
		require.NotNil(t, f.created.CreateBucketConfiguration)
		assert.Equal(t, types.BucketLocationConstraint("eu-west-1"), f.created.CreateBucketConfiguration.LocationConstraint)
	})

	t.Run("already owned is fine", func(t *testing.T) {
		f := newFake()
		f.bucketExists = false
		f.createErr = &types.BucketAlreadyOwnedByYou{}
		require.NoError(t, newStore(f, &fakePresigner{}).EnsureBucket(context.Background()))
	})

	t.Run("head failure is unavailable", func(t *testing.T) {
		f := newFake()
		f.headErr = errors.New("connection refused")
		err := newStore(f, &fakePresigner{}).EnsureBucket(context.Background())
		require.ErrorIs(t, err, common.ErrStorageUnavailable)
		assert.Nil(t, f.created)
	})
}

func TestUploadListDelete(t *testing.T) {
	f := newFake()
	s := newStore(f, &fakePresigner{})
	ctx := context.Background()

	for _, k := range []string{"1/10/5_a.png", "1/10/6_b.png", "1/11/7_c.png"} {
		require.NoError(t, s.Upload(ctx, k, bytes.NewReader([]byte(k)), int64(len(k)), "image/png"))
	}
	assert.Equal(t, []byte("1/10/5_a.png"), f.objects["1/10/5_a.png"])

	keys, err := s.List(ctx, SessionPrefix(1, 10))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1/10/5_a.png", "1/10/6_b.png"}, keys)

	require.NoError(t, s.Delete(ctx, "1/11/7_c.png"))
	assert.NotContains(t, f.objects, "1/11/7_c.png")

	n, err := s.DeletePrefix(ctx, LapPrefix(1, 10, 5))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, f.objects, "1/10/6_b.png")
}

func TestUpload_Error(t *testing.T) {
	f := newFake()
	f.putErr = errors.New("timeout")

	err := newStore(f, &fakePresigner{}).Upload(context.Background(), "k", strings.NewReader("x"), 1, "image/png")
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "timeout")
}

func TestList_Paginates(t *testing.T) {
	f := newFake()
	f.pageSize = 2
	for i := range 5 {
		f.objects[fmt.Sprintf("1/10/%d_x.png", i)] = nil
	}

	keys, err := newStore(f, &fakePresigner{}).List(context.Background(), "1/10/")
	require.NoError(t, err)
	assert.Len(t, keys, 5)
}

func TestDeleteBatch(t *testing.T) {
	t.Run("empty is a no-op", func(t *testing.T) {
		f := newFake()
		require.NoError(t, newStore(f, &fakePresigner{}).DeleteBatch(context.Background(), nil))
		assert.Empty(t, f.deleteCalls)
	})

	t.Run("chunks of 1000", func(t *testing.T) {
		f := newFake()
		keys := make([]string, 2500)
		for i := range keys {
			keys[i] = fmt.Sprintf("k%d", i)
			f.objects[keys[i]] = nil
		}

		require.NoError(t, newStore(f, &fakePresigner{}).DeleteBatch(context.Background(), keys))
		require.Len(t, f.deleteCalls, 3)
		assert.Len(t, f.deleteCalls[0], 1000)
		assert.Len(t, f.deleteCalls[1], 1000)
		assert.Len(t, f.deleteCalls[2], 500)
		assert.Empty(t, f.objects)
	})

	t.Run("per key errors are reported", func(t *testing.T) {
		f := newFake()
		f.failKeys["bad"] = true
		err := newStore(f, &fakePresigner{}).DeleteBatch(context.Background(), []string{"ok", "bad"})
		require.ErrorIs(t, err, common.ErrStorageUnavailable)
		assert.Contains(t, err.Error(), "delete bad: AccessDenied")
	})
}

func TestPresignGet(t *testing.T) {
	p := &fakePresigner{}
	s := newStore(newFake(), p)

	url, err := s.PresignGet(context.Background(), "1/10/5_a.png", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "http://minio.test/clockwork-images/1/10/5_a.png?X-Amz-Signature=abc", url)
	assert.Equal(t, time.Hour, p.expires)

	p.err = errors.New("no creds")
	_, err = s.PresignGet(context.Background(), "k", time.Hour)
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestNew_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{Region: lo.Region}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	var cfg config.Config
	cfg.LoadDefaults()

	s, err := New(context.Background(), &cfg, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, "clockwork-images", s.Bucket())
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://localhost:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNew_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("bad profile")
	}

	var cfg config.Config
	cfg.LoadDefaults()
	_, err := New(context.Background(), &cfg, logging.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad profile")
}
