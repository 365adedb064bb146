package deliver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"bulletbot/internal/logging"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func sampleDigest() Digest {
	return Digest{
		Text:      "[Jane Doe]\n  - shipped it",
		To:        []string{"boss@example.com"},
		Cc:        []string{"a@example.com", "b@example.com"},
		CreatedAt: time.Date(2024, 3, 7, 23, 30, 0, 0, time.FixedZone("X", -2*3600)),
	}
}

func TestS3Sink_Deliver(t *testing.T) {
	p := &fakePutter{}
	sink := &S3Sink{Client: p, Bucket: "bullets", NewID: func() string { return "abc" }}

	require.NoError(t, sink.Deliver(context.Background(), sampleDigest()))

	require.NotNil(t, p.in)
	assert.Equal(t, "bullets", *p.in.Bucket)
	assert.Equal(t, "digests/2024/03/08/abc.txt", *p.in.Key)
	assert.Equal(t, "text/plain; charset=utf-8", *p.in.ContentType)
	assert.Equal(t, "[Jane Doe]\n  - shipped it", p.body)
	assert.Equal(t, "boss@example.com", p.in.Metadata["to"])
	assert.Equal(t, "a@example.com,b@example.com", p.in.Metadata["cc"])
}

func TestS3Sink_DefaultKeyIsUnique(t *testing.T) {
	sink := &S3Sink{Bucket: "bullets"}
	d := sampleDigest()
	assert.NotEqual(t, sink.Key(d), sink.Key(d))
	assert.Regexp(t, `^digests/2024/03/08/[0-9a-f-]{36}\.txt$`, sink.Key(d))
}

func TestS3Sink_WrapsError(t *testing.T) {
	boom := errors.New("access denied")
	sink := &S3Sink{Client: &fakePutter{err: boom}, Bucket: "bullets", NewID: func() string { return "x" }}

	err := sink.Deliver(context.Background(), sampleDigest())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "bullets/digests/2024/03/08/x.txt")
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := LogSink{Log: logging.New(&buf, "json", "info")}

	require.NoError(t, sink.Deliver(context.Background(), sampleDigest()))
	assert.Contains(t, buf.String(), `"msg":"digest"`)
	assert.Contains(t, buf.String(), "shipped it")
	assert.Contains(t, buf.String(), "boss@example.com")
}

type sinkFunc func(ctx context.Context, d Digest) error

func (f sinkFunc) Deliver(ctx context.Context, d Digest) error { return f(ctx, d) }

func TestMulti_TriesEverySink(t *testing.T) {
	var calls int
	ok := sinkFunc(func(context.Context, Digest) error { calls++; return nil })
	boom := errors.New("boom")
	bad := sinkFunc(func(context.Context, Digest) error { calls++; return boom })

	err := Multi{bad, ok}.Deliver(context.Background(), sampleDigest())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)

	assert.NoError(t, Multi{ok}.Deliver(context.Background(), sampleDigest()))
	assert.NoError(t, Multi(nil).Deliver(context.Background(), sampleDigest()))
}
