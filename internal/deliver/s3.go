package deliver

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PutObjectAPI is the part of the S3 client the archive sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Sink archives every digest as a text object in a bucket.
type S3Sink struct {
	Client PutObjectAPI
	Bucket string
	NewID  func() string
}

// NewS3Sink builds a sink against AWS S3 or any S3-compatible endpoint.
// Static credentials are used when an access key is set; otherwise the
// default AWS credential chain applies.
func NewS3Sink(ctx context.Context, o S3Options) (*S3Sink, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
			so.UsePathStyle = true
		}
	})
	return &S3Sink{Client: client, Bucket: o.Bucket}, nil
}

// Key is the object key for a digest: digests/YYYY/MM/DD/<id>.txt.
func (s *S3Sink) Key(d Digest) string {
	id := uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	t := d.CreatedAt.UTC()
	return fmt.Sprintf("digests/%04d/%02d/%02d/%s.txt", t.Year(), t.Month(), t.Day(), id)
}

func (s *S3Sink) Deliver(ctx context.Context, d Digest) error {
	key := s.Key(d)
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(d.Text),
		ContentType: aws.String("text/plain; charset=utf-8"),
		Metadata: map[string]string{
			"to": strings.Join(d.To, ","),
			"cc": strings.Join(d.Cc, ","),
		},
	})
	if err != nil {
		return fmt.Errorf("put digest %s/%s: %w", s.Bucket, key, err)
	}
	return nil
}
