package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Options configures an S3 bucket or a MinIO endpoint.
type S3Options struct {
	Endpoint  string // host:port or URL; empty for AWS
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

type S3Store struct {
	s3      *s3.Client
	presign *s3.PresignClient
	bucket  string
}

func NewS3Store(ctx context.Context, o S3Options) (*S3Store, error) {
	if o.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	if o.Region == "" {
		o.Region = "us-east-1"
	}
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(o.Region)}
	if o.AccessKey != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			ep := o.Endpoint
			if !strings.Contains(ep, "://") {
				ep = "http://" + ep
			}
			opts.BaseEndpoint = aws.String(ep)
			opts.UsePathStyle = true // MinIO
		}
	})
	return &S3Store{s3: client, presign: s3.NewPresignClient(client), bucket: o.Bucket}, nil
}

func (c *S3Store) Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	// the SDK signs the payload, which needs a seekable body over plain HTTP
	if _, ok := r.(io.ReadSeeker); !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return "", err
		}
		r = bytes.NewReader(b)
	}
	in := &s3.PutObjectInput{
		Bucket: &c.bucket,
		Key:    &k,
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := c.s3.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("s3 put %s: %w", k, err)
	}
	return k, nil
}

func (c *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{Bucket: &c.bucket, Key: &k})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("s3 get %s: %w", k, err)
	}
	return out.Body, nil
}

func (c *S3Store) SignedURL(ctx context.Context, key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &c.bucket, Key: &k},
		s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
