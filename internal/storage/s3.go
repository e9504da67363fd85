package storage

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// S3Options configures an S3Backend. Endpoint is set for S3-compatible
// stores such as MinIO.
type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	BaseURL   string
}

// S3Backend stores media objects in an S3 bucket.
type S3Backend struct {
	bucket   string
	baseURL  string
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewS3Backend opens an AWS session for opts.
func NewS3Backend(opts S3Options) (*S3Backend, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}

	awsCfg := &aws.Config{Region: aws.String(opts.Region)}
	if opts.Endpoint != "" {
		awsCfg.Endpoint = aws.String(opts.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}
	if opts.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(opts.AccessKey, opts.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, err
	}
	client := s3.New(sess)

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://" + opts.Bucket + ".s3." + opts.Region + ".amazonaws.com"
		if opts.Endpoint != "" {
			baseURL = joinURL(opts.Endpoint, opts.Bucket)
		}
	}

	return &S3Backend{
		bucket:   opts.Bucket,
		baseURL:  baseURL,
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

// Save uploads r to key.
func (s *S3Backend) Save(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	if err := validKey(key); err != nil {
		return err
	}
	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := s.uploader.UploadWithContext(ctx, input)
	return err
}

// Delete removes key from the bucket.
func (s *S3Backend) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// URL returns the public address of key.
func (s *S3Backend) URL(key string) string {
	return joinURL(s.baseURL, key)
}
