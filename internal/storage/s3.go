package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures the S3 backend. Unset values fall back to the standard
// AWS config and credential chain.
type S3Config struct {
	Bucket  string
	Region  string
	Profile string
	// PublicBaseURL prefixes returned object URLs, e.g. a CDN in front of
	// the bucket. Empty yields s3://bucket/key.
	PublicBaseURL string
	// UsePathStyle forces path-style addressing (useful for S3-compatible providers).
	UsePathStyle bool
}

// S3 stores objects in an S3 bucket.
type S3 struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3FromClient(c, cfg.Bucket, cfg.PublicBaseURL), nil
}

func NewS3FromClient(client *s3.Client, bucket, publicBaseURL string) *S3 {
	return &S3{client: client, bucket: bucket, publicURL: publicBaseURL}
}

func (s *S3) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	in := &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		CacheControl: aws.String("max-age=" + supabaseCacheControl),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if s.publicURL == "" {
		return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
	}
	return joinURL(s.publicURL, key), nil
}

// List pages through ListObjectsV2 with a "/" delimiter, so subfolders come
// back as folder entries.
func (s *S3) List(ctx context.Context, prefix string) ([]Entry, error) {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	var entries []Entry
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			entries = append(entries, Entry{
				Name:     strings.TrimSuffix(aws.ToString(cp.Prefix), "/"),
				IsFolder: true,
			})
		}
		for _, obj := range page.Contents {
			e := Entry{Name: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				e.CreatedAt = *obj.LastModified
			}
			entries = append(entries, e)
		}
	}
	return entries, nil
}
