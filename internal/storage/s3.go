package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/deusflow/musive/internal/digest"
	"github.com/deusflow/musive/internal/news"
)

// S3Config selects the bucket; Region empty falls back to the AWS chain.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	UsePathStyle bool
}

type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive uploads the same documents as FileArchive under Prefix.
type S3Archive struct {
	client objectPutter
	bucket string
	prefix string
	loc    *time.Location
}

func NewS3Archive(ctx context.Context, cfg S3Config, loc *time.Location) (*S3Archive, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3Archive(client, cfg, loc), nil
}

func newS3Archive(client objectPutter, cfg S3Config, loc *time.Location) *S3Archive {
	prefix := cfg.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archive{client: client, bucket: cfg.Bucket, prefix: prefix, loc: loc}
}

func (a *S3Archive) Name() string { return "s3" }

func (a *S3Archive) Deliver(ctx context.Context, d news.Digest) error {
	jsonDoc, htmlDoc, err := renderFiles(d, a.loc)
	if err != nil {
		return err
	}

	objects := []struct {
		ext         string
		body        []byte
		contentType string
	}{
		{"json", jsonDoc, "application/json"},
		{"html", htmlDoc, "text/html; charset=utf-8"},
	}
	for _, obj := range objects {
		key := a.prefix + DatedName(d, a.loc, obj.ext)
		_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(a.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(obj.body),
			ContentType: aws.String(obj.contentType),
		})
		if err != nil {
			return fmt.Errorf("failed to put s3://%s/%s: %w", a.bucket, key, err)
		}
	}
	return nil
}

var _ digest.Sink = (*S3Archive)(nil)
