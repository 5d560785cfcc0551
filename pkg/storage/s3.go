package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"project-tracker/config"
)

// ErrEmptyKey 对象路径为空
var ErrEmptyKey = errors.New("对象路径不能为空")

// Uploader 对象存储上传接口：写入对象并返回公开访问 URL
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// S3Store 基于 S3 兼容服务（AWS S3 / MinIO / Supabase Storage S3 网关）的上传实现
type S3Store struct {
	client     *s3.Client
	bucket     string
	publicBase *url.URL
}

// NewS3Store 按配置创建 S3Store
func NewS3Store(ctx context.Context, cfg *config.StorageConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage.bucket 不能为空")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("加载 AWS 配置失败: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newS3Store(client, cfg)
}

func newS3Store(client *s3.Client, cfg *config.StorageConfig) (*S3Store, error) {
	base := cfg.PublicBaseURL
	if base == "" {
		base = cfg.Endpoint
	}
	if base == "" {
		base = fmt.Sprintf("https://s3.%s.amazonaws.com", cfg.Region)
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("解析 public_base_url 失败: %w", err)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, publicBase: u}, nil
}

// Upload 写入对象（覆盖同名对象）并返回公开 URL
func (s *S3Store) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", ErrEmptyKey
	}
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("上传对象失败: %w", err)
	}
	return s.PublicURL(key), nil
}

// PublicURL 返回 <base>/<bucket>/<key>
func (s *S3Store) PublicURL(key string) string {
	u := *s.publicBase
	u.Path = path.Join(u.Path, s.bucket, key)
	return u.String()
}
