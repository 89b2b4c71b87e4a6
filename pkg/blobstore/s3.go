package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config S3 / MinIO bağlantı ayarları.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // MinIO gibi uyumlu servisler için
	PathStyle       bool
	AccessKeyID     string // boşsa varsayılan kimlik zinciri kullanılır
	SecretAccessKey string
	PublicBaseURL   string // boşsa nesne adresi endpoint'ten üretilir

	HTTPClient *http.Client // testler için
}

// S3Store tek bir bucket üzerinde çalışır; anahtarlar doğrudan nesne anahtarıdır.
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blobstore: s3 bucket zorunlu")
	}
	region := cfg.Region
	if region == "" {
		region = "eu-central-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		if cfg.HTTPClient != nil {
			o.HTTPClient = cfg.HTTPClient
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = objectBaseURL(cfg, region)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, baseURL: base}, nil
}

func objectBaseURL(cfg S3Config, region string) string {
	if cfg.Endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, region)
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return cfg.Endpoint
	}
	if cfg.PathStyle {
		return u.JoinPath(cfg.Bucket).String()
	}
	u.Host = cfg.Bucket + "." + u.Host
	return u.String()
}

func (s *S3Store) Driver() Driver { return DriverS3 }

func (s *S3Store) URL(key string) string { return joinURL(s.baseURL, key) }

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	if _, err := CleanKey(key); err != nil {
		return Info{}, err
	}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: aws.String(key), Body: r}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.Size > 0 {
		input.ContentLength = aws.Int64(opts.Size)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = cloneMetadata(opts.Metadata)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return Info{}, err
	}
	return Info{
		Key:          key,
		Size:         opts.Size,
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
		URL:          s.URL(key),
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: aws.String(key)})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return Info{}, nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Info{}, nil, err
	}
	info := Info{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		Metadata:     out.Metadata,
		LastModified: aws.ToTime(out.LastModified),
		URL:          s.URL(key),
	}
	return info, out.Body, nil
}

// Delete S3 silmede nesnenin var olup olmadığını bildirmez; hata yoksa true döner.
func (s *S3Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: aws.String(key)}); err != nil {
		return false, err
	}
	return true, nil
}
