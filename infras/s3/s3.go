package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"studio/config"
	"studio/infras/otel"
	"studio/shared/constant"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const defaultRegion = "auto"

// S3 stores public assets (room photos) in a single bucket taken from configuration.
type S3 interface {
	UploadFileBytes(ctx context.Context, directory, fileName, contentType string, fileData []byte) (url string, err error)
	DeleteFile(ctx context.Context, directory, objectName string) error
	GetObjectNameFromURL(url string) (objectName string)
}

// locator maps object keys to the URLs they are served from and back.
type locator struct {
	bucket     string
	publicBase string
	apiBase    string
}

func newLocator(cfg *config.Config) locator {
	s3Cfg := cfg.External.S3

	return locator{
		bucket:     s3Cfg.BucketName,
		publicBase: strings.TrimSuffix(s3Cfg.PublicDomain, "/"),
		apiBase:    strings.TrimSuffix(s3Cfg.APIEndpoint, "/"),
	}
}

func (l locator) url(key string) string {
	return l.publicBase + "/" + key
}

// key strips the public domain, or the API endpoint and bucket, from url. It returns an empty
// string for URLs that do not point into the bucket.
func (l locator) key(url string) string {
	var prefixes []string

	if l.publicBase != "" {
		prefixes = append(prefixes, l.publicBase+"/")
	}

	if l.apiBase != "" {
		prefixes = append(prefixes, l.apiBase+"/"+l.bucket+"/")
	}

	for _, prefix := range prefixes {
		if key, ok := strings.CutPrefix(url, prefix); ok {
			return key
		}
	}

	return constant.Empty
}

type s3Impl struct {
	client  *s3.Client
	locator locator
	otel    otel.Otel
}

func (svc *s3Impl) scope(ctx context.Context, operation, key string) (context.Context, otel.Scope) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+"."+operation)
	scope.SetAttributes(map[string]any{
		"s3.bucket": svc.locator.bucket,
		"s3.key":    key,
	})

	return ctx, scope
}

// UploadFileBytes puts fileData at directory/fileName and returns its public URL.
func (svc *s3Impl) UploadFileBytes(ctx context.Context, directory, fileName, contentType string, fileData []byte) (url string, err error) {
	key := path.Join(directory, fileName)

	ctx, scope := svc.scope(ctx, "UploadFileBytes", key)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	_, err = svc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(svc.locator.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileData),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileData))),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to upload object")

		return constant.Empty, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Debug().Str("key", key).Int("bytes", len(fileData)).Msg("object uploaded")

	return svc.locator.url(key), nil
}

func (svc *s3Impl) DeleteFile(ctx context.Context, directory, objectName string) (err error) {
	key := path.Join(directory, objectName)

	ctx, scope := svc.scope(ctx, "DeleteFile", key)
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	_, err = svc.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(svc.locator.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to delete object")

		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

func (svc *s3Impl) GetObjectNameFromURL(url string) string {
	return svc.locator.key(url)
}

// New builds a path style client so any S3 compatible store (R2, MinIO) can serve as backend.
func New(cfg *config.Config, otl otel.Otel) S3 {
	s3Cfg := cfg.External.S3

	region := s3Cfg.Region
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s3Cfg.AccessKey, s3Cfg.SecretKey, "")),
		awsConfig.WithRegion(region),
	)
	if err != nil {
		log.Err(err).Msg("Error loading AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s3Cfg.APIEndpoint != "" {
			o.BaseEndpoint = aws.String(s3Cfg.APIEndpoint)
		}

		o.UsePathStyle = true
	})

	return &s3Impl{
		client:  client,
		locator: newLocator(cfg),
		otel:    otl,
	}
}
