package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
)

// S3API is the subset of the S3 client used by the repository.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the S3 snapshot store. Endpoint and static credentials
// are optional and mainly used with S3-compatible servers such as MinIO.
type S3Config struct {
	Bucket          string
	Key             string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// NewS3Client builds an S3 client from cfg using the default AWS credential chain
// unless static credentials are given.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

type instrumentS3 struct {
	client S3API
	bucket string
	key    string
}

var _ usecase.InstrumentRepository = (*instrumentS3)(nil)

// NewS3Repository は1つのS3オブジェクトにスナップショットを保存するInstrumentRepositoryを生成します。
func NewS3Repository(client S3API, bucket, key string) *instrumentS3 {
	return &instrumentS3{client: client, bucket: bucket, key: key}
}

// Load はオブジェクトが存在しない場合は空のリストを返します。
func (r *instrumentS3) Load(ctx context.Context) ([]entity.Instrument, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
	})
	if err != nil {
		if isNotFound(err) {
			return []entity.Instrument{}, nil
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", r.bucket, r.key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", r.bucket, r.key, err)
	}
	return decodeSnapshot(b)
}

// Save はオブジェクト全体を1回のPUTで置き換えます。
func (r *instrumentS3) Save(ctx context.Context, records []entity.Instrument) error {
	b, err := encodeSnapshot(records)
	if err != nil {
		return err
	}
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.key),
		Body:          bytes.NewReader(b),
		ContentLength: aws.Int64(int64(len(b))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", r.bucket, r.key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var status interface{ HTTPStatusCode() int }
	return errors.As(err, &status) && status.HTTPStatusCode() == http.StatusNotFound
}
