package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dmitrymomot/abkit/pkg/logger"
)

// S3Client is the subset of the S3 API used by S3Exporter.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the S3 exporter. Endpoint and ForcePathStyle target
// S3-compatible services such as MinIO.
type S3Config struct {
	Bucket         string `env:"AB_S3_BUCKET"`
	Region         string `env:"AB_S3_REGION" envDefault:"us-east-1"`
	AccessKeyID    string `env:"AB_S3_ACCESS_KEY_ID"`
	SecretKey      string `env:"AB_S3_SECRET_KEY"`
	Endpoint       string `env:"AB_S3_ENDPOINT"`
	ForcePathStyle bool   `env:"AB_S3_FORCE_PATH_STYLE" envDefault:"false"`
	Prefix         string `env:"AB_S3_PREFIX" envDefault:"ab-reports"`
}

// S3Exporter uploads the report as a CSV object.
type S3Exporter struct {
	client S3Client
	bucket string
	prefix string
	logger *slog.Logger
}

// S3Option configures an S3Exporter.
type S3Option func(*s3Options)

type s3Options struct {
	client        S3Client
	configOptions []func(*config.LoadOptions) error
	clientOptions []func(*s3.Options)
	logger        *slog.Logger
}

// WithS3Client sets a pre-configured client.
func WithS3Client(client S3Client) S3Option {
	return func(o *s3Options) {
		o.client = client
	}
}

// WithS3ConfigOption adds an AWS config load option.
func WithS3ConfigOption(option func(*config.LoadOptions) error) S3Option {
	return func(o *s3Options) {
		o.configOptions = append(o.configOptions, option)
	}
}

// WithS3ClientOption adds an S3 client option.
func WithS3ClientOption(option func(*s3.Options)) S3Option {
	return func(o *s3Options) {
		o.clientOptions = append(o.clientOptions, option)
	}
}

// WithS3Logger sets the logger.
func WithS3Logger(l *slog.Logger) S3Option {
	return func(o *s3Options) {
		o.logger = l
	}
}

// NewS3Exporter builds an exporter from cfg. Bucket and Region are required.
func NewS3Exporter(ctx context.Context, cfg S3Config, opts ...S3Option) (*S3Exporter, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, errors.Join(ErrInvalidConfig, errors.New("bucket and region are required"))
	}

	o := &s3Options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*config.LoadOptions) error{
			config.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}
		awsOptions = append(awsOptions, o.configOptions...)

		awsCfg, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}

		clientOptions := make([]func(*s3.Options), 0, len(o.clientOptions)+1)
		if cfg.Endpoint != "" || cfg.ForcePathStyle {
			clientOptions = append(clientOptions, func(so *s3.Options) {
				if cfg.Endpoint != "" {
					so.BaseEndpoint = aws.String(cfg.Endpoint)
				}
				so.UsePathStyle = cfg.ForcePathStyle
			})
		}
		clientOptions = append(clientOptions, o.clientOptions...)
		client = s3.NewFromConfig(awsCfg, clientOptions...)
	}

	l := o.logger
	if l == nil {
		l = logger.Discard()
	}

	return &S3Exporter{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: l,
	}, nil
}

// ObjectKey is the key the report is stored under: <prefix>/<timestamp>.csv.
func (e *S3Exporter) ObjectKey(r *Report) string {
	name := r.GeneratedAt.UTC().Format("20060102T150405Z") + ".csv"
	if e.prefix == "" {
		return name
	}
	return path.Join(e.prefix, name)
}

// Export uploads r as CSV.
func (e *S3Exporter) Export(ctx context.Context, r *Report) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		return err
	}

	key := e.ObjectKey(r)
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String("text/csv; charset=utf-8"),
		ContentLength: aws.Int64(int64(buf.Len())),
	})
	if err != nil {
		return classifyS3Error(err)
	}

	e.logger.InfoContext(ctx, "report exported to s3",
		logger.Component("report.s3"),
		slog.String("bucket", e.bucket),
		slog.String("key", key),
	)
	return nil
}

func classifyS3Error(err error) error {
	if ctxErr := classifyContextError(err); ctxErr != nil {
		return fmt.Errorf("%w: put object", ctxErr)
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: put object", ErrAccessDenied)
		case "NoSuchBucket":
			return ErrBucketNotFound
		}
	}

	return errors.Join(ErrExportFailed, err)
}
