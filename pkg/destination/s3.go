package destination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
)

// S3 uploads artifacts as objects named <key prefix><artifact name>.
type S3 struct {
	cfg    config.S3Config
	client *s3.Client
	logger *slog.Logger
}

// NewS3 creates an S3 destination. Credentials are read from the key file,
// which holds "<access key>,<secret key>".
func NewS3(cfg config.S3Config, deps Deps) (*S3, error) {
	if cfg.Bucket == "" || cfg.KeyFilePath == "" || cfg.KeyPrefix == "" {
		return nil, lifecycle.NewConfigurationError("destination.s3", "key_file_path, bucket and key_prefix are required")
	}

	accessKey, secretKey, err := ReadKeyFile(cfg.KeyFilePath)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = config.DefaultS3Region
	}

	opts := s3.Options{
		Region:                     region,
		Credentials:                credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return &S3{
		cfg:    cfg,
		client: s3.New(opts),
		logger: deps.logger().With("component", "destination", "kind", config.KindS3),
	}, nil
}

// ReadKeyFile parses an "<access key>,<secret key>" file.
func ReadKeyFile(path string) (accessKey, secretKey string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", lifecycle.NewConfigurationError("destination.s3.key_file_path",
			fmt.Sprintf("cannot read key file: %v", err))
	}
	parts := strings.Split(strings.TrimSpace(string(data)), ",")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", lifecycle.NewConfigurationError("destination.s3.key_file_path",
			"key file must contain <access key>,<secret key>")
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

// Kind implements Destination.
func (d *S3) Kind() string { return config.KindS3 }

// Key returns the object key for an artifact name.
func (d *S3) Key(name string) string {
	return d.cfg.KeyPrefix + name
}

// Spec implements Destination.
func (d *S3) Spec(path string) ledger.UploadSpec {
	name := filepath.Base(path)
	return ledger.UploadSpec{
		Type:           config.KindS3,
		Command:        fmt.Sprintf("PUT s3://%s/%s < %s", d.cfg.Bucket, d.Key(name), path),
		UploadFilePath: path,
		KeyFilePath:    d.cfg.KeyFilePath,
		Bucket:         d.cfg.Bucket,
		KeyPrefix:      d.cfg.KeyPrefix,
		Region:         d.cfg.Region,
		Endpoint:       d.cfg.Endpoint,
	}
}

// Upload implements Destination.
func (d *S3) Upload(ctx context.Context, path string) error {
	return transfer(ctx, config.KindS3, path, d.exists, d.put, d.logger)
}

func (d *S3) exists(ctx context.Context, name string) (bool, error) {
	_, err := d.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.cfg.Bucket),
		Key:    aws.String(d.Key(name)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

func (d *S3) put(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	name := info.Name()
	_, err = d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.cfg.Bucket),
		Key:           aws.String(d.Key(name)),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	return err
}
