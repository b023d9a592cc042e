package loader

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"counterviz/internal/config"
	apierrors "counterviz/internal/errors"
	"counterviz/internal/files"
)

// ObjectAPI is the part of the S3 client a bucket source needs.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source serves reports stored under a bucket prefix.
type S3Source struct {
	client ObjectAPI
	bucket string
	prefix string
}

// NewS3Source creates a source over bucket/prefix.
func NewS3Source(client ObjectAPI, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client from the storage configuration. Static keys
// are used when set, otherwise the default credential chain applies.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load AWS config", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			// S3-compatible stores such as MinIO.
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Name returns the s3:// URL of the source.
func (s *S3Source) Name() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

// List pages through the prefix and returns the supported reports by name.
func (s *S3Source) List(ctx context.Context) ([]ReportRef, error) {
	ctx, cancel := context.WithTimeout(ctx, config.S3ListTimeout)
	defer cancel()

	input := &s3.ListObjectsV2Input{Bucket: aws.String(s.bucket)}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	var refs []ReportRef
	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apierrors.NewStorageError("cannot list report bucket", err).
				WithContext("bucket", s.bucket).
				WithContext("prefix", s.prefix)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") || !files.IsReportFile(key) {
				continue
			}
			refs = append(refs, ReportRef{
				Key:     key,
				Name:    path.Base(key),
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Open fetches the object behind ref.
func (s *S3Source) Open(ctx context.Context, ref ReportRef) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return nil, apierrors.NewStorageError("cannot fetch report", err).
			WithContext("bucket", s.bucket).
			WithContext("key", ref.Key)
	}
	return out.Body, nil
}
