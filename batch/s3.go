package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3Scheme = "s3://"

const defaultRegion = "us-east-1"

// ObjectAPI is the part of the s3 client used to list and fetch demos. *s3.Client
// implements it.
type ObjectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config holds the connection settings read from the environment.
type S3Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string

	// Endpoint, when set, selects an s3 compatible service with path style addressing.
	Endpoint string
}

// S3ConfigFromEnv reads AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
// AWS_ENDPOINT_URL.
func S3ConfigFromEnv() S3Config {
	return S3Config{
		Region:          os.Getenv("AWS_REGION"),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Endpoint:        os.Getenv("AWS_ENDPOINT_URL"),
	}
}

var errMissingCredentials = errors.New("batch: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set for s3 inputs")

// NewS3Client builds a client with static credentials.
func NewS3Client(c S3Config) (*s3.Client, error) {
	if c.AccessKeyID == "" || c.SecretAccessKey == "" {
		return nil, errMissingCredentials
	}
	region := c.Region
	if region == "" {
		region = defaultRegion
	}
	cfg := aws.Config{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     c.AccessKeyID,
				SecretAccessKey: c.SecretAccessKey,
				Source:          "environment",
			}, nil
		}),
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func parseS3URL(path string) (bucket, prefix string, ok bool) {
	rest, ok := strings.CutPrefix(path, s3Scheme)
	if !ok {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, prefix, bucket != ""
}

func listObjects(ctx context.Context, objects ObjectAPI, bucket, prefix string) ([]Input, error) {
	var inputs []Input
	p := s3.NewListObjectsV2Paginator(objects, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if IsDemoName(key) {
				inputs = append(inputs, objectInput(objects, bucket, key))
			}
		}
	}
	return inputs, nil
}

func objectInput(objects ObjectAPI, bucket, key string) Input {
	return Input{
		Name: s3Scheme + bucket + "/" + key,
		Open: func(ctx context.Context) (io.ReadCloser, error) {
			out, err := objects.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				return nil, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
			}
			return out.Body, nil
		},
	}
}
