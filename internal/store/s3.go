package store

import (
	"context"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/listdiff/internal/errors"
	"github.com/vango-dev/listdiff/pkg/document"
)

// ObjectGetter is the part of *s3.Client that S3Source uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source loads documents from s3://bucket/key locations.
//
// Example usage:
//
//	client := store.NewS3Client("eu-west-1", "", false)
//	mux := store.NewMux(4 << 20)
//	mux.Handle("s3", store.NewS3Source(client, 4<<20))
type S3Source struct {
	client   ObjectGetter
	maxBytes int64
}

// NewS3Source creates an S3 source. A maxBytes of zero means no limit.
func NewS3Source(client ObjectGetter, maxBytes int64) *S3Source {
	return &S3Source{client: client, maxBytes: maxBytes}
}

// Load implements Source.
func (s *S3Source) Load(ctx context.Context, location string) (*document.Document, error) {
	bucket, key, err := ParseS3URI(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.New("E141").WithDetail(location).Wrap(err)
	}
	defer out.Body.Close()

	if s.maxBytes > 0 && out.ContentLength != nil && *out.ContentLength > s.maxBytes {
		return nil, errors.New("E142").WithDetailf("%s is %d bytes, limit %d", location, *out.ContentLength, s.maxBytes)
	}

	data, err := readLimited(out.Body, s.maxBytes, location)
	if err != nil {
		return nil, err
	}
	return decode(data, key)
}

// ParseS3URI splits s3://bucket/key into its bucket and key.
func ParseS3URI(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, "s3://")
	if !ok {
		return "", "", errors.New("E140").WithDetailf("%q is not an s3:// URI", location)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", errors.New("E140").
			WithDetailf("%q needs a bucket and a key", location).
			WithSuggestion("Use s3://bucket/path/to/snapshot.json")
	}
	return bucket, key, nil
}

// NewS3Client builds an S3 client. Credentials come from AWS_ACCESS_KEY_ID,
// AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN; without them requests are
// anonymous. An empty endpoint uses the AWS default.
func NewS3Client(region, endpoint string, pathStyle bool) *s3.Client {
	opts := s3.Options{
		Region:       region,
		UsePathStyle: pathStyle,
		Credentials:  envCredentials(),
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	return s3.New(opts)
}

func envCredentials() aws.CredentialsProvider {
	id := os.Getenv("AWS_ACCESS_KEY_ID")
	secret := os.Getenv("AWS_SECRET_ACCESS_KEY")
	if id == "" || secret == "" {
		return aws.AnonymousCredentials{}
	}
	creds := aws.Credentials{
		AccessKeyID:     id,
		SecretAccessKey: secret,
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "Environment",
	}
	return aws.NewCredentialsCache(aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
		return creds, nil
	}))
}
