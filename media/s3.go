package media

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hike-social/hike/errs"
	"github.com/sirupsen/logrus"
)

// S3Storage is ObjectStorage on Amazon S3.
type S3Storage struct {
	client  *s3.Client
	presign *s3.PresignClient
}

var _ ObjectStorage = (*S3Storage)(nil)

// NewS3Storage wraps an existing client.
func NewS3Storage(client *s3.Client) *S3Storage {
	return &S3Storage{client: client, presign: s3.NewPresignClient(client)}
}

// LoadS3Storage builds a client from the default credential chain
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, shared config) for region.
func LoadS3Storage(ctx context.Context, region string) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errs.Unavailable("s3: load config", err)
	}
	return NewS3Storage(s3.NewFromConfig(cfg)), nil
}

func (s *S3Storage) IssueUploadURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", errs.Unavailable("s3: presign put", err)
	}
	return req.URL, nil
}

func (s *S3Storage) DeleteByPrefix(ctx context.Context, bucket, prefix string) error {
	var token *string
	deleted := 0
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return errs.Unavailable("s3: list objects", err)
		}
		if len(page.Contents) > 0 {
			ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
			for _, obj := range page.Contents {
				ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
			}
			_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(bucket),
				Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
			})
			if err != nil {
				return errs.Unavailable("s3: delete objects", err)
			}
			deleted += len(ids)
		}
		if page.IsTruncated == nil || !*page.IsTruncated {
			break
		}
		token = page.NextContinuationToken
	}

	logrus.WithFields(logrus.Fields{
		"function": "DeleteByPrefix",
		"bucket":   bucket,
		"prefix":   prefix,
		"deleted":  deleted,
	}).Info("Deleted objects under prefix")
	return nil
}
