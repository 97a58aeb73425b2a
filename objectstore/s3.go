/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	cgerrors "github.com/suparena/contentguard/errors"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store implements Store on Amazon S3 or any S3-compatible endpoint.
type S3Store struct {
	client S3API
}

// NewS3Client creates an S3 client from a shared AWS configuration.
// pathStyle is needed by most S3-compatible endpoints.
func NewS3Client(cfg aws.Config, pathStyle bool) *s3.Client {
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
	})
}

// NewS3Store wraps client.
func NewS3Store(client S3API) *S3Store {
	return &S3Store{client: client}
}

// Delete removes bucket/key. S3 answers 204 for keys that do not exist, so
// a repeated delete is indistinguishable from the first.
func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.mapError("delete", bucket, key, err)
	}
	return nil
}

// Head reads the object's content headers and user metadata. S3 returns
// user metadata keys lowercased.
func (s *S3Store) Head(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	out, err := s.head(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	return &ObjectInfo{
		Bucket:      bucket,
		Key:         key,
		ContentType: aws.ToString(out.ContentType),
		Size:        aws.ToInt64(out.ContentLength),
		ETag:        aws.ToString(out.ETag),
		Metadata:    out.Metadata,
	}, nil
}

func (s *S3Store) head(ctx context.Context, bucket, key string) (*s3.HeadObjectOutput, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.mapError("head", bucket, key, err)
	}
	return out, nil
}

// MergeMetadata rewrites the object onto itself with merged user metadata.
// S3 metadata is immutable, so this is a server-side copy with
// MetadataDirective REPLACE. Content headers are carried over and the copy
// only happens if the object still has the ETag that was read.
func (s *S3Store) MergeMetadata(ctx context.Context, bucket, key string, tags map[string]string) error {
	head, err := s.head(ctx, bucket, key)
	if err != nil {
		return err
	}

	in := &s3.CopyObjectInput{
		Bucket:             aws.String(bucket),
		Key:                aws.String(key),
		CopySource:         aws.String(copySource(bucket, key)),
		MetadataDirective:  types.MetadataDirectiveReplace,
		Metadata:           MergeTags(head.Metadata, tags),
		ContentType:        head.ContentType,
		CacheControl:       head.CacheControl,
		ContentDisposition: head.ContentDisposition,
		ContentEncoding:    head.ContentEncoding,
		ContentLanguage:    head.ContentLanguage,
		StorageClass:       head.StorageClass,
	}
	if head.ETag != nil {
		in.CopySourceIfMatch = head.ETag
	}
	if head.ServerSideEncryption == types.ServerSideEncryptionAwsKms {
		in.ServerSideEncryption = head.ServerSideEncryption
		in.SSEKMSKeyId = head.SSEKMSKeyId
	}

	if _, err := s.client.CopyObject(ctx, in); err != nil {
		return s.mapError("merge metadata", bucket, key, err)
	}
	return nil
}

func (s *S3Store) mapError(op, bucket, key string, err error) error {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return fmt.Errorf("%s: %w", op, cgerrors.NewNotFoundError("object", bucket+"/"+key))
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return fmt.Errorf("%s: %w", op, cgerrors.NewNotFoundError("object", bucket+"/"+key))
		case "PreconditionFailed":
			return fmt.Errorf("%s: %w", op, cgerrors.NewConditionFailedError(op, "object changed since it was read"))
		}
	}
	return fmt.Errorf("%s %s/%s: %w", op, bucket, key, err)
}

// copySource renders the URL-encoded "bucket/key" form CopyObject expects.
func copySource(bucket, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return bucket + "/" + strings.Join(parts, "/")
}
