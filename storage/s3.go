package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Config S3 compatible document store settings
//
// Credentials come from the standard AWS credential chain.
type S3Config struct {
	// Bucket the bucket holding the documents
	Bucket string `yaml:"bucket" validate:"required"`
	// Region the bucket region
	Region string `yaml:"region"`
	// Endpoint optional custom endpoint, e.g. a MinIO server
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
	// Prefix optional object key prefix of the documents
	Prefix string `yaml:"prefix"`
	// PathStyle use path style bucket addressing
	PathStyle bool `yaml:"path_style"`
}

// s3Store implements DocumentStore on an S3 compatible bucket
type s3Store struct {
	goutils.Component
	client *s3.Client
	bucket string
	prefix string
}

/*
NewS3StoreFromConfig define a document store on an S3 compatible bucket

	@param ctx context.Context - execution context
	@param cfg S3Config - store settings
	@returns the store
*/
func NewS3StoreFromConfig(ctx context.Context, cfg S3Config) (DocumentStore, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration [%w]", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewS3Store(client, cfg.Bucket, cfg.Prefix)
}

/*
NewS3Store define a document store on an S3 compatible bucket

Document locations are "s3://<bucket>/<prefix><name>".

	@param client *s3.Client - S3 client
	@param bucket string - the bucket holding the documents
	@param prefix string - object key prefix of the documents
	@returns the store
*/
func NewS3Store(client *s3.Client, bucket string, prefix string) (DocumentStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket not specified")
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	logTags := log.Fields{"module": "storage", "component": "s3-document-store", "bucket": bucket}
	return &s3Store{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		client: client,
		bucket: bucket,
		prefix: prefix,
	}, nil
}

func (s *s3Store) Driver() Driver {
	return DriverS3
}

func (s *s3Store) Locator() string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, s.prefix)
}

// objectKey the object key of a document location
func (s *s3Store) objectKey(location string) (string, error) {
	bucketPrefix := fmt.Sprintf("s3://%s/", s.bucket)
	if !strings.HasPrefix(location, bucketPrefix) {
		return "", fmt.Errorf("location %s is not in bucket %s", location, s.bucket)
	}
	key := strings.TrimPrefix(location, bucketPrefix)
	if key == "" {
		return "", fmt.Errorf("location %s has no object key", location)
	}
	return key, nil
}

// isNotFound whether the S3 error reports a missing object
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}

// isConditionFailed whether the S3 error reports a failed conditional write
func isConditionFailed(err error) bool {
	var respErr *awshttp.ResponseError
	if !errors.As(err, &respErr) {
		return false
	}
	return respErr.HTTPStatusCode() == http.StatusPreconditionFailed ||
		respErr.HTTPStatusCode() == http.StatusConflict
}

/*
Create store a new document, failing if the name is already taken

	@param ctx context.Context - execution context
	@param name string - document name
	@param content []byte - document content
	@returns the location of the new document
*/
func (s *s3Store) Create(ctx context.Context, name string, content []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	key := s.prefix + name
	location := fmt.Sprintf("s3://%s/%s", s.bucket, key)

	// Check first; the conditional put below closes the race
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return "", fmt.Errorf("document %s [%w]", location, ErrDocumentExists)
	}
	if !isNotFound(err) {
		return "", fmt.Errorf("failed to check document %s [%w]", location, err)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(content),
		ContentType: aws.String(documentContentType),
		IfNoneMatch: aws.String("*"),
	}); err != nil {
		if isConditionFailed(err) {
			return "", fmt.Errorf("document %s [%w]", location, ErrDocumentExists)
		}
		return "", fmt.Errorf("failed to put document %s [%w]", location, err)
	}

	log.WithFields(s.GetLogTagsForContext(ctx)).WithField("location", location).Debug("Created document")
	return location, nil
}

/*
Write replace the content of the document at a location

	@param ctx context.Context - execution context
	@param location string - document location
	@param content []byte - document content
*/
func (s *s3Store) Write(ctx context.Context, location string, content []byte) error {
	key, err := s.objectKey(location)
	if err != nil {
		return err
	}
	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(content),
		ContentType: aws.String(documentContentType),
	}); err != nil {
		return fmt.Errorf("failed to put document %s [%w]", location, err)
	}

	log.WithFields(s.GetLogTagsForContext(ctx)).WithField("location", location).Debug("Wrote document")
	return nil
}

/*
Read fetch the content of the document at a location

	@param ctx context.Context - execution context
	@param location string - document location
	@returns the document content
*/
func (s *s3Store) Read(ctx context.Context, location string) ([]byte, error) {
	key, err := s.objectKey(location)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("document %s [%w]", location, ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("failed to get document %s [%w]", location, err)
	}
	defer func() { _ = out.Body.Close() }()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s [%w]", location, err)
	}
	return content, nil
}
