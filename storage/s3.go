package storage

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// ObjectStore is the object storage collaborator used by the upload workers.
// S3Storage is the production implementation; tests substitute their own.
type ObjectStore interface {
	UploadRecording(localPath, key string) (string, error)
	Exists(key string) (bool, error)
}

// S3Config holds configuration for an S3-compatible object store
// (AWS S3, Wasabi, Cloudflare R2 all speak the same API).
type S3Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Endpoint  string
	Region    string
	BaseURL   string // Public URL prefix for uploaded objects
}

// S3Storage handles operations against the object store
type S3Storage struct {
	config   S3Config
	session  *session.Session
	client   *s3.S3
	uploader *s3manager.Uploader
}

// NewS3Storage creates a new S3Storage instance
func NewS3Storage(config S3Config) (*S3Storage, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	awsCfg := &aws.Config{
		Credentials: credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
		Region:      aws.String(config.Region),
	}
	if config.Endpoint != "" {
		awsCfg.Endpoint = aws.String(config.Endpoint)
		// Path style addressing for S3-compatible endpoints
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	client := s3.New(sess)

	// PartSize 10 MB with Concurrency 1 keeps multipart uploads sequential so
	// memory use stays constant no matter how large the recording is.
	uploader := s3manager.NewUploader(sess, func(u *s3manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
		u.Concurrency = 1
	})

	return &S3Storage{
		config:   config,
		session:  sess,
		client:   client,
		uploader: uploader,
	}, nil
}

// UploadRecording streams a local recording file to the object store under the
// given key and returns its public URL. The file is handed to the uploader as
// an io.Reader; it is never buffered whole in memory. Retries are the upload
// queue's job, not ours, so a single failed attempt is returned as-is.
func (s *S3Storage) UploadRecording(localPath, key string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %v", localPath, err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %v", err)
	}

	contentType := "application/octet-stream"
	switch strings.ToLower(filepath.Ext(localPath)) {
	case ".mp4":
		contentType = "video/mp4"
	case ".ts":
		contentType = "video/mp2t"
	}

	metadata := map[string]*string{
		"OriginalFileName": aws.String(filepath.Base(localPath)),
		"UploadedAt":       aws.String(time.Now().Format(time.RFC3339)),
		"FileSize":         aws.String(fmt.Sprintf("%d", fileInfo.Size())),
	}

	log.Printf("Uploading recording (%.2f MB) to s3://%s/%s",
		float64(fileInfo.Size())/1024/1024, s.config.Bucket, key)

	_, err = s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.config.Bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	publicURL := fmt.Sprintf("%s/%s", s.GetBaseURL(), key)
	log.Printf("Recording uploaded, public URL: %s", publicURL)

	return publicURL, nil
}

// Exists checks whether an object is present in the bucket
func (s *S3Storage) Exists(key string) (bool, error) {
	_, err := s.client.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case s3.ErrCodeNoSuchKey, "NotFound":
				return false, nil
			}
		}
		return false, fmt.Errorf("failed to check object %s: %v", key, err)
	}
	return true, nil
}

// DeleteObject deletes an object from the bucket
func (s *S3Storage) DeleteObject(key string) error {
	_, err := s.client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object: %v", err)
	}
	return nil
}

// GetBaseURL returns the public base URL for uploaded objects
func (s *S3Storage) GetBaseURL() string {
	if s.config.BaseURL != "" {
		return s.config.BaseURL
	}
	return fmt.Sprintf("%s/%s", s.config.Endpoint, s.config.Bucket)
}

// IsPermanentUploadError reports whether an upload error is worth retrying.
// Credential and bucket problems will not fix themselves with backoff.
func IsPermanentUploadError(err error) bool {
	var aerr awserr.Error
	for e := err; e != nil; {
		if a, ok := e.(awserr.Error); ok {
			aerr = a
			break
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	if aerr == nil {
		return false
	}
	switch aerr.Code() {
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", s3.ErrCodeNoSuchBucket:
		return true
	}
	return false
}
