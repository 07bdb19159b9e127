package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
)

func TestIsPermanentUploadError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("connection reset"), false},
		{"throttling", awserr.New("SlowDown", "slow down", nil), false},
		{"access denied", awserr.New("AccessDenied", "access denied", nil), true},
		{"bad key id", awserr.New("InvalidAccessKeyId", "bad key", nil), true},
		{"bad signature", awserr.New("SignatureDoesNotMatch", "bad signature", nil), true},
		{"missing bucket", awserr.New("NoSuchBucket", "no bucket", nil), true},
		{
			"wrapped access denied",
			fmt.Errorf("failed to upload live/CAM1/seg.mp4: %w", awserr.New("AccessDenied", "access denied", nil)),
			true,
		},
		{
			"wrapped transient",
			fmt.Errorf("failed to upload live/CAM1/seg.mp4: %w", awserr.New("RequestTimeout", "timeout", nil)),
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPermanentUploadError(tc.err); got != tc.want {
				t.Errorf("IsPermanentUploadError(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestGetBaseURL(t *testing.T) {
	withBase := &S3Storage{config: S3Config{BaseURL: "https://cdn.example.com", Endpoint: "https://s3.example.com", Bucket: "recordings"}}
	if got := withBase.GetBaseURL(); got != "https://cdn.example.com" {
		t.Errorf("Expected configured base URL, got %s", got)
	}

	withoutBase := &S3Storage{config: S3Config{Endpoint: "https://s3.example.com", Bucket: "recordings"}}
	if got := withoutBase.GetBaseURL(); got != "https://s3.example.com/recordings" {
		t.Errorf("Expected endpoint/bucket fallback, got %s", got)
	}
}
