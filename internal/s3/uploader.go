// server/internal/s3/uploader.go
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"sistema-bup-api-server/config"
	"sistema-bup-api-server/internal/analysis"
)

// ObjectPutter is the part of the S3 client the uploader uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Uploader struct {
	Client           ObjectPutter
	Bucket           string
	Region           string
	CloudFrontDomain string
	Prefix           string
	now              func() time.Time
}

func NewUploader(ctx context.Context, cfg config.S3Config) (*Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Uploader{
		Client:           s3.NewFromConfig(sdkConfig),
		Bucket:           cfg.Bucket,
		Region:           cfg.Region,
		CloudFrontDomain: cfg.CloudFrontDomain,
		Prefix:           cfg.Prefix,
		now:              time.Now,
	}, nil
}

// UploadFile uploads body under objectKey and returns its public URL.
func (u *Uploader) UploadFile(ctx context.Context, body io.Reader, objectKey, contentType string) (string, error) {
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.Bucket),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return u.URL(objectKey), nil
}

// URL prefers the CloudFront domain and falls back to the bucket endpoint.
func (u *Uploader) URL(objectKey string) string {
	if u.CloudFrontDomain != "" {
		return fmt.Sprintf("https://%s/%s", u.CloudFrontDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", u.Bucket, u.Region, objectKey)
}

// SummaryExport is the JSON document written for an exported summary.
type SummaryExport struct {
	ProjectID   string                        `json:"projectId"`
	GeneratedAt time.Time                     `json:"generatedAt"`
	Summary     *analysis.ConsolidatedSummary `json:"resumo"`
}

// ExportSummary writes the consolidated summary of a project as JSON and
// returns the object URL.
func (u *Uploader) ExportSummary(ctx context.Context, projectID string, summary *analysis.ConsolidatedSummary) (string, error) {
	now := time.Now
	if u.now != nil {
		now = u.now
	}
	generated := now().UTC()
	body, err := json.MarshalIndent(SummaryExport{ProjectID: projectID, GeneratedAt: generated, Summary: summary}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	key := path.Join(u.Prefix, projectID, "resumo-"+generated.Format("20060102T150405Z")+".json")
	return u.UploadFile(ctx, bytes.NewReader(body), key, "application/json")
}
