package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/aisitebuildapp/aisitebuild/config"
)

// SitePublisher mirrors published projects to S3 as static HTML so the
// gallery can serve them without hitting the API. Upload and removal are
// best effort; the publish flag in Postgres is the source of truth.
type SitePublisher struct {
	S3Client *s3.Client
	Config   *config.Config
}

func NewSitePublisher(s3Client *s3.Client, cfg *config.Config) *SitePublisher {
	return &SitePublisher{S3Client: s3Client, Config: cfg}
}

func (s *SitePublisher) siteKey(projectID string) string {
	return fmt.Sprintf("sites/%s/index.html", projectID)
}

// Upload writes the project's current document to the site bucket
func (s *SitePublisher) Upload(ctx context.Context, projectID, html string) error {
	_, err := s.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Config.S3Bucket),
		Key:         aws.String(s.siteKey(projectID)),
		Body:        strings.NewReader(html),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload site snapshot: %w", err)
	}
	return nil
}

// Remove deletes the snapshot after unpublishing
func (s *SitePublisher) Remove(ctx context.Context, projectID string) error {
	_, err := s.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.Config.S3Bucket),
		Key:    aws.String(s.siteKey(projectID)),
	})
	if err != nil {
		return fmt.Errorf("failed to remove site snapshot: %w", err)
	}
	return nil
}
