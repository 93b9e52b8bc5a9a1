// Package media stores avatar images in S3-compatible object storage.
package media

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const avatarSize = 256

type S3Store struct {
	client     *s3.Client
	uploader   *manager.Uploader
	bucket     string
	region     string
	publicBase string
}

func NewS3Store(ctx context.Context, region, bucket, publicBase string) (*S3Store, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:     client,
		uploader:   manager.NewUploader(client),
		bucket:     bucket,
		region:     region,
		publicBase: publicBase,
	}, nil
}

// UploadAvatar decodes the image, resizes it to a square thumbnail and
// uploads it under a fresh avatars/<userID>/ key, returning the public URL.
// Each upload gets its own key so cached copies of the replaced image are
// never served; the previous object is removed via DeleteByURL once the
// profile points at the new one.
func (s *S3Store) UploadAvatar(ctx context.Context, userID string, data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding avatar image: %w", err)
	}
	thumb := imaging.Fill(img, avatarSize, avatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("encoding avatar image: %w", err)
	}

	key := "avatars/" + userID + "/" + uuid.NewString() + ".jpg"
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        &buf,
		ContentType: aws.String("image/jpeg"),
	})
	if err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

// DeleteByURL removes the object behind a URL previously returned by
// UploadAvatar. URLs from another base are ignored.
func (s *S3Store) DeleteByURL(ctx context.Context, avatarURL string) error {
	key := s.keyFromURL(avatarURL)
	if key == "" {
		return nil
	}
	return s.Delete(ctx, key)
}

func (s *S3Store) keyFromURL(avatarURL string) string {
	base := s.publicBase
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.bucket, s.region)
	}
	escaped, ok := strings.CutPrefix(avatarURL, base+"/")
	if !ok {
		return ""
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return ""
	}
	return key
}

func (s *S3Store) publicURL(key string) string {
	escaped := url.PathEscape(key)
	if s.publicBase != "" {
		return s.publicBase + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, escaped)
}
