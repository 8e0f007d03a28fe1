// Package archive mirrors appended submission rows to S3 as JSON objects
// with a monthly JSONL manifest.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/talmzip/awwwe-feedback-form/internal/sheet"
	"github.com/talmzip/awwwe-feedback-form/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ManifestEntry is one line of the monthly manifest.
type ManifestEntry struct {
	RowID      string `json:"row_id"`
	S3Key      string `json:"s3_key"`
	ReceivedAt string `json:"received_at"`
	Columns    int    `json:"columns"`
}

// Store writes rows to S3. If bucket is empty, all operations are no-ops.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger.Component("archive")}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

func rowKey(row sheet.Row) string {
	t := row.ReceivedAt.UTC()
	return fmt.Sprintf("submissions/v1/by-date/%d/%02d/%02d/%s.json", t.Year(), t.Month(), t.Day(), row.ID)
}

func manifestKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("submissions/v1/manifests/%d-%02d.jsonl", t.Year(), t.Month())
}

// ArchiveRow writes row as JSON and appends it to the manifest. A manifest
// failure is logged and does not fail the call.
func (s *Store) ArchiveRow(ctx context.Context, row sheet.Row) error {
	if !s.Enabled() {
		return nil
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("archive: marshal row: %w", err)
	}
	key := rowKey(row)
	if _, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Info("archived row to S3", "row_id", row.ID, "s3_key", key)

	entry := ManifestEntry{
		RowID:      row.ID,
		S3Key:      key,
		ReceivedAt: row.ReceivedAt.UTC().Format(time.RFC3339),
		Columns:    len(row.Values),
	}
	if err := s.AppendManifest(ctx, row.ReceivedAt, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "row_id", row.ID)
	}
	return nil
}

// AppendManifest appends a JSONL line to the manifest for month at.
// S3 has no append, so this is a read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, at time.Time, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	key := manifestKey(at)

	var existing []byte
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNotFound(err):
		s.logger.Debug("manifest not found, creating new", "key", key)
	default:
		return fmt.Errorf("archive: get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	if _, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	}); err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "404")
}
