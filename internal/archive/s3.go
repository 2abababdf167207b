/*
Copyright 2026 Altaira Labs.

SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package archive copies expired audit entries to object storage before
// they are purged. Entries are written still sealed.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/altairalabs/secureflow/internal/store"
	"github.com/altairalabs/secureflow/pkg/securelog"
)

// Archiver persists a batch of entries.
type Archiver interface {
	Archive(ctx context.Context, entries []*store.LogEntry) error
}

// S3Config contains configuration for the S3 archive.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string
	// Region is the AWS region.
	Region string
	// Prefix is the key prefix for archive objects. Default: "audit-archive".
	Prefix string
	// Endpoint is an optional custom endpoint (for S3-compatible services like MinIO).
	Endpoint string
	// UsePathStyle forces path-style addressing (required for MinIO).
	UsePathStyle bool
}

// s3API is the subset of the S3 client used by the archive.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes each batch as one JSON Lines object.
type S3Archiver struct {
	client s3API
	bucket string
	prefix string
	now    func() time.Time
}

// Compile-time interface check.
var _ Archiver = (*S3Archiver)(nil)

// NewS3Archiver creates an S3 archiver using the default AWS credential chain.
func NewS3Archiver(ctx context.Context, cfg S3Config) (*S3Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.UsePathStyle
		})
	}
	return newS3ArchiverWithClient(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

func newS3ArchiverWithClient(client s3API, cfg S3Config) *S3Archiver {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "audit-archive"
	}
	return &S3Archiver{client: client, bucket: cfg.Bucket, prefix: prefix, now: time.Now}
}

// Record is the archived form of a log entry.
type Record struct {
	ID         string                  `json:"id"`
	Username   string                  `json:"username"`
	EventType  string                  `json:"eventType"`
	Summary    securelog.SealedRecord  `json:"summary"`
	Categories securelog.SealedRecord  `json:"categories"`
	Original   *securelog.SealedRecord `json:"original,omitempty"`
	MaskLevel  int                     `json:"maskLevel"`
	Degraded   bool                    `json:"degraded,omitempty"`
	Truncated  bool                    `json:"truncated,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
}

func toRecord(e *store.LogEntry) Record {
	return Record{
		ID:         e.ID,
		Username:   e.Username,
		EventType:  string(e.EventType),
		Summary:    e.Summary,
		Categories: e.Categories,
		Original:   e.Original,
		MaskLevel:  e.MaskLevel,
		Degraded:   e.Degraded,
		Truncated:  e.Truncated,
		CreatedAt:  e.CreatedAt,
	}
}

// Archive uploads entries as a single object. An empty batch is a no-op.
func (a *S3Archiver) Archive(ctx context.Context, entries []*store.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(toRecord(e)); err != nil {
			return fmt.Errorf("archive: encode entry: %w", err)
		}
	}

	key := a.objectKey()
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(a.bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(buf.Bytes()),
		ContentType:          aws.String("application/x-ndjson"),
		ServerSideEncryption: types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

func (a *S3Archiver) objectKey() string {
	now := a.now().UTC()
	return path.Join(a.prefix, now.Format("2006/01/02"), now.Format("150405")+"-"+uuid.NewString()+".jsonl")
}
