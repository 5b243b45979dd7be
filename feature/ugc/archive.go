package ugc

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"waypoint-sync/core/storage"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Archive stores run reports as JSON objects and prunes old ones.
type Archive struct {
	client    storage.Client
	bucket    string
	prefix    string
	retention int
	logger    *zap.Logger
}

// NewArchive creates a report archive under prefix in bucket.
func NewArchive(client storage.Client, bucket, prefix string, retention int, logger *zap.Logger) *Archive {
	return &Archive{
		client:    client,
		bucket:    bucket,
		prefix:    prefix,
		retention: retention,
		logger:    logger,
	}
}

// ReportKey returns the object key of a report. Keys sort chronologically.
func (a *Archive) ReportKey(startedAt time.Time, label, runID string) string {
	label = strings.ReplaceAll(label, ":", "-")
	return fmt.Sprintf("%s%s-%s-%s.json", a.prefix, startedAt.UTC().Format("20060102T150405Z"), label, runID)
}

// Put uploads v as JSON under key and prunes reports beyond the retention.
func (a *Archive) Put(ctx context.Context, key string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("upload report %s: %w", key, err)
	}
	return a.prune(ctx)
}

// List returns the archived report keys, oldest first.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	var keys []string
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: a.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list reports: %w", obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (a *Archive) prune(ctx context.Context) error {
	if a.retention <= 0 {
		return nil
	}
	keys, err := a.List(ctx)
	if err != nil {
		return err
	}
	if len(keys) <= a.retention {
		return nil
	}
	for _, key := range keys[:len(keys)-a.retention] {
		if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove report %s: %w", key, err)
		}
		a.logger.Debug("Pruned archived report", zap.String("key", key))
	}
	return nil
}
