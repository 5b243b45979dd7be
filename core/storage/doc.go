// Package storage wraps the MinIO client for the few object store operations
// the sync needs: reading the skip list object, archiving run reports and
// checking the bucket during integrity runs.
//
// The Client interface is kept small so it can be mocked (see core/storage/mocks).
// Storage is optional; when Config.Enabled is false no client is created and
// the features that use it fall back to local sources or are skipped.
//
//	client, err := storage.NewClient(cfg)
//	err = storage.EnsureBucket(ctx, client, cfg.Bucket, cfg.Region)
package storage
