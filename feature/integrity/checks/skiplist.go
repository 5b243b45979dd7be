package checks

import (
	"context"
	"fmt"

	"waypoint-sync/core/storage"
	"waypoint-sync/feature/ugc/skiplist"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// SkipListReport describes the skip list object.
type SkipListReport struct {
	Object string `json:"object"`
	Found  bool   `json:"found"`
	Assets int    `json:"assets"`
	// Invalid lists entries that are not asset GUIDs and can never match.
	Invalid []string `json:"invalid,omitempty"`
}

// CheckSkipList reads and parses the skip list object. A missing object is
// reported, not an error.
func CheckSkipList(ctx context.Context, client storage.Client, bucket, object string) (*SkipListReport, error) {
	report := &SkipListReport{Object: object}
	if object == "" {
		return report, nil
	}

	obj, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if storage.IsNotFound(err) {
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get skip list %s: %w", object, err)
	}
	defer obj.Close()

	list, err := skiplist.Parse(obj)
	if err != nil {
		return nil, err
	}
	report.Found = true
	report.Assets = list.Len()
	for _, id := range list.IDs() {
		if _, err := uuid.Parse(id); err != nil {
			report.Invalid = append(report.Invalid, id)
		}
	}
	return report, nil
}
