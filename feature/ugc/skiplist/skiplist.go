package skiplist

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"waypoint-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// List is a read-only set of asset IDs excluded from enrichment.
// The zero value and nil are empty lists.
type List struct {
	ids map[string]struct{}
}

// New builds a list from IDs. Blank entries are ignored.
func New(ids ...string) *List {
	l := &List{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			l.ids[id] = struct{}{}
		}
	}
	return l
}

// Contains reports whether id is listed.
func (l *List) Contains(id string) bool {
	if l == nil {
		return false
	}
	_, ok := l.ids[id]
	return ok
}

// Len returns the number of listed IDs.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}

// IDs returns the listed IDs, sorted.
func (l *List) IDs() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Parse reads one ID per line. Text after # is a comment.
func Parse(r io.Reader) (*List, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read skip list: %w", err)
	}
	return New(ids...), nil
}

// Source locates the skip list. Both sources are optional and merged.
type Source struct {
	// Path is a local file.
	Path string
	// Client and Bucket locate Object in the object store.
	Client storage.Client
	Bucket string
	Object string
}

// Load reads every configured source. Missing sources yield an empty list.
func Load(ctx context.Context, src Source) (*List, error) {
	merged := New()

	if src.Path != "" {
		f, err := os.Open(src.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("open skip list %s: %w", src.Path, err)
		default:
			l, err := Parse(f)
			f.Close()
			if err != nil {
				return nil, err
			}
			merged.merge(l)
		}
	}

	if src.Client != nil && src.Bucket != "" && src.Object != "" {
		obj, err := src.Client.GetObject(ctx, src.Bucket, src.Object, minio.GetObjectOptions{})
		switch {
		case storage.IsNotFound(err):
		case err != nil:
			return nil, fmt.Errorf("get skip list object %s/%s: %w", src.Bucket, src.Object, err)
		default:
			l, err := Parse(obj)
			obj.Close()
			if err != nil {
				return nil, err
			}
			merged.merge(l)
		}
	}

	return merged, nil
}

func (l *List) merge(other *List) {
	for id := range other.ids {
		l.ids[id] = struct{}{}
	}
}
