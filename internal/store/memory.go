// server/internal/store/memory.go
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sistema-bup-api-server/internal/flexible"
)

// MemoryStore is an in-process DocumentStore. It is safe for concurrent use and
// backs tests and local runs without a database.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

func (s *MemoryStore) Query(ctx context.Context, path string) ([]Document, error) {
	ref, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.snapshot(ref.path)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *MemoryStore) Get(ctx context.Context, path, id string) (*Document, error) {
	ref, err := parsePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[ref.path][id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Data: cloneMap(data)}, nil
}

// QueryOrdered sorts on field. Documents missing the field sort before every
// present value, as they do in MongoDB.
func (s *MemoryStore) QueryOrdered(ctx context.Context, path, field string, descending bool, limit int) ([]Document, error) {
	docs, err := s.Query(ctx, path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := compareValues(lookupField(docs[i].Data, field), lookupField(docs[j].Data, field))
		if descending {
			return c > 0
		}
		return c < 0
	})
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

func (s *MemoryStore) Add(ctx context.Context, path string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, path, id, data, false); err != nil {
		return "", err
	}
	return id, nil
}

func (s *MemoryStore) Set(ctx context.Context, path, id string, data map[string]any, merge bool) error {
	ref, err := parsePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[ref.path]
	if !ok {
		coll = make(map[string]map[string]any)
		s.collections[ref.path] = coll
	}
	existing, ok := coll[id]
	if merge && ok {
		mergeInto(existing, data)
		return nil
	}
	coll[id] = cloneMap(data)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, path, id string) error {
	ref, err := parsePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections[ref.path], id)
	return nil
}

func (s *MemoryStore) snapshot(path string) []Document {
	coll := s.collections[path]
	docs := make([]Document, 0, len(coll))
	for id, data := range coll {
		docs = append(docs, Document{ID: id, Data: cloneMap(data)})
	}
	return docs
}

// lookupField resolves a dotted field path.
func lookupField(data map[string]any, field string) any {
	var cur any = data
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// Value classes in sort order.
const (
	classMissing = iota
	classNumber
	classString
	classTime
)

func classify(v any) (int, float64, string, time.Time) {
	if v == nil {
		return classMissing, 0, "", time.Time{}
	}
	if s, ok := v.(string); ok {
		if t, ok := flexible.ParseDate(s); ok {
			return classTime, 0, "", t
		}
		if n, ok := flexible.Number(s); ok {
			return classNumber, n, "", time.Time{}
		}
		return classString, 0, s, time.Time{}
	}
	if n, ok := flexible.Number(v); ok {
		return classNumber, n, "", time.Time{}
	}
	if d := flexible.Date(v); d != "" {
		if t, ok := flexible.ParseDate(d); ok {
			return classTime, 0, "", t
		}
	}
	return classString, 0, "", time.Time{}
}

func compareValues(a, b any) int {
	ca, na, sa, ta := classify(a)
	cb, nb, sb, tb := classify(b)
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch ca {
	case classNumber:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
	case classString:
		return strings.Compare(sa, sb)
	case classTime:
		return ta.Compare(tb)
	}
	return 0
}

func mergeInto(dst, src map[string]any) {
	for k, v := range src {
		if sm, ok := v.(map[string]any); ok {
			if dm, ok := dst[k].(map[string]any); ok {
				mergeInto(dm, sm)
				continue
			}
		}
		dst[k] = cloneValue(v)
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
