// server/internal/store/store.go
package store

import (
	"context"
	"strconv"
	"strings"

	"sistema-bup-api-server/internal/errs"
	"sistema-bup-api-server/internal/models"
)

// DefaultProjectsCollection is the top-level collection holding project documents.
const DefaultProjectsCollection = "estudos_viabilidade"

// Document is one stored record. Data values are plain Go values:
// map[string]any, []any, string, numbers, bool and the store's native
// timestamp types.
type Document struct {
	ID   string
	Data map[string]any
}

// DocumentStore is the document database capability consumed by the gateway.
// Paths are slash-separated: "collection" or "collection/{id}/subcollection".
type DocumentStore interface {
	Query(ctx context.Context, path string) ([]Document, error)
	// Get returns nil, nil when the document does not exist.
	Get(ctx context.Context, path, id string) (*Document, error)
	QueryOrdered(ctx context.Context, path, field string, descending bool, limit int) ([]Document, error)
	Add(ctx context.Context, path string, data map[string]any) (string, error)
	Set(ctx context.Context, path, id string, data map[string]any, merge bool) error
	Delete(ctx context.Context, path, id string) error
}

// AnalysisPath returns the sub-collection path of one analysis kind under a project.
func AnalysisPath(projects, projectID string, kind models.AnalysisKind) string {
	return projects + "/" + projectID + "/" + kind.Collection()
}

// collectionRef is a parsed collection path.
type collectionRef struct {
	path   string
	name   string // last segment
	parent string // parent document path, empty for top-level collections
}

func parsePath(path string) (collectionRef, error) {
	path = strings.Trim(path, "/")
	segments := strings.Split(path, "/")
	if path == "" || len(segments)%2 == 0 {
		return collectionRef{}, errs.InvalidArgument("parse path", "invalid collection path "+strconv.Quote(path))
	}
	for _, s := range segments {
		if s == "" {
			return collectionRef{}, errs.InvalidArgument("parse path", "invalid collection path "+strconv.Quote(path))
		}
	}
	ref := collectionRef{path: path, name: segments[len(segments)-1]}
	if len(segments) > 1 {
		ref.parent = strings.Join(segments[:len(segments)-1], "/")
	}
	return ref, nil
}
