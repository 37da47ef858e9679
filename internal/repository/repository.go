// server/internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"sistema-bup-api-server/internal/errs"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/store"
)

// Options configures a Gateway.
type Options struct {
	// ProjectsCollection defaults to store.DefaultProjectsCollection.
	ProjectsCollection string
	// CascadeDelete removes the analysis sub-collections with the project.
	CascadeDelete bool
}

// Gateway reads and writes projects and their analyses through a DocumentStore,
// returning decoded models. Batch reads skip undecodable documents; single
// reads report them.
type Gateway struct {
	store    store.DocumentStore
	logger   zerolog.Logger
	projects string
	cascade  bool
}

func NewGateway(s store.DocumentStore, logger zerolog.Logger, opts Options) *Gateway {
	projects := opts.ProjectsCollection
	if projects == "" {
		projects = store.DefaultProjectsCollection
	}
	return &Gateway{
		store:    s,
		logger:   logger.With().Str("component", "repository").Logger(),
		projects: projects,
		cascade:  opts.CascadeDelete,
	}
}

// ProjectsCollection returns the top-level collection name in use.
func (g *Gateway) ProjectsCollection() string { return g.projects }

func (g *Gateway) ListProjects(ctx context.Context) ([]models.Project, error) {
	docs, err := g.store.Query(ctx, g.projects)
	if err != nil {
		g.logger.Error().Err(err).Str("collection", g.projects).Msg("list projects failed")
		return nil, storeError("list projects", err)
	}
	projects := make([]models.Project, 0, len(docs))
	for _, doc := range docs {
		p, err := models.DecodeProject(doc.ID, doc.Data)
		if err != nil {
			g.logSkipped(g.projects, doc.ID, err)
			continue
		}
		projects = append(projects, *p)
	}
	return projects, nil
}

// GetProject fails with NotFound when the document is absent or undecodable.
func (g *Gateway) GetProject(ctx context.Context, id string) (*models.Project, error) {
	if id == "" {
		return nil, errs.InvalidArgument("get project", "project id is required")
	}
	doc, err := g.store.Get(ctx, g.projects, id)
	if err != nil {
		return nil, storeError("get project", err)
	}
	if doc == nil {
		return nil, errs.NotFound("project", id)
	}
	p, err := models.DecodeProject(doc.ID, doc.Data)
	if err != nil {
		g.logger.Warn().Err(err).Str("collection", g.projects).Str("doc_id", id).Str("field", errs.FieldOf(err)).Msg("project failed to decode")
		return nil, errs.NotFoundCause("project", id, err)
	}
	return p, nil
}

// CreateProject stores a new project and returns the assigned id. Any id on
// the input is ignored.
func (g *Gateway) CreateProject(ctx context.Context, p *models.Project) (string, error) {
	if p == nil {
		return "", errs.InvalidArgument("create project", "project is required")
	}
	if err := p.Validate(); err != nil {
		return "", errs.InvalidArgument("create project", err.Error())
	}
	id, err := g.store.Add(ctx, g.projects, p.Document())
	if err != nil {
		return "", storeError("create project", err)
	}
	g.logger.Info().Str("project_id", id).Msg("project created")
	return id, nil
}

// UpdateProject merge-writes p over the stored document.
func (g *Gateway) UpdateProject(ctx context.Context, p *models.Project) error {
	if p == nil || p.ID == "" {
		return errs.InvalidArgument("update project", "project id is required")
	}
	if err := p.Validate(); err != nil {
		return errs.InvalidArgument("update project", err.Error())
	}
	if err := g.store.Set(ctx, g.projects, p.ID, p.Document(), true); err != nil {
		return storeError("update project", err)
	}
	return nil
}

// DeleteProject removes the project document, and first its analyses when
// cascading is enabled.
func (g *Gateway) DeleteProject(ctx context.Context, id string) error {
	if id == "" {
		return errs.InvalidArgument("delete project", "project id is required")
	}
	if g.cascade {
		for _, kind := range models.AllAnalysisKinds {
			path := store.AnalysisPath(g.projects, id, kind)
			docs, err := g.store.Query(ctx, path)
			if err != nil {
				return storeError("delete project", err)
			}
			for _, doc := range docs {
				if err := g.store.Delete(ctx, path, doc.ID); err != nil {
					return storeError("delete project", err)
				}
			}
			if len(docs) > 0 {
				g.logger.Debug().Str("project_id", id).Str("collection", kind.Collection()).Int("count", len(docs)).Msg("analyses deleted")
			}
		}
	}
	if err := g.store.Delete(ctx, g.projects, id); err != nil {
		return storeError("delete project", err)
	}
	g.logger.Info().Str("project_id", id).Bool("cascade", g.cascade).Msg("project deleted")
	return nil
}

// ListAnalysisVersions returns every decodable version of kind for a project.
func (g *Gateway) ListAnalysisVersions(ctx context.Context, projectID string, kind models.AnalysisKind) ([]models.Analysis, error) {
	path, err := g.analysisPath("list analysis versions", projectID, kind)
	if err != nil {
		return nil, err
	}
	docs, err := g.store.Query(ctx, path)
	if err != nil {
		g.logger.Error().Err(err).Str("collection", path).Msg("list analysis versions failed")
		return nil, storeError("list analysis versions", err)
	}
	out := make([]models.Analysis, 0, len(docs))
	for _, doc := range docs {
		a, err := models.DecodeAnalysis(kind, doc.ID, doc.Data)
		if err != nil {
			g.logSkipped(path, doc.ID, err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// GetAnalysisVersion fails with NotFound when the version is absent or undecodable.
func (g *Gateway) GetAnalysisVersion(ctx context.Context, projectID string, kind models.AnalysisKind, version string) (models.Analysis, error) {
	path, err := g.analysisPath("get analysis version", projectID, kind)
	if err != nil {
		return nil, err
	}
	if version == "" {
		return nil, errs.InvalidArgument("get analysis version", "version is required")
	}
	doc, err := g.store.Get(ctx, path, version)
	if err != nil {
		return nil, storeError("get analysis version", err)
	}
	if doc == nil {
		return nil, errs.NotFound(kind.Collection(), version)
	}
	a, err := models.DecodeAnalysis(kind, doc.ID, doc.Data)
	if err != nil {
		g.logger.Warn().Err(err).Str("collection", path).Str("doc_id", version).Str("field", errs.FieldOf(err)).Msg("analysis failed to decode")
		return nil, errs.NotFoundCause(kind.Collection(), version, err)
	}
	return a, nil
}

// GetLatestAnalysis returns the version with the greatest creation date, or
// nil when the project has none. A decode failure is returned as is.
func (g *Gateway) GetLatestAnalysis(ctx context.Context, projectID string, kind models.AnalysisKind) (models.Analysis, error) {
	path, err := g.analysisPath("get latest analysis", projectID, kind)
	if err != nil {
		return nil, err
	}
	docs, err := g.store.QueryOrdered(ctx, path, models.CreatedAtField, true, 1)
	if err != nil {
		return nil, storeError("get latest analysis", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	a, err := models.DecodeAnalysis(kind, docs[0].ID, docs[0].Data)
	if err != nil {
		g.logger.Warn().Err(err).Str("collection", path).Str("doc_id", docs[0].ID).Str("field", errs.FieldOf(err)).Msg("latest analysis failed to decode")
		return nil, err
	}
	return a, nil
}

func (g *Gateway) analysisPath(op, projectID string, kind models.AnalysisKind) (string, error) {
	if projectID == "" {
		return "", errs.InvalidArgument(op, "project id is required")
	}
	if !kind.Valid() {
		return "", errs.InvalidArgument(op, "unknown analysis kind "+string(kind))
	}
	return store.AnalysisPath(g.projects, projectID, kind), nil
}

func (g *Gateway) logSkipped(collection, id string, err error) {
	g.logger.Warn().
		Err(err).
		Str("collection", collection).
		Str("doc_id", id).
		Str("field", errs.FieldOf(err)).
		Msg("skipping undecodable document")
}

// storeError passes typed errors through and classifies the rest as transport failures.
func storeError(op string, err error) error {
	var typed *errs.Error
	if errors.As(err, &typed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errs.StoreUnavailable(op, err)
}
