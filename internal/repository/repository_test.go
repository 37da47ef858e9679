package repository

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sistema-bup-api-server/internal/errs"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/store"
)

func projectDoc(name string) map[string]any {
	return map[string]any{
		models.ProjectInfoKey: map[string]any{
			"nome_projeto":   name,
			"tipo_projeto":   "residencial",
			"descri_projeto": "Torre",
			"nome_cliente":   "Cliente",
			"data_inicio":    "01/03/2025",
			"endereco":       "Rua X",
			"info_criacao": map[string]any{
				"data_criacao":    "2025-03-01T10:00:00Z",
				"usuario_criador": "u1",
			},
		},
	}
}

func newTestGateway(t *testing.T, cascade bool) (*Gateway, *store.MemoryStore, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	mem := store.NewMemoryStore()
	g := NewGateway(mem, zerolog.New(&buf), Options{CascadeDelete: cascade})
	return g, mem, &buf
}

func put(t *testing.T, s store.DocumentStore, path, id string, data map[string]any) {
	t.Helper()
	require.NoError(t, s.Set(context.Background(), path, id, data, false))
}

func TestListProjectsSkipsUndecodable(t *testing.T) {
	ctx := context.Background()
	g, mem, logs := newTestGateway(t, false)

	put(t, mem, g.ProjectsCollection(), "P1", projectDoc("Um"))
	put(t, mem, g.ProjectsCollection(), "P2", projectDoc("Dois"))
	broken := projectDoc("Três")
	delete(broken[models.ProjectInfoKey].(map[string]any), "nome_projeto")
	put(t, mem, g.ProjectsCollection(), "P3", broken)
	put(t, mem, g.ProjectsCollection(), "P4", map[string]any{"lixo": true})

	projects, err := g.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "P1", projects[0].ID)
	assert.Equal(t, "P2", projects[1].ID)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"doc_id":"P3"`)
	assert.Contains(t, lines[0], `"field":"informacao_projeto.nome_projeto"`)
	assert.Contains(t, lines[1], `"doc_id":"P4"`)
}

func TestGetProject(t *testing.T) {
	ctx := context.Background()
	g, mem, _ := newTestGateway(t, false)
	put(t, mem, g.ProjectsCollection(), "P1", projectDoc("Um"))
	put(t, mem, g.ProjectsCollection(), "BAD", map[string]any{"informacao_projeto": map[string]any{}})

	p, err := g.GetProject(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Um", p.Name)

	_, err = g.GetProject(ctx, "nope")
	assert.True(t, errors.Is(err, errs.ErrNotFound))

	_, err = g.GetProject(ctx, "BAD")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	assert.True(t, errors.Is(err, errs.ErrDecode))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestCreateAndUpdateProject(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t, false)

	zoning := "ZR-1"
	in := &models.Project{
		ID: "ignored", Name: "Novo", Type: "comercial", Description: "Loja", Client: "C",
		StartDate: "2025", Address: "Rua Y", Zoning: &zoning,
		Creation: models.ProjectCreation{CreatedAt: "2025-03-01T10:00:00Z", CreatedBy: "u1"},
	}
	id, err := g.CreateProject(ctx, in)
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", id)

	got, err := g.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "ZR-1", *got.Zoning)

	got.Name = "Renomeado"
	require.NoError(t, g.UpdateProject(ctx, got))
	got, err = g.GetProject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Renomeado", got.Name)
	assert.Equal(t, "ZR-1", *got.Zoning)

	got.ID = ""
	err = g.UpdateProject(ctx, got)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))

	_, err = g.CreateProject(ctx, &models.Project{Name: "sem campos"})
	assert.Equal(t, errs.KindInvalidArgument, errs.KindOf(err))
}

func seedAnalyses(t *testing.T, g *Gateway, mem store.DocumentStore, projectID string) {
	t.Helper()
	for _, kind := range models.AllAnalysisKinds {
		put(t, mem, store.AnalysisPath(g.ProjectsCollection(), projectID, kind), "1.0", map[string]any{
			"status": "concluido", "data_criacao": "2025-01-01T00:00:00Z",
		})
	}
}

func TestDeleteProjectCascade(t *testing.T) {
	ctx := context.Background()
	g, mem, _ := newTestGateway(t, true)
	put(t, mem, g.ProjectsCollection(), "P1", projectDoc("Um"))
	seedAnalyses(t, g, mem, "P1")

	require.NoError(t, g.DeleteProject(ctx, "P1"))

	_, err := g.GetProject(ctx, "P1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
	for _, kind := range models.AllAnalysisKinds {
		docs, err := mem.Query(ctx, store.AnalysisPath(g.ProjectsCollection(), "P1", kind))
		require.NoError(t, err)
		assert.Empty(t, docs, kind)
	}
}

func TestDeleteProjectWithoutCascadeKeepsAnalyses(t *testing.T) {
	ctx := context.Background()
	g, mem, _ := newTestGateway(t, false)
	put(t, mem, g.ProjectsCollection(), "P1", projectDoc("Um"))
	seedAnalyses(t, g, mem, "P1")

	require.NoError(t, g.DeleteProject(ctx, "P1"))

	docs, err := mem.Query(ctx, store.AnalysisPath(g.ProjectsCollection(), "P1", models.Land))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestLandAnalysisScenario(t *testing.T) {
	ctx := context.Background()
	g, mem, _ := newTestGateway(t, false)
	path := store.AnalysisPath(g.ProjectsCollection(), "P1", models.Land)
	put(t, mem, path, "2.0", map[string]any{
		"status":       "concluido",
		"versao":       "2.0",
		"data_criacao": "2025-10-18T14:30:05Z",
		"precificacao_terreno": map[string]any{
			"preco_total_calculado":  "450000.50",
			"preco_unitario_adotado": 1200.0,
		},
	})

	latest, err := g.LatestLand(ctx, "P1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2.0", latest.ID)
	assert.InDelta(t, 450000.50, *latest.Pricing.EstimatedTotal, 1e-9)
	assert.InDelta(t, 1200.0, *latest.Pricing.EstimatedM2, 1e-9)

	v, err := g.LandVersion(ctx, "P1", "2.0")
	require.NoError(t, err)
	assert.Equal(t, latest, v)

	_, err = g.GetAnalysisVersion(ctx, "P1", models.Land, "9.9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestGetLatestAnalysisPicksMaximumDate(t *testing.T) {
	ctx := context.Background()
	g, mem, _ := newTestGateway(t, false)
	path := store.AnalysisPath(g.ProjectsCollection(), "P1", models.Market)
	put(t, mem, path, "1.0", map[string]any{"status": "concluido", "data_criacao": "2025-01-10T00:00:00Z"})
	put(t, mem, path, "3.0", map[string]any{"status": "concluido", "data_criacao": "2025-03-10T00:00:00Z"})
	put(t, mem, path, "2.0", map[string]any{"status": "concluido", "data_criacao": "2025-02-10T00:00:00Z"})

	a, err := g.GetLatestAnalysis(ctx, "P1", models.Market)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, "3.0", a.Header().ID)
	assert.Equal(t, models.Market, a.Kind())
}

func TestGetLatestAnalysisEmptyAndDecodeFailure(t *testing.T) {
	ctx := context.Background()
	g, mem, _ := newTestGateway(t, false)

	a, err := g.GetLatestAnalysis(ctx, "P2", models.Feasibility)
	require.NoError(t, err)
	assert.Nil(t, a)

	f, err := g.LatestFeasibility(ctx, "P2")
	require.NoError(t, err)
	assert.Nil(t, f)

	put(t, mem, store.AnalysisPath(g.ProjectsCollection(), "P3", models.Feasibility), "1.0",
		map[string]any{"status": "concluido"})
	_, err = g.GetLatestAnalysis(ctx, "P3", models.Feasibility)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDecode))
	assert.Equal(t, "data_criacao", errs.FieldOf(err))

	// A document without status decodes.
	put(t, mem, store.AnalysisPath(g.ProjectsCollection(), "P4", models.Feasibility), "1.0",
		map[string]any{"data_criacao": "2025-01-10T00:00:00Z"})
	a, err = g.GetLatestAnalysis(ctx, "P4", models.Feasibility)
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Empty(t, a.Header().Status)
}

func TestListAnalysisVersionsSkipsUndecodable(t *testing.T) {
	ctx := context.Background()
	g, mem, logs := newTestGateway(t, false)
	path := store.AnalysisPath(g.ProjectsCollection(), "P1", models.SolutionSpace)
	put(t, mem, path, "1.0", map[string]any{"data_criacao": "2025-01-10T00:00:00Z"})
	put(t, mem, path, "2.0", map[string]any{"status": "concluido", "data_criacao": 7})
	put(t, mem, path, "3.0", map[string]any{"status": "em_analise", "data_criacao": "2025-03-10T00:00:00Z"})

	versions, err := g.ListAnalysisVersions(ctx, "P1", models.SolutionSpace)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "1.0", versions[0].Header().ID)
	assert.Equal(t, "3.0", versions[1].Header().ID)
	assert.Equal(t, 1, strings.Count(logs.String(), "skipping undecodable document"))
	assert.Contains(t, logs.String(), `"collection":"estudos_viabilidade/P1/analise_espaco_solucoes"`)
}

func TestAnalysisArgumentValidation(t *testing.T) {
	ctx := context.Background()
	g, _, _ := newTestGateway(t, false)

	_, err := g.ListAnalysisVersions(ctx, "", models.Land)
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = g.GetLatestAnalysis(ctx, "P1", models.AnalysisKind("zoning"))
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
	_, err = g.GetAnalysisVersion(ctx, "P1", models.Land, "")
	assert.True(t, errors.Is(err, errs.ErrInvalidArgument))
}

type failingStore struct {
	store.DocumentStore
	err error
}

func (f failingStore) Query(context.Context, string) ([]store.Document, error) { return nil, f.err }
func (f failingStore) Get(context.Context, string, string) (*store.Document, error) {
	return nil, f.err
}
func (f failingStore) QueryOrdered(context.Context, string, string, bool, int) ([]store.Document, error) {
	return nil, f.err
}

func TestStoreFailuresPropagate(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(failingStore{err: errors.New("connection refused")}, zerolog.Nop(), Options{})

	_, err := g.ListProjects(ctx)
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
	_, err = g.GetProject(ctx, "P1")
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
	_, err = g.ListAnalysisVersions(ctx, "P1", models.Land)
	assert.True(t, errors.Is(err, errs.ErrStoreUnavailable))
	_, err = g.GetLatestAnalysis(ctx, "P1", models.Land)
	assert.Equal(t, errs.KindStoreUnavailable, errs.KindOf(err))

	already := errs.StoreUnavailable("query", errors.New("timeout"))
	g = NewGateway(failingStore{err: already}, zerolog.Nop(), Options{})
	_, err = g.ListProjects(ctx)
	assert.Same(t, already, err)
}
