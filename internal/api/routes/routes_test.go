package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sistema-bup-api-server/internal/analysis"
	"sistema-bup-api-server/internal/auth"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/repository"
	"sistema-bup-api-server/internal/session"
	"sistema-bup-api-server/internal/socket"
	"sistema-bup-api-server/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeExporter struct {
	projectID string
	err       error
}

func (f *fakeExporter) ExportSummary(_ context.Context, projectID string, _ *analysis.ConsolidatedSummary) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.projectID = projectID
	return "https://cdn.example.com/resumos/" + projectID + ".json", nil
}

type testServer struct {
	router   *gin.Engine
	mem      *store.MemoryStore
	exporter *fakeExporter
	token    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()
	mem := store.NewMemoryStore()
	gateway := repository.NewGateway(mem, logger, repository.Options{CascadeDelete: true})
	authService := auth.NewService(auth.NewMemoryUserStore(), auth.NewTokenIssuer("test-secret", time.Hour), session.NewMemoryStore(), logger)
	exporter := &fakeExporter{}

	router := SetupRouter(Dependencies{
		Gateway:    gateway,
		Aggregator: analysis.NewAggregator(gateway, logger),
		Auth:       authService,
		Hub:        socket.NewHub(logger),
		Exporter:   exporter,
		Logger:     logger,
	})
	srv := &testServer{router: router, mem: mem, exporter: exporter}

	w := srv.do(t, http.MethodPost, "/api/v1/auth/signup", map[string]string{"email": "ana@example.com", "password": "segredo1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	srv.token = decode(t, w)["token"].(string)
	return srv
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	return s.doWithToken(t, method, path, body, s.token)
}

func (s *testServer) doWithToken(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) putAnalysis(t *testing.T, projectID string, kind models.AnalysisKind, version string, data map[string]any) {
	t.Helper()
	path := store.AnalysisPath(store.DefaultProjectsCollection, projectID, kind)
	require.NoError(t, s.mem.Set(context.Background(), path, version, data, false))
}

func (s *testServer) seedComplete(t *testing.T, projectID string) {
	s.putAnalysis(t, projectID, models.Land, "1.0", map[string]any{
		"status":               "concluido",
		"data_criacao":         "2025-01-01T00:00:00Z",
		"precificacao_terreno": map[string]any{"preco_total_calculado": "450000.50"},
	})
	s.putAnalysis(t, projectID, models.Land, "2.0", map[string]any{
		"status":               "em_analise",
		"data_criacao":         "2025-02-01T00:00:00Z",
		"precificacao_terreno": map[string]any{"preco_total_calculado": 500000},
	})
	s.putAnalysis(t, projectID, models.Market, "1.0", map[string]any{
		"status":            "concluido",
		"data_criacao":      "2025-01-02T00:00:00Z",
		"conclusoes_estudo": map[string]any{"preco_m2_adotado": 7200.5},
	})
	s.putAnalysis(t, projectID, models.SolutionSpace, "1.0", map[string]any{
		"status":               "concluido",
		"data_criacao":         "2025-01-03T00:00:00Z",
		"metricas_viabilidade": map[string]any{"solucoes_viaveis": 6, "solucoes_inviaveis": 4},
	})
	s.putAnalysis(t, projectID, models.Feasibility, "1.0", map[string]any{
		"status":       "concluido",
		"data_criacao": "2025-01-04T00:00:00Z",
		"visao_geral": map[string]any{
			"melhor_solucao": map[string]any{"id": "S2", "lucro": 2500000, "margem": 21.5},
		},
		"solucoes_viaveis": []any{
			map[string]any{"id": "S1", "economia": map[string]any{"lucro": 100}},
			map[string]any{"id": "S2", "economia": map[string]any{"lucro": 2500000}},
		},
		"parecer_viabilidade": map[string]any{"viavel": true, "nivel_risco": "baixo", "recomendacao": "Aprovar"},
	})
}

func validProject() map[string]any {
	return map[string]any{
		"nomeProjeto":   "Residencial Aurora",
		"tipoProjeto":   "residencial",
		"descriProjeto": "Torre unica",
		"nomeCliente":   "Construtora X",
		"dataInicio":    "01/03/2025",
		"endereco":      "Rua A, 100",
		"areaTerreno":   1200.0,
	}
}

func TestAuthRoutes(t *testing.T) {
	srv := newTestServer(t)
	cred := func(email, password string) map[string]string {
		return map[string]string{"email": email, "password": password}
	}

	w := srv.do(t, http.MethodPost, "/api/v1/auth/signup", cred("ana@example.com", "outrasenha"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email_already_in_use", decode(t, w)["error"])

	w = srv.do(t, http.MethodPost, "/api/v1/auth/signup", cred("bia@example.com", "123"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "weak_password", decode(t, w)["error"])

	w = srv.do(t, http.MethodPost, "/api/v1/auth/signin", cred("ana@example.com", "errada"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid_credentials", decode(t, w)["error"])

	w = srv.do(t, http.MethodPost, "/api/v1/auth/signin", cred("ninguem@example.com", "segredo1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user_not_found", decode(t, w)["error"])

	w = srv.do(t, http.MethodPost, "/api/v1/auth/signin", map[string]string{"email": "ana@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.com", decode(t, w)["email"])

	w = srv.do(t, http.MethodPost, "/api/v1/auth/signout", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectsRequireAuthentication(t *testing.T) {
	srv := newTestServer(t)

	w := srv.doWithToken(t, http.MethodGet, "/api/v1/projects", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.doWithToken(t, http.MethodGet, "/api/v1/projects", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProjectLifecycle(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/projects", validProject())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	creation := created["infoCriacao"].(map[string]any)
	assert.Equal(t, "ana@example.com", creation["usuarioCriador"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	update := validProject()
	update["nomeProjeto"] = "Residencial Aurora II"
	w = srv.do(t, http.MethodPut, "/api/v1/projects/"+id, update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = srv.do(t, http.MethodGet, "/api/v1/projects/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "Residencial Aurora II", got["nomeProjeto"])
	assert.Equal(t, 1200.0, got["areaTerreno"])
	assert.Equal(t, creation, got["infoCriacao"])

	w = srv.do(t, http.MethodDelete, "/api/v1/projects/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/projects/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decode(t, w)["error"])
}

func TestCreateProjectValidation(t *testing.T) {
	srv := newTestServer(t)

	incomplete := validProject()
	delete(incomplete, "endereco")
	w := srv.do(t, http.MethodPost, "/api/v1/projects", incomplete)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_argument", body["error"])
	assert.Contains(t, body["message"], "endereco")

	w = srv.do(t, http.MethodPut, "/api/v1/projects/missing", validProject())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalysisRoutes(t *testing.T) {
	srv := newTestServer(t)
	srv.seedComplete(t, "P1")

	w := srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	all := decode(t, w)
	assert.Equal(t, true, all["hasAny"])
	assert.Equal(t, true, all["isComplete"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses/land/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2.0", decode(t, w)["id"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses/analise_terreno", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses/land/versions/1.0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1.0", decode(t, w)["id"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses/land/versions/9.9", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses/weather", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P2/analyses/market/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSummaryRoutes(t *testing.T) {
	srv := newTestServer(t)
	srv.seedComplete(t, "P1")

	w := srv.do(t, http.MethodGet, "/api/v1/projects/P1/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resumo := decode(t, w)["resumo"].(map[string]any)
	assert.Equal(t, 500000.0, resumo["valorEstimadoTerreno"])
	assert.Equal(t, 7200.5, resumo["precoReferenciaM2"])
	assert.Equal(t, 60.0, resumo["taxaViabilidade"])
	assert.Equal(t, "Aprovar", resumo["parecer"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P2/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["resumo"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P1/best-solution", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "S2", decode(t, w)["id"])

	w = srv.do(t, http.MethodGet, "/api/v1/projects/P2/best-solution", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodPost, "/api/v1/projects/P1/summary/export", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "https://cdn.example.com/resumos/P1.json", decode(t, w)["url"])
	assert.Equal(t, "P1", srv.exporter.projectID)

	w = srv.do(t, http.MethodPost, "/api/v1/projects/P2/summary/export", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	srv.exporter.err = errors.New("bucket missing")
	w = srv.do(t, http.MethodPost, "/api/v1/projects/P1/summary/export", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "store_unavailable", decode(t, w)["error"])
}

func TestUndecodableLatestIsUnprocessable(t *testing.T) {
	srv := newTestServer(t)
	srv.putAnalysis(t, "P1", models.Market, "1.0", map[string]any{"status": "concluido"})

	w := srv.do(t, http.MethodGet, "/api/v1/projects/P1/analyses/market/latest", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "decode", decode(t, w)["error"])
}

func TestCORSConfig(t *testing.T) {
	cfg := corsConfig([]string{"*"})
	assert.True(t, cfg.AllowAllOrigins)
	assert.Empty(t, cfg.AllowOrigins)

	cfg = corsConfig([]string{"http://a.test"})
	assert.False(t, cfg.AllowAllOrigins)
	assert.Equal(t, []string{"http://a.test"}, cfg.AllowOrigins)
}
