package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"sistema-bup-api-server/internal/errs"
	"sistema-bup-api-server/internal/models"
)

func TestAnalysisPath(t *testing.T) {
	assert.Equal(t, "estudos_viabilidade/P1/analise_terreno", AnalysisPath(DefaultProjectsCollection, "P1", models.Land))
	assert.Equal(t, "estudos_viabilidade/P1/analise_viabilidade", AnalysisPath(DefaultProjectsCollection, "P1", models.Feasibility))
}

func TestParsePath(t *testing.T) {
	ref, err := parsePath("estudos_viabilidade/P1/analise_mercado")
	require.NoError(t, err)
	assert.Equal(t, "analise_mercado", ref.name)
	assert.Equal(t, "estudos_viabilidade/P1", ref.parent)

	ref, err = parsePath("/estudos_viabilidade/")
	require.NoError(t, err)
	assert.Equal(t, "estudos_viabilidade", ref.name)
	assert.Empty(t, ref.parent)

	for _, bad := range []string{"", "a/b", "a//c"} {
		_, err := parsePath(bad)
		assert.True(t, errors.Is(err, errs.ErrInvalidArgument), bad)
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Add(ctx, "projetos", map[string]any{"nome": "A", "info": map[string]any{"x": 1, "y": 2}})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "projetos", id)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "A", doc.Data["nome"])

	// Returned documents are copies.
	doc.Data["nome"] = "mutated"
	again, _ := s.Get(ctx, "projetos", id)
	assert.Equal(t, "A", again.Data["nome"])

	require.NoError(t, s.Set(ctx, "projetos", id, map[string]any{"info": map[string]any{"y": 3}}, true))
	doc, _ = s.Get(ctx, "projetos", id)
	assert.Equal(t, "A", doc.Data["nome"])
	assert.Equal(t, map[string]any{"x": 1, "y": 3}, doc.Data["info"])

	require.NoError(t, s.Set(ctx, "projetos", id, map[string]any{"nome": "B"}, false))
	doc, _ = s.Get(ctx, "projetos", id)
	assert.Equal(t, map[string]any{"nome": "B"}, doc.Data)

	require.NoError(t, s.Delete(ctx, "projetos", id))
	doc, err = s.Get(ctx, "projetos", id)
	require.NoError(t, err)
	assert.Nil(t, doc)

	require.NoError(t, s.Delete(ctx, "projetos", "missing"))
}

func TestMemoryStoreSubcollectionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "estudos_viabilidade/P1/analise_terreno", "1.0", map[string]any{"status": "a"}, false))
	require.NoError(t, s.Set(ctx, "estudos_viabilidade/P2/analise_terreno", "1.0", map[string]any{"status": "b"}, false))

	docs, err := s.Query(ctx, "estudos_viabilidade/P1/analise_terreno")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].Data["status"])

	docs, err = s.Query(ctx, "estudos_viabilidade/P3/analise_terreno")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestMemoryStoreQueryOrderedMixedDateEncodings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	path := "estudos_viabilidade/P1/analise_terreno"

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Set(ctx, path, "1.0", map[string]any{"data_criacao": "2025-01-01T00:00:00Z"}, false))
	require.NoError(t, s.Set(ctx, path, "3.0", map[string]any{"data_criacao": primitive.NewDateTimeFromTime(base.AddDate(0, 2, 0))}, false))
	require.NoError(t, s.Set(ctx, path, "2.0", map[string]any{"data_criacao": "2025-02-01 09:00:00"}, false))
	require.NoError(t, s.Set(ctx, path, "0.1", map[string]any{}, false))

	docs, err := s.QueryOrdered(ctx, path, "data_criacao", true, 0)
	require.NoError(t, err)
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"3.0", "2.0", "1.0", "0.1"}, ids)

	docs, err = s.QueryOrdered(ctx, path, "data_criacao", false, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "0.1", docs[0].ID)
}

func TestMemoryStoreQueryOrderedNumbers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for id, v := range map[string]any{"a": 10, "b": "9,5", "c": 100.25} {
		require.NoError(t, s.Set(ctx, "c", id, map[string]any{"n": v}, false))
	}
	docs, err := s.QueryOrdered(ctx, "c", "n", false, 0)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Add(ctx, "c", map[string]any{"v": 1})
			assert.NoError(t, err)
			_, err = s.Query(ctx, "c")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	docs, err := s.Query(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, docs, 20)
}

func TestMemoryStoreHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemoryStore().Query(ctx, "c")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToDocumentNormalizesDriverTypes(t *testing.T) {
	oid := primitive.NewObjectID()
	created := primitive.NewDateTimeFromTime(time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC))
	doc := toDocument(bson.M{
		"_id":     oid,
		"_parent": "estudos_viabilidade/P1",
		"status":  "concluido",
		"nested":  bson.M{"list": bson.A{int32(1), bson.D{{Key: "k", Value: "v"}}}},
		"created": created,
	})

	assert.Equal(t, oid.Hex(), doc.ID)
	assert.NotContains(t, doc.Data, "_id")
	assert.NotContains(t, doc.Data, ParentField)
	assert.Equal(t, map[string]any{"list": []any{int32(1), map[string]any{"k": "v"}}}, doc.Data["nested"])
	assert.Equal(t, created, doc.Data["created"])
}

func TestFlatten(t *testing.T) {
	out := bson.M{}
	flatten("", map[string]any{
		"informacao_projeto": map[string]any{"nome_projeto": "A", "info_criacao": map[string]any{"usuario_criador": "u"}},
		"empty":              map[string]any{},
		"n":                  1,
	}, out)
	assert.Equal(t, bson.M{
		"informacao_projeto.nome_projeto":                 "A",
		"informacao_projeto.info_criacao.usuario_criador": "u",
		"empty": map[string]any{},
		"n":     1,
	}, out)
}

func TestIDFilter(t *testing.T) {
	assert.Equal(t, "1.0", idFilter("1.0"))
	oid := primitive.NewObjectID()
	assert.Equal(t, bson.M{"$in": bson.A{oid.Hex(), oid}}, idFilter(oid.Hex()))
}

func TestWritesAddressDocumentsLikeReads(t *testing.T) {
	ref, err := parsePath("estudos_viabilidade/P1/analise_terreno")
	require.NoError(t, err)
	oid := primitive.NewObjectID()

	for _, id := range []string{"1.0", oid.Hex()} {
		filter := matchFilter(ref, id)
		assert.Equal(t, idFilter(id), filter["_id"], id)
		assert.Equal(t, "estudos_viabilidade/P1", filter[ParentField])
	}

	// Upserts target the stored _id, never the $in used to find it.
	assert.Equal(t, bson.M{"_id": oid, ParentField: "estudos_viabilidade/P1"}, upsertFilter(ref, oid))
	top, err := parsePath("users")
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": "u1"}, upsertFilter(top, "u1"))
	assert.Equal(t, bson.M{"_id": "u1"}, matchFilter(top, "u1"))
}

func TestOrderedPipeline(t *testing.T) {
	filter := bson.M{ParentField: "estudos_viabilidade/P1"}
	pipeline := orderedPipeline(filter, models.CreatedAtField, true, 1)
	require.Len(t, pipeline, 5)

	// $match leads so the {_parent, data_criacao} index can narrow the scan.
	assert.Equal(t, "$match", pipeline[0][0].Key)
	assert.Equal(t, filter, pipeline[0][0].Value)
	assert.Equal(t, bson.D{{Key: "_order", Value: -1}, {Key: "_id", Value: -1}}, pipeline[2][0].Value)
	assert.Equal(t, bson.D{{Key: "$limit", Value: 1}}, pipeline[3])
	assert.Equal(t, "$project", pipeline[4][0].Key)

	assert.Len(t, orderedPipeline(filter, models.CreatedAtField, false, 0), 4)
}
