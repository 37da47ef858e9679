package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"sistema-bup-api-server/internal/errs"
)

func projectInfo() map[string]any {
	return map[string]any{
		"nome_projeto":   "Residencial Atlântico",
		"tipo_projeto":   "residencial",
		"descri_projeto": "Torre única com 20 pavimentos",
		"nome_cliente":   "Construtora Litoral",
		"data_inicio":    "01/03/2025",
		"endereco":       "Av. Oceânica, 100",
		"info_criacao": map[string]any{
			"data_criacao":    "2025-03-01T10:00:00Z",
			"usuario_criador": "user-1",
		},
		"area_terreno": "1250,5",
		"ca_bas":       1.5,
		"ca_max":       4,
		"latitude":     "-12.9714",
	}
}

func TestDecodeProjectNested(t *testing.T) {
	p, err := DecodeProject("P1", map[string]any{ProjectInfoKey: projectInfo()})
	require.NoError(t, err)

	assert.Equal(t, "P1", p.ID)
	assert.Equal(t, "Residencial Atlântico", p.Name)
	assert.Equal(t, "01/03/2025", p.StartDate)
	assert.Equal(t, "user-1", p.Creation.CreatedBy)
	require.NotNil(t, p.LotArea)
	assert.InDelta(t, 1250.5, *p.LotArea, 1e-9)
	require.NotNil(t, p.BaseCoefficient)
	assert.InDelta(t, 1.5, *p.BaseCoefficient, 1e-9)
	require.NotNil(t, p.MaxCoefficient)
	assert.InDelta(t, 4.0, *p.MaxCoefficient, 1e-9)
	require.NotNil(t, p.Latitude)
	assert.InDelta(t, -12.9714, *p.Latitude, 1e-9)
	assert.Nil(t, p.Zoning)
	assert.Nil(t, p.MinCoefficient)
}

func TestDecodeProjectFlatLayout(t *testing.T) {
	p, err := DecodeProject("P1", projectInfo())
	require.NoError(t, err)
	assert.Equal(t, "Construtora Litoral", p.Client)
}

func TestDecodeProjectMissingRequiredField(t *testing.T) {
	info := projectInfo()
	delete(info, "nome_projeto")

	_, err := DecodeProject("P1", map[string]any{ProjectInfoKey: info})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDecode))
	assert.Equal(t, "informacao_projeto.nome_projeto", errs.FieldOf(err))
}

func TestDecodeProjectMistypedRequiredField(t *testing.T) {
	info := projectInfo()
	info["endereco"] = 42

	_, err := DecodeProject("P1", info)
	require.Error(t, err)
	assert.Equal(t, "endereco", errs.FieldOf(err))
}

func TestDecodeProjectBadOptionalFieldIsDropped(t *testing.T) {
	info := projectInfo()
	info["ca_min"] = "não informado"
	info["zona_urbanistica"] = []any{"ZR1"}

	p, err := DecodeProject("P1", info)
	require.NoError(t, err)
	assert.Nil(t, p.MinCoefficient)
	assert.Nil(t, p.Zoning)
}

func TestDecodeProjectNativeCreationTimestamp(t *testing.T) {
	info := projectInfo()
	info["info_criacao"] = map[string]any{
		"data_criacao":    primitive.DateTime(1740823200000),
		"usuario_criador": "user-1",
	}

	p, err := DecodeProject("P1", info)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01T10:00:00Z", p.Creation.CreatedAt)
}

func TestDecodeProjectIgnoresPayloadID(t *testing.T) {
	info := projectInfo()
	info["id"] = "forged"

	p, err := DecodeProject("store-id", map[string]any{ProjectInfoKey: info, "id": "forged"})
	require.NoError(t, err)
	assert.Equal(t, "store-id", p.ID)
}

func TestProjectDocumentRoundTrip(t *testing.T) {
	p, err := DecodeProject("P1", map[string]any{ProjectInfoKey: projectInfo()})
	require.NoError(t, err)

	again, err := DecodeProject("P1", p.Document())
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestProjectValidate(t *testing.T) {
	p := &Project{Name: "A", Type: "B", Description: "C", Client: "D", StartDate: "E", Address: "F"}
	assert.NoError(t, p.Validate())

	p.Client = "  "
	p.Address = ""
	err := p.Validate()
	require.Error(t, err)
	assert.Equal(t, "missing required attributes: endereco, nomeCliente", err.Error())
}
