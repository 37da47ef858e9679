// server/internal/models/project.go
package models

import (
	"errors"
	"sort"
	"strings"
)

// ProjectInfoKey is the nested object holding every project attribute.
const ProjectInfoKey = "informacao_projeto"

// Project is one feasibility study ("projeto"). Zoning attributes are optional
// and independently nil.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"nomeProjeto"`
	Type        string          `json:"tipoProjeto"`
	Description string          `json:"descriProjeto"`
	Client      string          `json:"nomeCliente"`
	StartDate   string          `json:"dataInicio"` // free text, not validated
	Address     string          `json:"endereco"`
	Creation    ProjectCreation `json:"infoCriacao"`

	GeneralNotes      *string  `json:"anotacoesGerais,omitempty"`
	LegislationNotes  *string  `json:"anotacoesLegislacao,omitempty"`
	LotArea           *float64 `json:"areaTerreno,omitempty"`
	BaseCoefficient   *float64 `json:"caBase,omitempty"`
	MaxCoefficient    *float64 `json:"caMax,omitempty"`
	MinCoefficient    *float64 `json:"caMin,omitempty"`
	OccupancyIndex    *float64 `json:"io,omitempty"`
	PermeabilityIndex *float64 `json:"ip,omitempty"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	Zoning            *string  `json:"zonaUrbanistica,omitempty"`
	FrontSetback      *float64 `json:"recuoFrontal,omitempty"`
	SideSetback       *float64 `json:"recuoLateral,omitempty"`
	RearSetback       *float64 `json:"recuoFundos,omitempty"`
}

type ProjectCreation struct {
	CreatedAt string `json:"dataCriacao"`
	CreatedBy string `json:"usuarioCriador"`
}

var projectSchema = Schema{
	req("nome_projeto", KindString),
	req("tipo_projeto", KindString),
	req("descri_projeto", KindString),
	req("nome_cliente", KindString),
	req("data_inicio", KindString),
	req("endereco", KindString),
	req("info_criacao", KindObject),

	opt("anotacoes_gerais", KindString),
	opt("anotacoes_legislacao", KindString),
	opt("area_terreno", KindNumber),
	opt("ca_bas", KindNumber, "ca_base"),
	opt("ca_max", KindNumber),
	opt("ca_min", KindNumber),
	opt("io", KindNumber),
	opt("ip", KindNumber),
	opt("latitude", KindNumber),
	opt("longitude", KindNumber),
	opt("zona_urbanistica", KindString),
	opt("recuo_frontal", KindNumber),
	opt("recuo_lateral", KindNumber),
	opt("recuo_fundos", KindNumber),
}

var projectCreationSchema = Schema{
	req("data_criacao", KindDate),
	req("usuario_criador", KindString),
}

// DecodeProject decodes a project document. Attributes live under
// informacao_projeto; documents written before that wrapper existed keep them
// at the top level.
func DecodeProject(id string, data map[string]any) (*Project, error) {
	path := ""
	info := data
	if nested, ok := data[ProjectInfoKey].(map[string]any); ok {
		info = nested
		path = ProjectInfoKey
	}

	vals, err := projectSchema.Decode(info, path)
	if err != nil {
		return nil, err
	}
	creation, err := projectCreationSchema.Decode(vals.Object("info_criacao"), join(path, "info_criacao"))
	if err != nil {
		return nil, err
	}

	return &Project{
		ID:          id,
		Name:        vals.Text("nome_projeto"),
		Type:        vals.Text("tipo_projeto"),
		Description: vals.Text("descri_projeto"),
		Client:      vals.Text("nome_cliente"),
		StartDate:   vals.Text("data_inicio"),
		Address:     vals.Text("endereco"),
		Creation: ProjectCreation{
			CreatedAt: creation.Text("data_criacao"),
			CreatedBy: creation.Text("usuario_criador"),
		},
		GeneralNotes:      vals.TextPtr("anotacoes_gerais"),
		LegislationNotes:  vals.TextPtr("anotacoes_legislacao"),
		LotArea:           vals.Number("area_terreno"),
		BaseCoefficient:   vals.Number("ca_bas"),
		MaxCoefficient:    vals.Number("ca_max"),
		MinCoefficient:    vals.Number("ca_min"),
		OccupancyIndex:    vals.Number("io"),
		PermeabilityIndex: vals.Number("ip"),
		Latitude:          vals.Number("latitude"),
		Longitude:         vals.Number("longitude"),
		Zoning:            vals.TextPtr("zona_urbanistica"),
		FrontSetback:      vals.Number("recuo_frontal"),
		SideSetback:       vals.Number("recuo_lateral"),
		RearSetback:       vals.Number("recuo_fundos"),
	}, nil
}

// Validate checks the attributes a project must carry to be written.
func (p *Project) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"nomeProjeto":   p.Name,
		"tipoProjeto":   p.Type,
		"descriProjeto": p.Description,
		"nomeCliente":   p.Client,
		"dataInicio":    p.StartDate,
		"endereco":      p.Address,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.New("missing required attributes: " + strings.Join(missing, ", "))
	}
	return nil
}

// Document encodes the project in its stored layout. The id is never part of
// the payload.
func (p *Project) Document() map[string]any {
	info := map[string]any{
		"nome_projeto":   p.Name,
		"tipo_projeto":   p.Type,
		"descri_projeto": p.Description,
		"nome_cliente":   p.Client,
		"data_inicio":    p.StartDate,
		"endereco":       p.Address,
		"info_criacao": map[string]any{
			"data_criacao":    p.Creation.CreatedAt,
			"usuario_criador": p.Creation.CreatedBy,
		},
	}
	putString(info, "anotacoes_gerais", p.GeneralNotes)
	putString(info, "anotacoes_legislacao", p.LegislationNotes)
	putNumber(info, "area_terreno", p.LotArea)
	putNumber(info, "ca_bas", p.BaseCoefficient)
	putNumber(info, "ca_max", p.MaxCoefficient)
	putNumber(info, "ca_min", p.MinCoefficient)
	putNumber(info, "io", p.OccupancyIndex)
	putNumber(info, "ip", p.PermeabilityIndex)
	putNumber(info, "latitude", p.Latitude)
	putNumber(info, "longitude", p.Longitude)
	putString(info, "zona_urbanistica", p.Zoning)
	putNumber(info, "recuo_frontal", p.FrontSetback)
	putNumber(info, "recuo_lateral", p.SideSetback)
	putNumber(info, "recuo_fundos", p.RearSetback)
	return map[string]any{ProjectInfoKey: info}
}

func putString(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}

func putNumber(m map[string]any, key string, v *float64) {
	if v != nil {
		m[key] = *v
	}
}
