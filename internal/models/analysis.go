// server/internal/models/analysis.go
package models

import (
	"fmt"
	"strings"
)

// AnalysisKind names one of the four per-project analysis sub-collections.
type AnalysisKind string

const (
	Land          AnalysisKind = "land"
	Market        AnalysisKind = "market"
	SolutionSpace AnalysisKind = "solutionSpace"
	Feasibility   AnalysisKind = "feasibility"
)

// AllAnalysisKinds lists the kinds in display order.
var AllAnalysisKinds = []AnalysisKind{Land, Market, SolutionSpace, Feasibility}

// Collection returns the sub-collection name under a project document.
func (k AnalysisKind) Collection() string {
	switch k {
	case Land:
		return "analise_terreno"
	case Market:
		return "analise_mercado"
	case SolutionSpace:
		return "analise_espaco_solucoes"
	case Feasibility:
		return "analise_viabilidade"
	default:
		return ""
	}
}

func (k AnalysisKind) Valid() bool { return k.Collection() != "" }

// ParseAnalysisKind accepts the kind name, its kebab/snake variants and the
// sub-collection name.
func ParseAnalysisKind(s string) (AnalysisKind, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	switch normalized {
	case "land", "terreno", "analiseterreno":
		return Land, nil
	case "market", "mercado", "analisemercado":
		return Market, nil
	case "solutionspace", "espacosolucoes", "analiseespacosolucoes":
		return SolutionSpace, nil
	case "feasibility", "viabilidade", "analiseviabilidade":
		return Feasibility, nil
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}

// KindForCollection maps a sub-collection name back to its kind.
func KindForCollection(name string) (AnalysisKind, bool) {
	for _, k := range AllAnalysisKinds {
		if k.Collection() == name {
			return k, true
		}
	}
	return "", false
}

// CreatedAtField is the ordering key of every analysis sub-collection.
const CreatedAtField = "data_criacao"

// Analysis is implemented by the four analysis documents.
type Analysis interface {
	Kind() AnalysisKind
	Header() *AnalysisHeader
}

// AnalysisHeader carries the attributes shared by every analysis version.
type AnalysisHeader struct {
	ID        string            `json:"id"`
	Version   string            `json:"versao"`
	Status    string            `json:"status,omitempty"`
	CreatedAt string            `json:"dataCriacao"`
	Creation  *AnalysisCreation `json:"infoCriacao,omitempty"`
}

type AnalysisCreation struct {
	Date           string `json:"data,omitempty"`
	User           string `json:"usuario,omitempty"`
	TotalSolutions *int   `json:"totalSolucoes,omitempty"`
}

// The creation date is the only required header attribute and has no aliases:
// it is also the ordering key of the sub-collection.
var headerSchema = Schema{
	req(CreatedAtField, KindDate),
	opt("status", KindString),
	opt("versao", KindFlexString, "versao_analise", "version"),
	opt("info_criacao", KindObject),
}

var analysisCreationSchema = Schema{
	opt("data", KindDate, "data_criacao"),
	opt("usuario", KindString, "usuario_criador"),
	opt("total_solucoes", KindInt),
}

// StatusColor maps an analysis status label to the badge colour shown to users.
func StatusColor(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "concluido", "concluído":
		return "green"
	case "em_analise", "em análise":
		return "orange"
	case "pendente":
		return "gray"
	default:
		return "blue"
	}
}

// ReliabilityColor maps a technical-opinion reliability label to a colour.
func ReliabilityColor(reliability string) string {
	switch strings.ToLower(strings.TrimSpace(reliability)) {
	case "alta":
		return "green"
	case "média", "media":
		return "orange"
	case "baixa":
		return "red"
	default:
		return "gray"
	}
}

// decodeHeader decodes the shared attributes; id always comes from the store.
func decodeHeader(id string, raw map[string]any) (AnalysisHeader, error) {
	vals, err := headerSchema.Decode(raw, "")
	if err != nil {
		return AnalysisHeader{}, err
	}
	h := AnalysisHeader{
		ID:        id,
		Version:   vals.Text("versao"),
		Status:    vals.Text("status"),
		CreatedAt: vals.Text(CreatedAtField),
	}
	if creation, ok := decodeObject(vals, "info_criacao", analysisCreationSchema); ok {
		h.Creation = &AnalysisCreation{
			Date:           creation.Text("data"),
			User:           creation.Text("usuario"),
			TotalSolutions: creation.Int("total_solucoes"),
		}
	}
	if h.Version == "" {
		h.Version = id
	}
	return h, nil
}

// payloadRoot resolves the variant payload: newer documents nest it under key,
// older ones keep the same fields at the top level.
func payloadRoot(raw map[string]any, key string) map[string]any {
	if nested, ok := raw[key].(map[string]any); ok {
		return nested
	}
	return raw
}

// DecodeAnalysis dispatches to the decoder for kind.
func DecodeAnalysis(kind AnalysisKind, id string, data map[string]any) (Analysis, error) {
	var (
		a   Analysis
		err error
	)
	switch kind {
	case Land:
		var land *LandAnalysis
		land, err = DecodeLandAnalysis(id, data)
		a = land
	case Market:
		var market *MarketAnalysis
		market, err = DecodeMarketAnalysis(id, data)
		a = market
	case SolutionSpace:
		var space *SolutionSpaceAnalysis
		space, err = DecodeSolutionSpaceAnalysis(id, data)
		a = space
	case Feasibility:
		var feasibility *FeasibilityAnalysis
		feasibility, err = DecodeFeasibilityAnalysis(id, data)
		a = feasibility
	default:
		return nil, fmt.Errorf("unknown analysis kind %q", kind)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}
