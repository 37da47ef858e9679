// server/internal/models/feasibility_analysis.go
package models

import "sort"

// FeasibilityAnalysis is the final verdict over the viable solutions of a project.
type FeasibilityAnalysis struct {
	AnalysisHeader
	EvaluatedCount  *int                 `json:"quantidadeSolucoesAvaliadas,omitempty"`
	ViableCount     *int                 `json:"quantidadeSolucoesViaveis,omitempty"`
	Overview        *FeasibilityOverview `json:"visaoGeral,omitempty"`
	ViableSolutions []Solution           `json:"solucoesViaveis,omitempty"`
	Opinion         *FeasibilityOpinion  `json:"parecerViabilidade,omitempty"`
}

type FeasibilityOverview struct {
	Best   *SolutionSummary `json:"melhorSolucao,omitempty"`
	Median *SolutionSummary `json:"solucaoMediana,omitempty"`
}

type SolutionSummary struct {
	ID     string   `json:"id"`
	Profit *float64 `json:"lucro,omitempty"`
	Margin *float64 `json:"margem,omitempty"`
	NPV    *float64 `json:"vpl,omitempty"`
	IRR    *float64 `json:"tir,omitempty"`
}

// Solution is one fully described viable building configuration.
type Solution struct {
	ID            string                `json:"id"`
	Configuration SolutionConfiguration `json:"configuracao"`
	Economics     SolutionEconomics     `json:"economia"`
	MeetsCriteria *bool                 `json:"atendeCriterios,omitempty"`
}

type SolutionConfiguration struct {
	Floors        *int     `json:"pavimentos,omitempty"`
	UnitsPerFloor *int     `json:"unidadesPorAndar,omitempty"`
	TotalUnits    *int     `json:"totalUnidades,omitempty"`
	UnitArea      *float64 `json:"areaUnidade,omitempty"`
	Bedrooms      *int     `json:"quartos,omitempty"`
	Suites        *int     `json:"suites,omitempty"`
	ParkingSpots  *int     `json:"vagas,omitempty"`
}

type SolutionEconomics struct {
	GrossSalesValue *float64 `json:"vgv,omitempty"`
	TotalCost       *float64 `json:"custoTotal,omitempty"`
	Profit          *float64 `json:"lucro,omitempty"`
	Margin          *float64 `json:"margem,omitempty"`
	NPV             *float64 `json:"vpl,omitempty"`
	IRR             *float64 `json:"tir,omitempty"`
	PaybackYears    *float64 `json:"paybackAnos,omitempty"`
}

type FeasibilityOpinion struct {
	Viable         *bool   `json:"viavel,omitempty"`
	RiskLevel      *string `json:"nivelRisco,omitempty"`
	Recommendation *string `json:"recomendacao,omitempty"`
}

func (a *FeasibilityAnalysis) Kind() AnalysisKind      { return Feasibility }
func (a *FeasibilityAnalysis) Header() *AnalysisHeader { return &a.AnalysisHeader }

var feasibilitySchema = Schema{
	opt("quantidade_solucoes_avaliadas", KindInt, "total_solucoes_avaliadas"),
	opt("quantidade_solucoes_viaveis", KindInt, "total_solucoes_viaveis"),
	opt("visao_geral", KindObject),
	opt("solucoes_viaveis", KindAny),
	opt("parecer_viabilidade", KindObject),
	opt("parecer_info", KindObject),
}

var parecerInfoSchema = Schema{
	opt("quantidade_solucoes_avaliadas", KindInt, "solucoes_avaliadas"),
	opt("quantidade_solucoes_viaveis", KindInt, "solucoes_viaveis"),
	opt("solucao_escolhida", KindFlexString),
	opt("viavel", KindBool),
	opt("nivel_risco", KindString),
	opt("recomendacao", KindString),
	opt("parecer", KindString),
}

var solutionSummarySchema = Schema{
	req("id", KindFlexString),
	opt("lucro", KindNumber, "lucro_incorporacao"),
	opt("margem", KindNumber),
	opt("vpl", KindNumber),
	opt("tir", KindNumber),
}

var solutionSchema = Schema{
	opt("id", KindFlexString),
	opt("configuracao", KindObject),
	opt("economia", KindObject),
	opt("atende_criterios", KindBool),
}

var solutionConfigurationSchema = Schema{
	opt("pavimentos", KindInt),
	opt("unidades_por_andar", KindInt),
	opt("total_unidades", KindInt),
	opt("area_unidade", KindNumber),
	opt("quartos", KindInt),
	opt("suites", KindInt),
	opt("vagas", KindInt),
}

var solutionEconomicsSchema = Schema{
	opt("vgv", KindNumber, "receita"),
	opt("custo_total", KindNumber, "custo_total_empreendimento"),
	opt("lucro", KindNumber, "lucro_incorporacao"),
	opt("margem", KindNumber),
	opt("vpl", KindNumber),
	opt("tir", KindNumber),
	opt("payback_anos", KindNumber, "payback"),
}

var feasibilityOpinionSchema = Schema{
	opt("viavel", KindBool),
	opt("nivel_risco", KindString),
	opt("recomendacao", KindString),
	opt("parecer", KindString),
}

// DecodeFeasibilityAnalysis decodes a feasibility analysis document. Older
// documents keep counts and the chosen solution under parecer_info and store
// the viable solutions as an id-keyed map.
func DecodeFeasibilityAnalysis(id string, data map[string]any) (*FeasibilityAnalysis, error) {
	header, err := decodeHeader(id, data)
	if err != nil {
		return nil, err
	}
	body, err := feasibilitySchema.Decode(data, "")
	if err != nil {
		return nil, err
	}
	info, _ := decodeObject(body, "parecer_info", parecerInfoSchema)

	a := &FeasibilityAnalysis{
		AnalysisHeader:  header,
		EvaluatedCount:  body.Int("quantidade_solucoes_avaliadas"),
		ViableCount:     body.Int("quantidade_solucoes_viaveis"),
		ViableSolutions: decodeSolutions(body["solucoes_viaveis"]),
	}
	if info != nil {
		if a.EvaluatedCount == nil {
			a.EvaluatedCount = info.Int("quantidade_solucoes_avaliadas")
		}
		if a.ViableCount == nil {
			a.ViableCount = info.Int("quantidade_solucoes_viaveis")
		}
	}
	if a.ViableCount == nil && a.ViableSolutions != nil {
		n := len(a.ViableSolutions)
		a.ViableCount = &n
	}

	if overview := body.Object("visao_geral"); overview != nil {
		a.Overview = &FeasibilityOverview{
			Best:   decodeSolutionSummary(overview["melhor_solucao"]),
			Median: decodeSolutionSummary(overview["solucao_mediana"]),
		}
		if a.Overview.Best == nil && a.Overview.Median == nil {
			a.Overview = nil
		}
	}
	if a.Overview == nil && info != nil {
		if chosen := info.Text("solucao_escolhida"); chosen != "" {
			a.Overview = &FeasibilityOverview{Best: summaryFromSolution(chosen, a.ViableSolutions)}
		}
	}

	if vals, ok := decodeObject(body, "parecer_viabilidade", feasibilityOpinionSchema); ok {
		a.Opinion = &FeasibilityOpinion{
			Viable:         vals.Bool("viavel"),
			RiskLevel:      vals.TextPtr("nivel_risco"),
			Recommendation: firstString(vals.TextPtr("recomendacao"), vals.TextPtr("parecer")),
		}
	} else if info != nil && (info.Has("viavel") || info.Has("nivel_risco") || info.Has("recomendacao") || info.Has("parecer")) {
		a.Opinion = &FeasibilityOpinion{
			Viable:         info.Bool("viavel"),
			RiskLevel:      info.TextPtr("nivel_risco"),
			Recommendation: firstString(info.TextPtr("recomendacao"), info.TextPtr("parecer")),
		}
	}
	return a, nil
}

func decodeSolutionSummary(raw any) *SolutionSummary {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	vals, err := solutionSummarySchema.Decode(m, "visao_geral")
	if err != nil {
		return nil
	}
	return &SolutionSummary{
		ID:     vals.Text("id"),
		Profit: vals.Number("lucro"),
		Margin: vals.Number("margem"),
		NPV:    vals.Number("vpl"),
		IRR:    vals.Number("tir"),
	}
}

// summaryFromSolution builds the overview entry for a legacy chosen-solution pointer.
func summaryFromSolution(id string, solutions []Solution) *SolutionSummary {
	s := &SolutionSummary{ID: id}
	for _, sol := range solutions {
		if sol.ID == id {
			s.Profit = sol.Economics.Profit
			s.Margin = sol.Economics.Margin
			s.NPV = sol.Economics.NPV
			s.IRR = sol.Economics.IRR
			break
		}
	}
	return s
}

// decodeSolutions accepts an array of solution records or an id-keyed map.
func decodeSolutions(raw any) []Solution {
	switch v := raw.(type) {
	case []any:
		out := make([]Solution, 0, len(v))
		for _, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := decodeSolution("", m); ok {
				out = append(out, s)
			}
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Solution, 0, len(v))
		for _, k := range keys {
			m, ok := v[k].(map[string]any)
			if !ok {
				continue
			}
			if s, ok := decodeSolution(k, m); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func decodeSolution(key string, m map[string]any) (Solution, bool) {
	vals, err := solutionSchema.Decode(m, "solucoes_viaveis")
	if err != nil {
		return Solution{}, false
	}
	s := Solution{ID: vals.Text("id"), MeetsCriteria: vals.Bool("atende_criterios")}
	if key != "" {
		s.ID = key
	}
	if s.ID == "" {
		return Solution{}, false
	}

	// Flat records carry configuration and economics at the top level.
	config := vals.Object("configuracao")
	if config == nil {
		config = m
	}
	if c, err := solutionConfigurationSchema.Decode(config, "configuracao"); err == nil {
		s.Configuration = SolutionConfiguration{
			Floors:        c.Int("pavimentos"),
			UnitsPerFloor: c.Int("unidades_por_andar"),
			TotalUnits:    c.Int("total_unidades"),
			UnitArea:      c.Number("area_unidade"),
			Bedrooms:      c.Int("quartos"),
			Suites:        c.Int("suites"),
			ParkingSpots:  c.Int("vagas"),
		}
	}
	economics := vals.Object("economia")
	if economics == nil {
		economics = m
	}
	if e, err := solutionEconomicsSchema.Decode(economics, "economia"); err == nil {
		s.Economics = SolutionEconomics{
			GrossSalesValue: e.Number("vgv"),
			TotalCost:       e.Number("custo_total"),
			Profit:          e.Number("lucro"),
			Margin:          e.Number("margem"),
			NPV:             e.Number("vpl"),
			IRR:             e.Number("tir"),
			PaybackYears:    e.Number("payback_anos"),
		}
	}
	return s, true
}

// BestSolution resolves the overview's best-solution id against the viable
// solutions. It returns nil when either side is missing.
func (a *FeasibilityAnalysis) BestSolution() *Solution {
	if a == nil || a.Overview == nil || a.Overview.Best == nil || a.Overview.Best.ID == "" {
		return nil
	}
	for i := range a.ViableSolutions {
		if a.ViableSolutions[i].ID == a.Overview.Best.ID {
			s := a.ViableSolutions[i]
			return &s
		}
	}
	return nil
}
