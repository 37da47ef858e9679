// server/internal/models/solution_space_analysis.go
package models

// SolutionSpaceAnalysis summarises the statistics of every generated solution.
type SolutionSpaceAnalysis struct {
	AnalysisHeader
	ProfitStats      *SummaryStats              `json:"estatisticasLucros,omitempty"`
	MarginStats      *SummaryStats              `json:"estatisticasMargens,omitempty"`
	CriteriaMetrics  map[string]CriterionMetric `json:"metricasCriterios,omitempty"`
	ViabilityMetrics *ViabilityMetrics          `json:"metricasViabilidade,omitempty"`
	Distributions    map[string][]float64       `json:"distribuicoes,omitempty"`
}

// SummaryStats accepts both naming conventions: max/min and maxima/minima.
type SummaryStats struct {
	Mean   *float64 `json:"media,omitempty"`
	Median *float64 `json:"mediana,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Min    *float64 `json:"min,omitempty"`
}

type CriterionMetric struct {
	Count   *int     `json:"quantidade,omitempty"`
	Percent *float64 `json:"percentual,omitempty"`
}

type ViabilityMetrics struct {
	Viable     *int     `json:"solucoesViaveis,omitempty"`
	NonViable  *int     `json:"solucoesInviaveis,omitempty"`
	Rate       *float64 `json:"taxaViabilidade,omitempty"`
	MeanProfit *float64 `json:"lucroMedio,omitempty"`
}

func (a *SolutionSpaceAnalysis) Kind() AnalysisKind      { return SolutionSpace }
func (a *SolutionSpaceAnalysis) Header() *AnalysisHeader { return &a.AnalysisHeader }

var solutionSpaceSchema = Schema{
	opt("estatisticas_lucros", KindObject, "estatisticas_lucro"),
	opt("estatisticas_margens", KindObject, "estatisticas_margem"),
	opt("metricas_criterios", KindObject),
	opt("metricas_viabilidade", KindObject),
	opt("distribuicoes", KindObject),
}

var summaryStatsSchema = Schema{
	opt("media", KindNumber, "mean"),
	opt("mediana", KindNumber, "median"),
	opt("max", KindNumber, "maxima", "maximo"),
	opt("min", KindNumber, "minima", "minimo"),
}

var criterionMetricSchema = Schema{
	opt("quantidade", KindInt),
	opt("percentual", KindNumber),
}

var viabilityMetricsSchema = Schema{
	opt("solucoes_viaveis", KindInt),
	opt("solucoes_inviaveis", KindInt),
	opt("taxa_viabilidade", KindNumber),
	opt("percentual_viavel", KindNumber),
	opt("lucro_medio", KindNumber),
}

// DecodeSolutionSpaceAnalysis decodes a solution-space analysis document.
// Statistics may sit at the top level or under "estatisticas".
func DecodeSolutionSpaceAnalysis(id string, data map[string]any) (*SolutionSpaceAnalysis, error) {
	header, err := decodeHeader(id, data)
	if err != nil {
		return nil, err
	}
	body, err := solutionSpaceSchema.Decode(payloadRoot(data, "estatisticas"), "")
	if err != nil {
		return nil, err
	}

	a := &SolutionSpaceAnalysis{
		AnalysisHeader: header,
		ProfitStats:    decodeSummaryStats(body, "estatisticas_lucros"),
		MarginStats:    decodeSummaryStats(body, "estatisticas_margens"),
		Distributions:  distributions(body.Object("distribuicoes")),
	}

	if raw := body.Object("metricas_criterios"); len(raw) > 0 {
		a.CriteriaMetrics = make(map[string]CriterionMetric, len(raw))
		for name, v := range raw {
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			vals, err := criterionMetricSchema.Decode(m, join("metricas_criterios", name))
			if err != nil {
				continue
			}
			a.CriteriaMetrics[name] = CriterionMetric{Count: vals.Int("quantidade"), Percent: vals.Number("percentual")}
		}
		if len(a.CriteriaMetrics) == 0 {
			a.CriteriaMetrics = nil
		}
	}

	if vals, ok := decodeObject(body, "metricas_viabilidade", viabilityMetricsSchema); ok {
		m := &ViabilityMetrics{
			Viable:     vals.Int("solucoes_viaveis"),
			NonViable:  vals.Int("solucoes_inviaveis"),
			Rate:       firstNumber(vals.Number("taxa_viabilidade"), vals.Number("percentual_viavel")),
			MeanProfit: vals.Number("lucro_medio"),
		}
		if m.Rate == nil && m.Viable != nil && m.NonViable != nil {
			if total := *m.Viable + *m.NonViable; total > 0 {
				rate := float64(*m.Viable) / float64(total) * 100
				m.Rate = &rate
			}
		}
		a.ViabilityMetrics = m
	}
	return a, nil
}

func decodeSummaryStats(parent Values, key string) *SummaryStats {
	vals, ok := decodeObject(parent, key, summaryStatsSchema)
	if !ok {
		return nil
	}
	return &SummaryStats{
		Mean:   vals.Number("media"),
		Median: vals.Number("mediana"),
		Max:    vals.Number("max"),
		Min:    vals.Number("min"),
	}
}
