// server/internal/models/land_analysis.go
package models

import "sort"

// LandAnalysis is one version of the land pricing report ("análise de terreno").
type LandAnalysis struct {
	AnalysisHeader
	Pricing           LandPricing                  `json:"precificacaoTerreno"`
	Samples           []LandSample                 `json:"dadosAmostra,omitempty"`
	NeighborhoodStats map[string]NeighborhoodStats `json:"estatisticasBairros,omitempty"`
	TechnicalOpinion  *TechnicalOpinion            `json:"parecerEstudo,omitempty"`
	Description       *string                      `json:"descricao,omitempty"`
	Metadata          *LandMetadata                `json:"metadados,omitempty"`
}

// LandPricing holds the pricing figures; every figure may arrive as a number or
// a string and is coerced to float64.
type LandPricing struct {
	Area                    *float64 `json:"areaTerreno,omitempty"`
	AdoptedPrice            *float64 `json:"precoAdotado,omitempty"`
	AdoptedUnitPrice        *float64 `json:"precoUnitarioAdotado,omitempty"`
	ManualUnitPrice         *float64 `json:"precoUnitarioManual,omitempty"`
	ComputedTotalPrice      *float64 `json:"precoTotalCalculado,omitempty"`
	NeighborhoodBaseM2Price *float64 `json:"precoBaseBairroM2,omitempty"`
	PercentDifference       *float64 `json:"diferencaPercentual,omitempty"`

	// Derived: computed total, else adopted price.
	EstimatedTotal *float64 `json:"valorTotalEstimado,omitempty"`
	// Derived: adopted unit price, else manual unit price.
	EstimatedM2 *float64 `json:"valorM2Estimado,omitempty"`
}

// LandSample is one comparable land record used by the pricing study.
type LandSample struct {
	Address      *string  `json:"endereco,omitempty"`
	Neighborhood *string  `json:"bairro,omitempty"`
	AreaM2       *float64 `json:"areaM2,omitempty"`
	TotalPrice   *float64 `json:"valorTotal,omitempty"`
	PriceM2      *float64 `json:"valorM2,omitempty"`
	Source       *string  `json:"fonte,omitempty"`
	Latitude     *string  `json:"latitude,omitempty"`
	Longitude    *string  `json:"longitude,omitempty"`
}

type NeighborhoodStats struct {
	Count    *int     `json:"quantidade,omitempty"`
	MeanM2   *float64 `json:"precoMedioM2,omitempty"`
	MedianM2 *float64 `json:"precoMedianoM2,omitempty"`
	MinM2    *float64 `json:"precoMinM2,omitempty"`
	MaxM2    *float64 `json:"precoMaxM2,omitempty"`
}

// TechnicalOpinion is the study's reliability verdict and notes.
type TechnicalOpinion struct {
	Reliability *string `json:"confiabilidade,omitempty"`
	Notes       *string `json:"observacoes,omitempty"`
}

type LandMetadata struct {
	DataSource     *string `json:"fonteDados,omitempty"`
	CollectionDate *string `json:"dataColeta,omitempty"`
}

func (a *LandAnalysis) Kind() AnalysisKind      { return Land }
func (a *LandAnalysis) Header() *AnalysisHeader { return &a.AnalysisHeader }

var landPricingSchema = Schema{
	opt("area_terreno", KindNumber),
	opt("preco_adotado", KindNumber),
	opt("preco_unitario_adotado", KindNumber),
	opt("preco_unitario_manual", KindNumber),
	opt("preco_total_calculado", KindNumber),
	opt("preco_base_bairro_m2", KindNumber, "preco_unitario_base_bairro"),
	opt("diferenca_percentual", KindNumber),
}

var landSampleSchema = Schema{
	opt("endereco", KindString),
	opt("bairro", KindString),
	opt("area_m2", KindNumber, "area"),
	opt("valor_total", KindNumber, "preco"),
	opt("valor_m2", KindNumber, "preco_m2"),
	opt("fonte", KindString),
	opt("latitude", KindFlexString),
	opt("longitude", KindFlexString),
}

var neighborhoodStatsSchema = Schema{
	opt("quantidade", KindInt, "count"),
	opt("preco_medio_m2", KindNumber, "media"),
	opt("preco_mediano_m2", KindNumber, "mediana"),
	opt("preco_min_m2", KindNumber, "min", "minima"),
	opt("preco_max_m2", KindNumber, "max", "maxima"),
}

var landBodySchema = Schema{
	opt("dados_amostra", KindAny),
	opt("estatisticas_bairros", KindObject),
	opt("parecer_estudo", KindAny),
	opt("descricao", KindString),
	opt("metadados", KindObject),
}

var technicalOpinionSchema = Schema{
	opt("confiabilidade", KindString),
	opt("observacoes", KindString, "parecer"),
}

var landMetadataSchema = Schema{
	opt("fonte_dados", KindString),
	opt("data_coleta", KindDate),
}

// DecodeLandAnalysis decodes a land analysis document. The pricing block is
// read from precificacao_terreno or, for flat documents, from the top level.
func DecodeLandAnalysis(id string, data map[string]any) (*LandAnalysis, error) {
	header, err := decodeHeader(id, data)
	if err != nil {
		return nil, err
	}
	pricing, err := landPricingSchema.Decode(payloadRoot(data, "precificacao_terreno"), "precificacao_terreno")
	if err != nil {
		return nil, err
	}
	body, err := landBodySchema.Decode(data, "")
	if err != nil {
		return nil, err
	}

	a := &LandAnalysis{
		AnalysisHeader: header,
		Pricing: LandPricing{
			Area:                    pricing.Number("area_terreno"),
			AdoptedPrice:            pricing.Number("preco_adotado"),
			AdoptedUnitPrice:        pricing.Number("preco_unitario_adotado"),
			ManualUnitPrice:         pricing.Number("preco_unitario_manual"),
			ComputedTotalPrice:      pricing.Number("preco_total_calculado"),
			NeighborhoodBaseM2Price: pricing.Number("preco_base_bairro_m2"),
			PercentDifference:       pricing.Number("diferenca_percentual"),
		},
		Samples:           decodeLandSamples(body["dados_amostra"]),
		NeighborhoodStats: decodeNeighborhoodStats(body.Object("estatisticas_bairros")),
		TechnicalOpinion:  decodeTechnicalOpinion(body["parecer_estudo"]),
		Description:       body.TextPtr("descricao"),
	}
	a.Pricing.EstimatedTotal = firstNumber(a.Pricing.ComputedTotalPrice, a.Pricing.AdoptedPrice)
	a.Pricing.EstimatedM2 = firstNumber(a.Pricing.AdoptedUnitPrice, a.Pricing.ManualUnitPrice)

	if meta, ok := decodeObject(body, "metadados", landMetadataSchema); ok {
		a.Metadata = &LandMetadata{
			DataSource:     meta.TextPtr("fonte_dados"),
			CollectionDate: meta.TextPtr("data_coleta"),
		}
	}
	return a, nil
}

// decodeLandSamples accepts a bare array or an object wrapping it under "terrenos".
func decodeLandSamples(raw any) []LandSample {
	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		items, _ = v["terrenos"].([]any)
	}
	if len(items) == 0 {
		return nil
	}
	samples := make([]LandSample, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		vals, err := landSampleSchema.Decode(m, "dados_amostra")
		if err != nil {
			continue
		}
		samples = append(samples, LandSample{
			Address:      vals.TextPtr("endereco"),
			Neighborhood: vals.TextPtr("bairro"),
			AreaM2:       vals.Number("area_m2"),
			TotalPrice:   vals.Number("valor_total"),
			PriceM2:      vals.Number("valor_m2"),
			Source:       vals.TextPtr("fonte"),
			Latitude:     vals.TextPtr("latitude"),
			Longitude:    vals.TextPtr("longitude"),
		})
	}
	return samples
}

func decodeNeighborhoodStats(raw map[string]any) map[string]NeighborhoodStats {
	if len(raw) == 0 {
		return nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]NeighborhoodStats, len(raw))
	for _, name := range names {
		m, ok := raw[name].(map[string]any)
		if !ok {
			continue
		}
		vals, err := neighborhoodStatsSchema.Decode(m, name)
		if err != nil {
			continue
		}
		out[name] = NeighborhoodStats{
			Count:    vals.Int("quantidade"),
			MeanM2:   vals.Number("preco_medio_m2"),
			MedianM2: vals.Number("preco_mediano_m2"),
			MinM2:    vals.Number("preco_min_m2"),
			MaxM2:    vals.Number("preco_max_m2"),
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// decodeTechnicalOpinion accepts the structured opinion or, from older
// documents, a plain text opinion.
func decodeTechnicalOpinion(raw any) *TechnicalOpinion {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return &TechnicalOpinion{Notes: &v}
	case map[string]any:
		vals, err := technicalOpinionSchema.Decode(v, "parecer_estudo")
		if err != nil {
			return nil
		}
		if !vals.Has("confiabilidade") && !vals.Has("observacoes") {
			return nil
		}
		return &TechnicalOpinion{
			Reliability: vals.TextPtr("confiabilidade"),
			Notes:       vals.TextPtr("observacoes"),
		}
	}
	return nil
}

// ReliabilityColor returns the colour of the opinion's reliability label.
func (o *TechnicalOpinion) ReliabilityColor() string {
	if o == nil || o.Reliability == nil {
		return ReliabilityColor("")
	}
	return ReliabilityColor(*o.Reliability)
}

// SampleMeanM2 averages the unit price of the samples that carry one.
func (a *LandAnalysis) SampleMeanM2() *float64 {
	var values []float64
	for _, s := range a.Samples {
		if s.PriceM2 != nil {
			values = append(values, *s.PriceM2)
		} else if s.TotalPrice != nil && s.AreaM2 != nil && *s.AreaM2 > 0 {
			values = append(values, *s.TotalPrice / *s.AreaM2)
		}
	}
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	return &mean
}
