// server/internal/models/market_analysis.go
package models

import "strings"

// MarketAnalysis is one version of the market pricing report for the subject property.
type MarketAnalysis struct {
	AnalysisHeader
	Pricing            MarketPricing       `json:"precificacaoImovel"`
	RegionalProperties *RegionalProperties `json:"dadosImoveisRegiao,omitempty"`
	RegionalPrices     *RegionalPrices     `json:"precosImoveisRegiao,omitempty"`
	RegionalProfile    *RegionalProfile    `json:"descricaoImoveisRegiao,omitempty"`
	Conclusions        *MarketConclusions  `json:"conclusoesEstudo,omitempty"`
}

type MarketPricing struct {
	AreaM2             *float64    `json:"areaM2,omitempty"`
	Bedrooms           *int        `json:"quartos,omitempty"`
	Bathrooms          *int        `json:"banheiros,omitempty"`
	ParkingSpots       *int        `json:"vagasGaragem,omitempty"`
	AgeYears           *float64    `json:"idadeImovel,omitempty"`
	QualityScore       *float64    `json:"notaQualidade,omitempty"`
	EstimatedUnitValue *float64    `json:"valorUnitarioEstimado,omitempty"`
	EstimatedSaleValue *float64    `json:"valorVendaEstimado,omitempty"`
	Latitude           *string     `json:"latitude,omitempty"`
	Longitude          *string     `json:"longitude,omitempty"`
	M2PriceRange       *PriceRange `json:"faixaPrecoM2,omitempty"`
}

type PriceRange struct {
	Min  *float64 `json:"minimo,omitempty"`
	Mean *float64 `json:"medio,omitempty"`
	Max  *float64 `json:"maximo,omitempty"`
}

// RegionalProperties is the comparable-properties dataset gathered around the subject.
type RegionalProperties struct {
	Properties []ComparableProperty `json:"imoveisAnalisados,omitempty"`
	Metadata   *RegionalMetadata    `json:"metadados,omitempty"`
}

type ComparableProperty struct {
	Address      *string  `json:"endereco,omitempty"`
	Neighborhood *string  `json:"bairro,omitempty"`
	Type         *string  `json:"tipo,omitempty"`
	AreaM2       *float64 `json:"areaM2,omitempty"`
	Bedrooms     *int     `json:"quartos,omitempty"`
	Price        *float64 `json:"preco,omitempty"`
	PriceM2      *float64 `json:"precoM2,omitempty"`
	Latitude     *string  `json:"latitude,omitempty"`
	Longitude    *string  `json:"longitude,omitempty"`
}

type RegionalMetadata struct {
	TotalCount     *int     `json:"quantidadeTotal,omitempty"`
	Source         *string  `json:"fonte,omitempty"`
	CollectionDate *string  `json:"dataColeta,omitempty"`
	RadiusKm       *float64 `json:"raioKm,omitempty"`
}

type RegionalPrices struct {
	MeanM2            *float64  `json:"precoMedioM2,omitempty"`
	MedianM2          *float64  `json:"precoMedianoM2,omitempty"`
	NeighborhoodMean  *float64  `json:"valorMediaBairro,omitempty"`
	CityMean          *float64  `json:"valorMediaCidade,omitempty"`
	PriceDistribution []float64 `json:"distribuicaoPrecos,omitempty"`
	HeatmapHTML       *string   `json:"htmlMapaCalor,omitempty"`
}

type RegionalProfile struct {
	PredominantType *string              `json:"tipoPredominante,omitempty"`
	MeanAreaM2      *float64             `json:"areaMediaM2,omitempty"`
	MeanBedrooms    *float64             `json:"quartosMedio,omitempty"`
	Distributions   map[string][]float64 `json:"distribuicoes,omitempty"`
}

// MarketConclusions is the study's verdict. HighDemand is derived on decode.
type MarketConclusions struct {
	Opinion         *string  `json:"parecer,omitempty"`
	AdoptedPrice    *float64 `json:"precoVendaAdotado,omitempty"`
	AdoptedM2Price  *float64 `json:"precoM2Adotado,omitempty"`
	Competitiveness *string  `json:"competitividade,omitempty"`
	Recommendation  *string  `json:"recomendacao,omitempty"`
	HighDemand      bool     `json:"demandaAlta"`
}

func (a *MarketAnalysis) Kind() AnalysisKind      { return Market }
func (a *MarketAnalysis) Header() *AnalysisHeader { return &a.AnalysisHeader }

// highDemandKeywords are matched against the lowercased opinion text.
var highDemandKeywords = []string{"alta demanda", "demanda alta", "demanda elevada", "alta procura"}

var marketPricingSchema = Schema{
	opt("area_m2", KindNumber, "area"),
	opt("quartos", KindInt),
	opt("banheiros", KindInt),
	opt("vagas_garagem", KindInt, "vagas"),
	opt("idade_imovel", KindNumber),
	opt("nota_qualidade", KindNumber),
	opt("valor_unitario_estimado", KindNumber, "valor_referencia_m2"),
	opt("valor_venda_estimado", KindNumber),
	opt("latitude", KindFlexString),
	opt("longitude", KindFlexString),
	opt("faixa_preco_m2", KindObject),
}

var priceRangeSchema = Schema{
	opt("minimo", KindNumber, "min", "minima"),
	opt("medio", KindNumber, "media"),
	opt("maximo", KindNumber, "max", "maxima"),
}

var marketBodySchema = Schema{
	opt("dados_imoveis_regiao", KindObject),
	opt("precos_imoveis_regiao", KindObject),
	opt("descricao_imoveis_regiao", KindObject),
	opt("conclusoes_estudo", KindObject),
}

var comparablePropertySchema = Schema{
	opt("endereco", KindString),
	opt("bairro", KindString),
	opt("tipo", KindString),
	opt("area_m2", KindNumber, "area"),
	opt("quartos", KindInt),
	opt("preco", KindNumber, "valor"),
	opt("preco_m2", KindNumber, "valor_m2"),
	opt("latitude", KindFlexString),
	opt("longitude", KindFlexString),
}

var regionalMetadataSchema = Schema{
	opt("quantidade_total", KindInt),
	opt("fonte", KindString),
	opt("data_coleta", KindDate),
	opt("raio_km", KindNumber),
}

var regionalPricesSchema = Schema{
	opt("preco_medio_m2", KindNumber),
	opt("preco_mediano_m2", KindNumber),
	opt("valor_media_bairro", KindNumber),
	opt("valor_media_cidade", KindNumber),
	opt("distribuicao_precos", KindArray),
	opt("html_mapa_calor", KindString),
}

var regionalProfileSchema = Schema{
	opt("tipo_predominante", KindString),
	opt("area_media_m2", KindNumber),
	opt("quartos_medio", KindNumber),
	opt("distribuicoes", KindObject),
}

var marketConclusionsSchema = Schema{
	opt("parecer", KindString),
	opt("preco_venda_adotado", KindNumber),
	opt("preco_m2_adotado", KindNumber),
	opt("competitividade", KindString),
	opt("recomendacao", KindString),
	opt("demanda_alta", KindBool),
}

// DecodeMarketAnalysis decodes a market analysis document. Pricing is read from
// precificacao_imovel, or from the top level for flat documents.
func DecodeMarketAnalysis(id string, data map[string]any) (*MarketAnalysis, error) {
	header, err := decodeHeader(id, data)
	if err != nil {
		return nil, err
	}
	pricing, err := marketPricingSchema.Decode(payloadRoot(data, "precificacao_imovel"), "precificacao_imovel")
	if err != nil {
		return nil, err
	}
	body, err := marketBodySchema.Decode(data, "")
	if err != nil {
		return nil, err
	}

	a := &MarketAnalysis{
		AnalysisHeader: header,
		Pricing: MarketPricing{
			AreaM2:             pricing.Number("area_m2"),
			Bedrooms:           pricing.Int("quartos"),
			Bathrooms:          pricing.Int("banheiros"),
			ParkingSpots:       pricing.Int("vagas_garagem"),
			AgeYears:           pricing.Number("idade_imovel"),
			QualityScore:       pricing.Number("nota_qualidade"),
			EstimatedUnitValue: pricing.Number("valor_unitario_estimado"),
			EstimatedSaleValue: pricing.Number("valor_venda_estimado"),
			Latitude:           pricing.TextPtr("latitude"),
			Longitude:          pricing.TextPtr("longitude"),
		},
	}
	if r, ok := decodeObject(pricing, "faixa_preco_m2", priceRangeSchema); ok {
		a.Pricing.M2PriceRange = &PriceRange{Min: r.Number("minimo"), Mean: r.Number("medio"), Max: r.Number("maximo")}
	}

	a.RegionalProperties = decodeRegionalProperties(body.Object("dados_imoveis_regiao"))

	if p, ok := decodeObject(body, "precos_imoveis_regiao", regionalPricesSchema); ok {
		a.RegionalPrices = &RegionalPrices{
			MeanM2:            p.Number("preco_medio_m2"),
			MedianM2:          p.Number("preco_mediano_m2"),
			NeighborhoodMean:  p.Number("valor_media_bairro"),
			CityMean:          p.Number("valor_media_cidade"),
			PriceDistribution: numbers(p.Array("distribuicao_precos")),
			HeatmapHTML:       p.TextPtr("html_mapa_calor"),
		}
	}

	if p, ok := decodeObject(body, "descricao_imoveis_regiao", regionalProfileSchema); ok {
		a.RegionalProfile = &RegionalProfile{
			PredominantType: p.TextPtr("tipo_predominante"),
			MeanAreaM2:      p.Number("area_media_m2"),
			MeanBedrooms:    p.Number("quartos_medio"),
			Distributions:   distributions(p.Object("distribuicoes")),
		}
	}

	if c, ok := decodeObject(body, "conclusoes_estudo", marketConclusionsSchema); ok {
		a.Conclusions = &MarketConclusions{
			Opinion:         c.TextPtr("parecer"),
			AdoptedPrice:    c.Number("preco_venda_adotado"),
			AdoptedM2Price:  c.Number("preco_m2_adotado"),
			Competitiveness: c.TextPtr("competitividade"),
			Recommendation:  c.TextPtr("recomendacao"),
		}
		if explicit := c.Bool("demanda_alta"); explicit != nil {
			a.Conclusions.HighDemand = *explicit
		} else if a.Conclusions.Opinion != nil {
			a.Conclusions.HighDemand = IsHighDemand(*a.Conclusions.Opinion)
		}
	}
	return a, nil
}

// IsHighDemand reports whether an opinion text signals high demand.
func IsHighDemand(opinion string) bool {
	text := strings.ToLower(opinion)
	for _, kw := range highDemandKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func decodeRegionalProperties(raw map[string]any) *RegionalProperties {
	if raw == nil {
		return nil
	}
	out := &RegionalProperties{}
	items, _ := raw["imoveis_analisados"].([]any)
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		v, err := comparablePropertySchema.Decode(m, "imoveis_analisados")
		if err != nil {
			continue
		}
		out.Properties = append(out.Properties, ComparableProperty{
			Address:      v.TextPtr("endereco"),
			Neighborhood: v.TextPtr("bairro"),
			Type:         v.TextPtr("tipo"),
			AreaM2:       v.Number("area_m2"),
			Bedrooms:     v.Int("quartos"),
			Price:        v.Number("preco"),
			PriceM2:      v.Number("preco_m2"),
			Latitude:     v.TextPtr("latitude"),
			Longitude:    v.TextPtr("longitude"),
		})
	}
	if meta, ok := raw["metadados"].(map[string]any); ok {
		if v, err := regionalMetadataSchema.Decode(meta, "metadados"); err == nil {
			out.Metadata = &RegionalMetadata{
				TotalCount:     v.Int("quantidade_total"),
				Source:         v.TextPtr("fonte"),
				CollectionDate: v.TextPtr("data_coleta"),
				RadiusKm:       v.Number("raio_km"),
			}
		}
	}
	if out.Properties == nil && out.Metadata == nil {
		return nil
	}
	return out
}

func distributions(raw map[string]any) map[string][]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]float64, len(raw))
	for name, v := range raw {
		if arr, ok := v.([]any); ok {
			out[name] = numbers(arr)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ReferencePricePerM2 is the adopted m² price from the conclusions, falling
// back to the estimated unit value.
func (a *MarketAnalysis) ReferencePricePerM2() *float64 {
	var adopted *float64
	if a.Conclusions != nil {
		adopted = a.Conclusions.AdoptedM2Price
	}
	return firstNumber(adopted, a.Pricing.EstimatedUnitValue)
}

// PriceBand returns the ±10% band around the reference m² price.
func (a *MarketAnalysis) PriceBand() (low, high float64, ok bool) {
	ref := a.ReferencePricePerM2()
	if ref == nil {
		return 0, 0, false
	}
	return *ref * 0.9, *ref * 1.1, true
}
