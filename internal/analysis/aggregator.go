// server/internal/analysis/aggregator.go
package analysis

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"sistema-bup-api-server/internal/models"
)

// LatestReader is the slice of the repository gateway the aggregator needs.
type LatestReader interface {
	GetLatestAnalysis(ctx context.Context, projectID string, kind models.AnalysisKind) (models.Analysis, error)
}

// Aggregator combines the latest analyses of a project. It holds no state
// between calls.
type Aggregator struct {
	reader LatestReader
	logger zerolog.Logger
}

func NewAggregator(reader LatestReader, logger zerolog.Logger) *Aggregator {
	return &Aggregator{reader: reader, logger: logger.With().Str("component", "aggregator").Logger()}
}

// LatestAnalyses is the latest version of each kind; any of them may be nil.
type LatestAnalyses struct {
	Land          *models.LandAnalysis          `json:"analiseTerreno"`
	Market        *models.MarketAnalysis        `json:"analiseMercado"`
	SolutionSpace *models.SolutionSpaceAnalysis `json:"analiseEspacoSolucoes"`
	Feasibility   *models.FeasibilityAnalysis   `json:"analiseViabilidade"`
}

// HasAny reports whether at least one analysis is present.
func (l *LatestAnalyses) HasAny() bool {
	return l.Land != nil || l.Market != nil || l.SolutionSpace != nil || l.Feasibility != nil
}

// IsComplete reports whether all four analyses are present.
func (l *LatestAnalyses) IsComplete() bool {
	return l.Land != nil && l.Market != nil && l.SolutionSpace != nil && l.Feasibility != nil
}

// ConsolidatedSummary flattens selected figures of the latest analyses.
type ConsolidatedSummary struct {
	EstimatedLandValue  *float64 `json:"valorEstimadoTerreno"`
	ReferencePricePerM2 *float64 `json:"precoReferenciaM2"`
	ViabilityRate       *float64 `json:"taxaViabilidade"`
	ViableSolutions     *int     `json:"solucoesViaveis"`
	BestProfit          *float64 `json:"melhorLucro"`
	BestMargin          *float64 `json:"melhorMargem"`
	Recommendation      *string  `json:"parecer"`
	Viable              *bool    `json:"isViavel"`
	RiskLevel           *string  `json:"nivelRisco"`
}

// GetAllLatest fetches the four latest analyses concurrently. Any failure
// cancels the others and discards the partial result.
func (a *Aggregator) GetAllLatest(ctx context.Context, projectID string) (*LatestAnalyses, error) {
	var (
		out     LatestAnalyses
		results [4]models.Analysis
	)
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range models.AllAnalysisKinds {
		i, kind := i, kind
		g.Go(func() error {
			analysis, err := a.reader.GetLatestAnalysis(gctx, projectID, kind)
			if err != nil {
				a.logger.Error().Err(err).Str("project_id", projectID).Str("kind", string(kind)).Msg("latest analysis fetch failed")
				return err
			}
			results[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, analysis := range results {
		switch v := analysis.(type) {
		case *models.LandAnalysis:
			out.Land = v
		case *models.MarketAnalysis:
			out.Market = v
		case *models.SolutionSpaceAnalysis:
			out.SolutionSpace = v
		case *models.FeasibilityAnalysis:
			out.Feasibility = v
		}
	}
	return &out, nil
}

// GetConsolidatedSummary returns nil when the project has no analysis at all.
func (a *Aggregator) GetConsolidatedSummary(ctx context.Context, projectID string) (*ConsolidatedSummary, error) {
	latest, err := a.GetAllLatest(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return Summarize(latest), nil
}

// Summarize merges the latest analyses into a summary, or returns nil when
// none is present.
func Summarize(latest *LatestAnalyses) *ConsolidatedSummary {
	if latest == nil || !latest.HasAny() {
		return nil
	}
	s := &ConsolidatedSummary{}
	if latest.Land != nil {
		s.EstimatedLandValue = latest.Land.Pricing.EstimatedTotal
	}
	if latest.Market != nil {
		s.ReferencePricePerM2 = latest.Market.ReferencePricePerM2()
	}
	if latest.SolutionSpace != nil && latest.SolutionSpace.ViabilityMetrics != nil {
		s.ViabilityRate = latest.SolutionSpace.ViabilityMetrics.Rate
		s.ViableSolutions = latest.SolutionSpace.ViabilityMetrics.Viable
	}
	if f := latest.Feasibility; f != nil {
		if f.Overview != nil && f.Overview.Best != nil {
			s.BestProfit = f.Overview.Best.Profit
			s.BestMargin = f.Overview.Best.Margin
		}
		if f.Opinion != nil {
			s.Recommendation = f.Opinion.Recommendation
			s.Viable = f.Opinion.Viable
			s.RiskLevel = f.Opinion.RiskLevel
		}
	}
	return s
}

// GetBestSolution returns the full record of the feasibility overview's best
// solution, or nil when any link of that chain is missing.
func (a *Aggregator) GetBestSolution(ctx context.Context, projectID string) (*models.Solution, error) {
	f, err := a.latestFeasibility(ctx, projectID)
	if err != nil || f == nil {
		return nil, err
	}
	return f.BestSolution(), nil
}

// EstimatedLandValue is the estimated total of the latest land analysis.
func (a *Aggregator) EstimatedLandValue(ctx context.Context, projectID string) (*float64, error) {
	analysis, err := a.reader.GetLatestAnalysis(ctx, projectID, models.Land)
	if err != nil {
		return nil, err
	}
	land, ok := analysis.(*models.LandAnalysis)
	if !ok || land == nil {
		return nil, nil
	}
	return land.Pricing.EstimatedTotal, nil
}

// ReferencePricePerM2 is the reference m² price of the latest market analysis.
func (a *Aggregator) ReferencePricePerM2(ctx context.Context, projectID string) (*float64, error) {
	analysis, err := a.reader.GetLatestAnalysis(ctx, projectID, models.Market)
	if err != nil {
		return nil, err
	}
	market, ok := analysis.(*models.MarketAnalysis)
	if !ok || market == nil {
		return nil, nil
	}
	return market.ReferencePricePerM2(), nil
}

func (a *Aggregator) FeasibilityOpinion(ctx context.Context, projectID string) (*models.FeasibilityOpinion, error) {
	f, err := a.latestFeasibility(ctx, projectID)
	if err != nil || f == nil {
		return nil, err
	}
	return f.Opinion, nil
}

func (a *Aggregator) ViabilityMetrics(ctx context.Context, projectID string) (*models.ViabilityMetrics, error) {
	analysis, err := a.reader.GetLatestAnalysis(ctx, projectID, models.SolutionSpace)
	if err != nil {
		return nil, err
	}
	space, ok := analysis.(*models.SolutionSpaceAnalysis)
	if !ok || space == nil {
		return nil, nil
	}
	return space.ViabilityMetrics, nil
}

func (a *Aggregator) latestFeasibility(ctx context.Context, projectID string) (*models.FeasibilityAnalysis, error) {
	analysis, err := a.reader.GetLatestAnalysis(ctx, projectID, models.Feasibility)
	if err != nil {
		return nil, err
	}
	f, _ := analysis.(*models.FeasibilityAnalysis)
	return f, nil
}
