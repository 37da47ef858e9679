// server/internal/repository/typed.go
package repository

import (
	"context"

	"sistema-bup-api-server/internal/models"
)

func (g *Gateway) LatestLand(ctx context.Context, projectID string) (*models.LandAnalysis, error) {
	return as[*models.LandAnalysis](g.GetLatestAnalysis(ctx, projectID, models.Land))
}

func (g *Gateway) LatestMarket(ctx context.Context, projectID string) (*models.MarketAnalysis, error) {
	return as[*models.MarketAnalysis](g.GetLatestAnalysis(ctx, projectID, models.Market))
}

func (g *Gateway) LatestSolutionSpace(ctx context.Context, projectID string) (*models.SolutionSpaceAnalysis, error) {
	return as[*models.SolutionSpaceAnalysis](g.GetLatestAnalysis(ctx, projectID, models.SolutionSpace))
}

func (g *Gateway) LatestFeasibility(ctx context.Context, projectID string) (*models.FeasibilityAnalysis, error) {
	return as[*models.FeasibilityAnalysis](g.GetLatestAnalysis(ctx, projectID, models.Feasibility))
}

// LandVersion and friends fetch one specific version with its concrete type.
func (g *Gateway) LandVersion(ctx context.Context, projectID, version string) (*models.LandAnalysis, error) {
	return as[*models.LandAnalysis](g.GetAnalysisVersion(ctx, projectID, models.Land, version))
}

func (g *Gateway) MarketVersion(ctx context.Context, projectID, version string) (*models.MarketAnalysis, error) {
	return as[*models.MarketAnalysis](g.GetAnalysisVersion(ctx, projectID, models.Market, version))
}

func (g *Gateway) SolutionSpaceVersion(ctx context.Context, projectID, version string) (*models.SolutionSpaceAnalysis, error) {
	return as[*models.SolutionSpaceAnalysis](g.GetAnalysisVersion(ctx, projectID, models.SolutionSpace, version))
}

func (g *Gateway) FeasibilityVersion(ctx context.Context, projectID, version string) (*models.FeasibilityAnalysis, error) {
	return as[*models.FeasibilityAnalysis](g.GetAnalysisVersion(ctx, projectID, models.Feasibility, version))
}

// as narrows a decoded analysis to its concrete type; a nil analysis yields the zero T.
func as[T models.Analysis](a models.Analysis, err error) (T, error) {
	var zero T
	if err != nil || a == nil {
		return zero, err
	}
	typed, _ := a.(T)
	return typed, nil
}
