// server/internal/api/handlers/analysis_handler.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"sistema-bup-api-server/internal/analysis"
	"sistema-bup-api-server/internal/errs"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/repository"
)

// SummaryExporter publishes a consolidated summary and returns where it went.
type SummaryExporter interface {
	ExportSummary(ctx context.Context, projectID string, summary *analysis.ConsolidatedSummary) (string, error)
}

type AnalysisHandler struct {
	Gateway    *repository.Gateway
	Aggregator *analysis.Aggregator
	Exporter   SummaryExporter // nil disables export
}

func kindParam(c *gin.Context) (models.AnalysisKind, bool) {
	kind, err := models.ParseAnalysisKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err.Error())
		return "", false
	}
	return kind, true
}

// GetAllLatest returns the latest version of every kind plus completeness flags.
func (h *AnalysisHandler) GetAllLatest(c *gin.Context) {
	latest, err := h.Aggregator.GetAllLatest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analises":   latest,
		"hasAny":     latest.HasAny(),
		"isComplete": latest.IsComplete(),
	})
}

func (h *AnalysisHandler) ListVersions(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	versions, err := h.Gateway.ListAnalysisVersions(c.Request.Context(), c.Param("id"), kind)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "versoes": versions, "total": len(versions)})
}

// GetLatest answers 404 when the project has no version of the kind.
func (h *AnalysisHandler) GetLatest(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	projectID := c.Param("id")
	latest, err := h.Gateway.GetLatestAnalysis(c.Request.Context(), projectID, kind)
	if err != nil {
		respondError(c, err)
		return
	}
	if latest == nil {
		respondError(c, errs.NotFound(kind.Collection(), projectID))
		return
	}
	c.JSON(http.StatusOK, latest)
}

func (h *AnalysisHandler) GetVersion(c *gin.Context) {
	kind, ok := kindParam(c)
	if !ok {
		return
	}
	a, err := h.Gateway.GetAnalysisVersion(c.Request.Context(), c.Param("id"), kind, c.Param("version"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// GetSummary returns a null summary when the project has no analyses.
func (h *AnalysisHandler) GetSummary(c *gin.Context) {
	projectID := c.Param("id")
	summary, err := h.Aggregator.GetConsolidatedSummary(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projectId": projectID, "resumo": summary})
}

func (h *AnalysisHandler) GetBestSolution(c *gin.Context) {
	projectID := c.Param("id")
	best, err := h.Aggregator.GetBestSolution(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	if best == nil {
		respondError(c, errs.NotFound("best solution", projectID))
		return
	}
	c.JSON(http.StatusOK, best)
}

func (h *AnalysisHandler) ExportSummary(c *gin.Context) {
	if h.Exporter == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "export_disabled", "message": "summary export is not configured"})
		return
	}
	ctx := c.Request.Context()
	projectID := c.Param("id")
	summary, err := h.Aggregator.GetConsolidatedSummary(ctx, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	if summary == nil {
		respondError(c, errs.NotFound("summary", projectID))
		return
	}
	url, err := h.Exporter.ExportSummary(ctx, projectID, summary)
	if err != nil {
		respondError(c, errs.StoreUnavailable("export summary", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"projectId": projectID, "url": url})
}
