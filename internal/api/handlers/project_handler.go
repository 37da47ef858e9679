// server/internal/api/handlers/project_handler.go
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sistema-bup-api-server/internal/api/middleware"
	"sistema-bup-api-server/internal/flexible"
	"sistema-bup-api-server/internal/models"
	"sistema-bup-api-server/internal/repository"
)

type ProjectHandler struct {
	Gateway *repository.Gateway
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects, err := h.Gateway.ListProjects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projetos": projects, "total": len(projects)})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.Gateway.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

// CreateProject stamps the creation info with the current time and the
// authenticated user.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		badRequest(c, err.Error())
		return
	}
	project.ID = ""
	project.Creation = models.ProjectCreation{
		CreatedAt: flexible.FormatTime(time.Now()),
		CreatedBy: c.GetString(middleware.EmailKey),
	}

	id, err := h.Gateway.CreateProject(c.Request.Context(), &project)
	if err != nil {
		respondError(c, err)
		return
	}
	project.ID = id
	c.JSON(http.StatusCreated, project)
}

// UpdateProject keeps the stored creation info; the body cannot change it.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	ctx := c.Request.Context()
	existing, err := h.Gateway.GetProject(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		badRequest(c, err.Error())
		return
	}
	project.ID = existing.ID
	project.Creation = existing.Creation

	if err := h.Gateway.UpdateProject(ctx, &project); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	if err := h.Gateway.DeleteProject(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
