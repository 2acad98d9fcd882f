package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"career-engine/internal/catalog"
	"career-engine/internal/domain"
	"career-engine/internal/repository"
)

// StageHandler expone el catálogo de etapas y los teasers de vacantes.
type StageHandler struct {
	stages    *catalog.StageCatalog
	vacancies repository.VacancyRepository
	logger    *zap.Logger
}

// NewStageHandler construye el handler. vacancies puede ser nil cuando el
// servicio corre sin base de datos; en ese caso el endpoint de vacantes
// devuelve lista vacía.
func NewStageHandler(stages *catalog.StageCatalog, vacancies repository.VacancyRepository, logger *zap.Logger) *StageHandler {
	return &StageHandler{stages: stages, vacancies: vacancies, logger: logger}
}

// ListStages maneja GET /api/stages.
func (h *StageHandler) ListStages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stages": h.stages.AllStages()})
}

// GetStage maneja GET /api/stages/:id.
func (h *StageHandler) GetStage(c *gin.Context) {
	stageID := c.Param("id")
	stage, ok := h.stages.Stage(stageID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "stage not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stage": stage,
		"roles": h.stages.RolesForStage(stageID, ""),
	})
}

// GetStageVacancies maneja GET /api/stages/:id/vacancies.
func (h *StageHandler) GetStageVacancies(c *gin.Context) {
	stageID := c.Param("id")
	stage, ok := h.stages.Stage(stageID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "stage not found"})
		return
	}

	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}

	if h.vacancies == nil {
		c.JSON(http.StatusOK, gin.H{"stage_id": stageID, "vacancies": []domain.Vacancy{}})
		return
	}

	roleIDs := make([]string, 0, len(stage.VacancyFilters.Roles))
	roleIDs = append(roleIDs, stage.VacancyFilters.Roles...)
	if len(roleIDs) == 0 {
		for _, m := range h.stages.RolesForStage(stageID, "primary") {
			roleIDs = append(roleIDs, m.RoleID)
		}
	}

	vacancies, err := h.vacancies.SearchByStage(c.Request.Context(), roleIDs, h.stages.Keywords(stageID), limit)
	if err != nil {
		h.logger.Error("vacancy search failed", zap.String("stage_id", stageID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"stage_id": stageID, "vacancies": vacancies})
}
