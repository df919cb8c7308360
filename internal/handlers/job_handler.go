package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobsphere/internal/middleware"
	"jobsphere/internal/models"
	"jobsphere/internal/services"
)

type JobHandler struct {
	jobs  services.JobService
	quota services.QuotaService
	log   *slog.Logger
}

func NewJobHandler(jobs services.JobService, quota services.QuotaService, logger *slog.Logger) *JobHandler {
	return &JobHandler{jobs: jobs, quota: quota, log: logger.With("component", "job-handler")}
}

// @Summary      Search jobs
// @Description  Queries Arbeitnow and, while quota remains, JSearch
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        body  body      models.SearchRequest  true  "source is all, arbeitnow or jsearch"
// @Success      200   {object}  map[string]interface{}
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/search [post]
func (h *JobHandler) Search(c *gin.Context) {
	req, ok := bindLenient[models.SearchRequest](c, h.log)
	if !ok {
		return
	}

	jobs := h.jobs.Search(c.Request.Context(), req.Query, req.Location, req.Source)
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"jobs":          jobs,
		"total_results": len(jobs),
	})
}

// @Summary      Recommended jobs
// @Description  Up to 10 postings matching the saved preferences
// @Tags         Jobs
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/recommended-jobs [get]
func (h *JobHandler) Recommended(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	jobs, hint := h.jobs.Recommend(c.Request.Context(), user)
	resp := gin.H{"success": true, "jobs": jobs}
	if hint != "" {
		resp["message"] = hint
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      JSearch quota usage
// @Tags         Jobs
// @Produce      json
// @Success      200  {object}  models.QuotaStats
// @Router       /api/stats [get]
func (h *JobHandler) Stats(c *gin.Context) {
	stats, err := h.quota.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
