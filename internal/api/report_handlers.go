package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type exportRequest struct {
	Kind   string `json:"kind" binding:"required"`
	Format string `json:"format" binding:"required"`
}

// salesReport aggregates revenue per day over a window. Defaults to the
// last 30 days when no range is given.
func (h *Handler) salesReport(c *gin.Context) {
	start, okStart := parseDate(c, "start")
	if !okStart {
		return
	}
	end, okEnd := parseDate(c, "end")
	if !okEnd {
		return
	}

	sess := currentSession(c)
	report, err := h.reports.Sales(c.Request.Context(), sess.User, start, end)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) topPublicationsReport(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	sess := currentSession(c)
	rows, err := h.reports.TopPublications(c.Request.Context(), sess.User, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publications": rows})
}

func (h *Handler) userActivityReport(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	sess := currentSession(c)
	rows, err := h.reports.UserActivity(c.Request.Context(), sess.User, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": rows})
}

func (h *Handler) inventoryReport(c *gin.Context) {
	threshold, _ := strconv.Atoi(c.Query("threshold"))
	sess := currentSession(c)
	report, err := h.reports.Inventory(c.Request.Context(), sess.User, threshold)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) genreStatsReport(c *gin.Context) {
	sess := currentSession(c)
	rows, err := h.reports.GenreStats(c.Request.Context(), sess.User)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": rows})
}

// runExport writes a data set snapshot to a file on the server
func (h *Handler) runExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := currentSession(c)
	path, err := h.exporter.Export(c.Request.Context(), sess.User, req.Kind, req.Format)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

// parseDate reads a yyyy-mm-dd query parameter, writing a 400 on garbage.
// Absent parameters yield the zero time.
func parseDate(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " date, want yyyy-mm-dd"})
		return time.Time{}, false
	}
	return t, true
}
