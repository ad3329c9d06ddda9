package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	errGetLatest = "failed to load latest record"
	errNoRecord  = "no record taken yet"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// getLatest returns the most recent synchronized record. Before the first
// completed tick there is nothing to show, which maps to 404.
func (h *Handler) getLatest(c *gin.Context) {
	ctx := c.Request.Context()
	rec, err := h.services.Monitoring.Latest(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetLatest, "weights_get_latest_failed", err)
		return
	}
	if rec.TakenAt.IsZero() {
		c.JSON(http.StatusNotFound, gin.H{"error": errNoRecord})
		return
	}
	c.JSON(http.StatusOK, rec)
}
