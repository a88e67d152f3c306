package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type addCartLineRequest struct {
	PublicationID int64 `json:"publication_id" binding:"required"`
	Quantity      int   `json:"quantity" binding:"required"`
}

// getCart returns the session's cart lines and running total
func (h *Handler) getCart(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"lines": sess.Cart.Lines(),
		"total": sess.Cart.Total(),
	})
}

// addCartLine snapshots the publication's current price into a new cart
// line. The stock check here is advisory; checkout re-verifies under lock.
func (h *Handler) addCartLine(c *gin.Context) {
	var req addCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	detail, err := h.catalog.GetPublication(c.Request.Context(), req.PublicationID)
	if err != nil {
		writeError(c, err)
		return
	}

	sess := currentSession(c)
	if err := sess.Cart.Add(&detail.Publication, req.Quantity); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"lines": sess.Cart.Lines(),
		"total": sess.Cart.Total(),
	})
}

// removeCartLine removes one line by its zero-based position
func (h *Handler) removeCartLine(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid line index"})
		return
	}

	sess := currentSession(c)
	removed, err := sess.Cart.Remove(index)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
		"lines":   sess.Cart.Lines(),
		"total":   sess.Cart.Total(),
	})
}

// clearCart empties the cart. Clearing an empty cart succeeds.
func (h *Handler) clearCart(c *gin.Context) {
	sess := currentSession(c)
	sess.Cart.Clear()
	c.JSON(http.StatusOK, gin.H{"status": "cart cleared"})
}
