package api

import (
	"net/http"
	"strconv"

	"library-service/internal/models"

	"github.com/gin-gonic/gin"
)

type checkoutRequest struct {
	PaymentMethod   string `json:"payment_method"`
	ShippingAddress string `json:"shipping_address"`
}

// checkout turns the session's cart into an order
func (h *Handler) checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := currentSession(c)
	order, err := h.orders.Checkout(c.Request.Context(), sess, req.PaymentMethod, req.ShippingAddress)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// getOrder returns one order with its lines. Owners see their own orders;
// staff see any.
func (h *Handler) getOrder(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	sess := currentSession(c)
	order, lines, err := h.orders.GetOrder(c.Request.Context(), sess.User, id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"lines": lines,
	})
}

func (h *Handler) listMyOrders(c *gin.Context) {
	sess := currentSession(c)
	orders, err := h.orders.ListMyOrders(c.Request.Context(), sess.User)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) listOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sess := currentSession(c)
	orders, err := h.orders.ListOrders(c.Request.Context(), sess.User, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *Handler) searchOrders(c *gin.Context) {
	sess := currentSession(c)
	orders, err := h.orders.SearchOrders(c.Request.Context(), sess.User, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// changeOrderStatus applies an administrative status transition
func (h *Handler) changeOrderStatus(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if !models.ValidOrderStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	sess := currentSession(c)
	if err := h.orders.ChangeStatus(c.Request.Context(), sess.User, id, req.Status); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "order updated"})
}
