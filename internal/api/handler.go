package api

import (
	"net/http"
	"time"

	"library-service/internal/auth"
	"library-service/internal/export"
	"library-service/internal/service"
	"library-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	sessions *session.Manager
	auth     *auth.Manager
	catalog  *service.CatalogService
	orders   *service.OrderService
	reports  *service.ReportService
	exporter *export.Exporter
}

// NewHandler creates a new HTTP handler
func NewHandler(sessions *session.Manager, authMgr *auth.Manager, catalog *service.CatalogService, orders *service.OrderService, reports *service.ReportService, exporter *export.Exporter) *Handler {
	return &Handler{
		sessions: sessions,
		auth:     authMgr,
		catalog:  catalog,
		orders:   orders,
		reports:  reports,
		exporter: exporter,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/register", h.register)
		v1.POST("/auth/login", h.login)

		v1.GET("/publications", h.listPublications)
		v1.GET("/publications/search", h.searchPublications)
		v1.GET("/publications/:id", h.getPublication)
		v1.GET("/publications/:id/reviews", h.listPublicationReviews)
	}

	authed := v1.Group("")
	authed.Use(h.sessionMiddleware())
	{
		authed.POST("/auth/logout", h.logout)
		authed.POST("/auth/password", h.changePassword)
		authed.GET("/me", h.profile)
		authed.PUT("/me", h.updateProfile)
		authed.GET("/me/reviews", h.listMyReviews)

		authed.GET("/cart", h.getCart)
		authed.POST("/cart/lines", h.addCartLine)
		authed.DELETE("/cart/lines/:index", h.removeCartLine)
		authed.DELETE("/cart", h.clearCart)

		authed.POST("/checkout", h.checkout)
		authed.GET("/orders", h.listMyOrders)
		authed.GET("/orders/:id", h.getOrder)

		authed.POST("/publications/:id/reviews", h.addReview)
	}

	staff := authed.Group("")
	staff.Use(h.requireRole(roleLibrarian))
	{
		staff.POST("/publications", h.createPublication)
		staff.PUT("/publications/:id", h.updatePublication)
		staff.DELETE("/publications/:id", h.deletePublication)
		staff.POST("/publications/:id/stock", h.adjustStock)

		staff.GET("/admin/orders", h.listOrders)
		staff.GET("/admin/orders/search", h.searchOrders)
		staff.PUT("/admin/orders/:id/status", h.changeOrderStatus)

		staff.GET("/reports/sales", h.salesReport)
		staff.GET("/reports/top-publications", h.topPublicationsReport)
		staff.GET("/reports/user-activity", h.userActivityReport)
		staff.GET("/reports/inventory", h.inventoryReport)
		staff.GET("/reports/genres", h.genreStatsReport)

		staff.POST("/exports", h.runExport)
	}

	admin := authed.Group("")
	admin.Use(h.requireRole(roleAdmin))
	{
		admin.GET("/admin/users", h.listUsers)
		admin.GET("/admin/users/search", h.searchUsers)
		admin.GET("/admin/users/:id/stats", h.userStats)
		admin.PUT("/admin/users/:id/role", h.changeRole)
		admin.POST("/admin/users/:id/deactivate", h.deactivateUser)
		admin.POST("/admin/users/:id/activate", h.activateUser)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}
