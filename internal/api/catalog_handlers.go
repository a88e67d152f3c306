package api

import (
	"net/http"
	"strconv"

	"library-service/internal/models"
	"library-service/internal/store"

	"github.com/gin-gonic/gin"
)

type publicationRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	ISBN            string   `json:"isbn"`
	PublicationYear int      `json:"publication_year"`
	Price           int64    `json:"price" binding:"required"`
	StockQuantity   int      `json:"stock_quantity"`
	Pages           int      `json:"pages"`
	Language        string   `json:"language"`
	PublisherID     int64    `json:"publisher_id"`
	Authors         []string `json:"authors"`
	Genres          []string `json:"genres"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

// listPublications returns a page of the catalog
func (h *Handler) listPublications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	pubs, err := h.catalog.ListPublications(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publications": pubs})
}

// searchPublications filters the catalog by title, author, genre, year and
// price range
func (h *Handler) searchPublications(c *gin.Context) {
	minYear, _ := strconv.Atoi(c.Query("min_year"))
	maxYear, _ := strconv.Atoi(c.Query("max_year"))
	minPrice, _ := strconv.ParseInt(c.Query("min_price"), 10, 64)
	maxPrice, _ := strconv.ParseInt(c.Query("max_price"), 10, 64)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	f := store.PublicationFilter{
		Title:    c.Query("title"),
		Author:   c.Query("author"),
		Genre:    c.Query("genre"),
		MinYear:  minYear,
		MaxYear:  maxYear,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Limit:    limit,
	}

	pubs, err := h.catalog.SearchPublications(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publications": pubs})
}

// getPublication returns a publication with authors, genres, publisher and
// review summary
func (h *Handler) getPublication(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	detail, err := h.catalog.GetPublication(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) createPublication(c *gin.Context) {
	var req publicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	pub := publicationFromRequest(&req)
	sess := currentSession(c)
	if err := h.catalog.CreatePublication(c.Request.Context(), sess.User, pub, req.Authors, req.Genres); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pub)
}

func (h *Handler) updatePublication(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req publicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	pub := publicationFromRequest(&req)
	pub.ID = id
	sess := currentSession(c)
	if err := h.catalog.UpdatePublication(c.Request.Context(), sess.User, pub, req.Authors, req.Genres); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pub)
}

func (h *Handler) deletePublication(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	sess := currentSession(c)
	if err := h.catalog.DeletePublication(c.Request.Context(), sess.User, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// adjustStock sets a publication's stock level directly
func (h *Handler) adjustStock(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req struct {
		StockQuantity int `json:"stock_quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := currentSession(c)
	if err := h.catalog.AdjustStock(c.Request.Context(), sess.User, id, req.StockQuantity); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "stock adjusted"})
}

func (h *Handler) addReview(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := currentSession(c)
	review, err := h.catalog.AddReview(c.Request.Context(), sess.User, id, req.Rating, req.Comment)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, review)
}

func (h *Handler) listMyReviews(c *gin.Context) {
	sess := currentSession(c)
	reviews, err := h.catalog.ListMyReviews(c.Request.Context(), sess.User)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func (h *Handler) listPublicationReviews(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	reviews, err := h.catalog.ListPublicationReviews(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

func publicationFromRequest(req *publicationRequest) *models.Publication {
	return &models.Publication{
		Title:           req.Title,
		Description:     req.Description,
		ISBN:            req.ISBN,
		PublicationYear: req.PublicationYear,
		Price:           req.Price,
		StockQuantity:   req.StockQuantity,
		Pages:           req.Pages,
		Language:        req.Language,
		PublisherID:     req.PublisherID,
	}
}
