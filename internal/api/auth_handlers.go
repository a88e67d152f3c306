package api

import (
	"net/http"
	"strconv"

	"library-service/internal/models"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

// register handles account creation
func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// login verifies credentials and opens a session
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.auth.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	sess, err := h.sessions.Create(c.Request.Context(), user)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": sess.Token,
		"user":  user,
	})
}

// logout destroys the current session and its cart
func (h *Handler) logout(c *gin.Context) {
	sess := currentSession(c)
	h.sessions.Destroy(c.Request.Context(), sess.Token)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sess := currentSession(c)
	if err := h.auth.ChangePassword(c.Request.Context(), sess.User, req.OldPassword, req.NewPassword); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "password changed"})
}

func (h *Handler) profile(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, sess.User)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	// Work on a copy so a failed persist leaves the session untouched.
	sess := currentSession(c)
	updated := applyProfileUpdate(*sess.User, &req)

	if err := h.auth.UpdateProfile(c.Request.Context(), &updated); err != nil {
		writeError(c, err)
		return
	}

	*sess.User = updated
	c.JSON(http.StatusOK, sess.User)
}

// applyProfileUpdate overlays the non-empty request fields onto a user copy.
func applyProfileUpdate(user models.User, req *updateProfileRequest) models.User {
	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Address != "" {
		user.Address = req.Address
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	return user
}

// listUsers handles the admin user listing
func (h *Handler) listUsers(c *gin.Context) {
	sess := currentSession(c)
	users, err := h.auth.ListUsers(c.Request.Context(), sess.User)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) searchUsers(c *gin.Context) {
	sess := currentSession(c)
	users, err := h.auth.SearchUsers(c.Request.Context(), sess.User, c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) userStats(c *gin.Context) {
	userID, ok := paramID(c)
	if !ok {
		return
	}

	sess := currentSession(c)
	stats, err := h.auth.UserStats(c.Request.Context(), sess.User, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) changeRole(c *gin.Context) {
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	userID, ok := paramID(c)
	if !ok {
		return
	}

	role := models.Role(req.Role)
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}

	sess := currentSession(c)
	if err := h.auth.ChangeRole(c.Request.Context(), sess.User, userID, role); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "role updated"})
}

func (h *Handler) deactivateUser(c *gin.Context) {
	userID, ok := paramID(c)
	if !ok {
		return
	}

	sess := currentSession(c)
	if err := h.auth.DeactivateUser(c.Request.Context(), sess.User, userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "user deactivated"})
}

func (h *Handler) activateUser(c *gin.Context) {
	userID, ok := paramID(c)
	if !ok {
		return
	}

	sess := currentSession(c)
	if err := h.auth.ActivateUser(c.Request.Context(), sess.User, userID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "user activated"})
}

// paramID parses the :id path parameter, writing a 400 on failure.
func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return id, true
}
