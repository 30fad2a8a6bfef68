package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"helpdesk-app/internal/models"
)

// currentUser rebuilds the verified identity the auth middleware stored in
// the gin context.
func currentUser(c *gin.Context) (models.AuthUser, bool) {
	idStr := c.GetString("userID")
	role := c.GetString("role")
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil || role == "" {
		return models.AuthUser{}, false
	}
	return models.AuthUser{ID: id, Role: models.Role(role)}, true
}

// handleServiceError maps the error taxonomy to stable status codes. Unknown
// errors surface as an opaque 500.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrDuplicate), errors.Is(err, models.ErrInUse):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
