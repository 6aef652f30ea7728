package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/edutrack/attendance-api/internal/middleware"
	"github.com/edutrack/attendance-api/internal/models"
	"github.com/edutrack/attendance-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// facultyIDFor resolves the caller's faculty profile. Admins have no
// profile; they get an empty ID and services skip the ownership check.
func facultyIDFor(c *gin.Context, users *service.UserService, claims *models.JWTClaims) (string, error) {
	if claims.Role == models.RoleAdmin {
		return "", nil
	}
	faculty, err := users.GetFacultyByUser(c.Request.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	return faculty.ID, nil
}
