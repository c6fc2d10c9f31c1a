package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/madarij-center/madarij-api/internal/models"
)

func roleRouter(gate gin.HandlerFunc, claims *models.JWTClaims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if claims != nil {
			c.Set(ContextUserKey, claims)
		}
	})
	router.POST("/", gate, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestRequireRolesBlocksOtherRoles(t *testing.T) {
	router := roleRouter(
		RequireRoles(models.RoleStudentAffairs),
		&models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher},
	)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	router := roleRouter(
		RequireRoles(models.RoleTeacher, models.RoleSupervisor),
		&models.JWTClaims{UserID: "u-2", Role: models.RoleTeacher},
	)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesDirectorPassesEveryGate(t *testing.T) {
	router := roleRouter(
		RequireRoles(models.RoleStudentAffairs),
		&models.JWTClaims{UserID: "u-3", Role: models.RoleDirector},
	)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestRequireRolesRejectsMissingClaims(t *testing.T) {
	router := roleRouter(DirectorOnly(), nil)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/", nil))

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}
