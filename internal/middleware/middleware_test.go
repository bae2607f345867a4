package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/unitutor-api/internal/models"
	appErrors "github.com/noah-isme/unitutor-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	seen []observation
}

func (r *recordingObserver) ObserveHTTPRequest(method, route string, status int, _ time.Duration) {
	r.seen = append(r.seen, observation{method: method, route: route, status: status})
}

type recordedAudit struct {
	actor      models.Actor
	action     string
	resourceID string
}

type recordingAudit struct {
	entries []recordedAudit
}

func (r *recordingAudit) Record(_ context.Context, actor models.Actor, action, _ string, resourceID string, _ interface{}) {
	r.entries = append(r.entries, recordedAudit{actor: actor, action: action, resourceID: resourceID})
}

func newRouter(claims *models.JWTClaims, handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{JWT(stubValidator{claims: claims})}, handlers...)
	chain = append(chain, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/users/:id", chain...)
	return r
}

func serve(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndInvalidTokens(t *testing.T) {
	r := newRouter(&models.JWTClaims{UserID: "u-1", Role: models.RoleStudent})

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/users/u-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/users/u-1", "Basic abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/users/u-1", "Bearer bad").Code)
	assert.Equal(t, http.StatusOK, serve(r, "/users/u-1", "Bearer good").Code)
}

func TestRBACRolesAndSelf(t *testing.T) {
	student := &models.JWTClaims{UserID: "u-1", Role: models.RoleStudent}
	r := newRouter(student, RBAC(string(models.RoleAdmin), Self))
	assert.Equal(t, http.StatusOK, serve(r, "/users/u-1", "Bearer good").Code)
	assert.Equal(t, http.StatusForbidden, serve(r, "/users/u-2", "Bearer good").Code)

	super := &models.JWTClaims{UserID: "root", Role: models.RoleSuperAdmin}
	r = newRouter(super, RequireRoles(models.RoleFaculty))
	assert.Equal(t, http.StatusOK, serve(r, "/users/u-2", "Bearer good").Code)

	faculty := &models.JWTClaims{UserID: "f-1", Role: models.RoleFaculty}
	r = newRouter(faculty, RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, serve(r, "/users/f-1", "Bearer good").Code)
}

func TestRBACWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", RBAC(string(models.RoleAdmin)), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, "/x", "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	observer := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(observer))
	r.GET("/rooms/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, "/rooms/abc", "")
	serve(r, "/nowhere", "")

	require.Len(t, observer.seen, 2)
	assert.Equal(t, observation{method: http.MethodGet, route: "/rooms/:id", status: http.StatusOK}, observer.seen[0])
	assert.Equal(t, unmatchedRoute, observer.seen[1].route)
	assert.Equal(t, http.StatusNotFound, observer.seen[1].status)
}

func TestAuditRecordsOnlySuccess(t *testing.T) {
	audit := &recordingAudit{}
	claims := &models.JWTClaims{UserID: "u-1", Role: models.RoleFaculty}
	r := newRouter(claims, Audit(audit, models.AuditActionCalendarDownload, "calendar_export"))

	serve(r, "/users/u-9", "Bearer good")
	serve(r, "/users/u-9", "Bearer bad")

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "u-1", audit.entries[0].actor.UserID)
	assert.Equal(t, "u-9", audit.entries[0].resourceID)
	assert.Equal(t, models.AuditActionCalendarDownload, audit.entries[0].action)
}

func TestResponseMetaCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var meta map[string]interface{}
	r := gin.New()
	r.Use(WithResponseMeta())
	r.GET("/calendar", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := serve(r, "/calendar", "")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))
	assert.Equal(t, true, meta[cacheHitKey])
}
