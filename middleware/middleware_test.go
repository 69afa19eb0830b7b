package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariebrainware/telemed-api/config"
	"github.com/ariebrainware/telemed-api/model"
	"github.com/ariebrainware/telemed-api/service"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setGinTestMode() {
	gin.SetMode(gin.TestMode)
}

// newInMemoryDB creates an in-memory sqlite DB with the account tables.
func newInMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Patient{}, &model.Doctor{}, &model.SecurityLog{}))
	return db
}

func setupRedisMock(t *testing.T) redismock.ClientMock {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(func() {
		config.SetRedisClientForTest(nil)
	})
	return mock
}

func newTestIssuer() *service.SessionIssuer {
	return &service.SessionIssuer{
		Secret:     []byte("test-secret"),
		PatientTTL: time.Hour,
		DoctorTTL:  time.Hour,
	}
}

func issueToken(t *testing.T, issuer *service.SessionIssuer, id service.Identity) string {
	t.Helper()
	token, _, err := issuer.Issue(id)
	require.NoError(t, err)
	return token
}

type authRequest struct {
	token  string
	cookie string
	roles  []string
}

func runAuthRequest(issuer *service.SessionIssuer, req authRequest) (*httptest.ResponseRecorder, service.Identity) {
	setGinTestMode()
	r := gin.New()
	var seen service.Identity
	r.GET("/test", RequireAuth(issuer, req.roles...), func(c *gin.Context) {
		seen, _ = GetIdentity(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodGet, "/test", nil)
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.cookie != "" {
		httpReq.AddCookie(&http.Cookie{Name: DoctorSessionCookie, Value: req.cookie})
	}
	r.ServeHTTP(w, httpReq)
	return w, seen
}

func TestDatabaseMiddlewareAndGetDB(t *testing.T) {
	setGinTestMode()
	db := newInMemoryDB(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	_, err := GetDB(c)
	assert.Error(t, err)

	c.Set(DBKey, "not a db")
	_, err = GetDB(c)
	assert.Error(t, err)

	r := gin.New()
	r.Use(DatabaseMiddleware(db))
	var got *gorm.DB
	r.GET("/db", func(c *gin.Context) {
		got, _ = GetDB(c)
		c.Status(http.StatusOK)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/db", nil))
	assert.Same(t, db, got)
}

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://app.example.com"}))
	r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireAuthBearer(t *testing.T) {
	issuer := newTestIssuer()
	token := issueToken(t, issuer, service.Identity{ID: 42, Role: model.RolePatient})

	w, seen := runAuthRequest(issuer, authRequest{token: token})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Identity{ID: 42, Role: model.RolePatient}, seen)
}

func TestRequireAuthDoctorCookie(t *testing.T) {
	issuer := newTestIssuer()
	token := issueToken(t, issuer, service.Identity{ID: 7, Role: model.RoleDoctor})

	w, seen := runAuthRequest(issuer, authRequest{cookie: token, roles: []string{model.RoleDoctor}})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(7), seen.ID)
}

func TestRequireAuthRejects(t *testing.T) {
	issuer := newTestIssuer()
	patientToken := issueToken(t, issuer, service.Identity{ID: 1, Role: model.RolePatient})

	w, _ := runAuthRequest(issuer, authRequest{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = runAuthRequest(issuer, authRequest{token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = runAuthRequest(issuer, authRequest{token: patientToken, roles: []string{model.RoleDoctor}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	expired := &service.SessionIssuer{
		Secret:     issuer.Secret,
		PatientTTL: time.Minute,
		Now:        func() time.Time { return time.Now().Add(-time.Hour) },
	}
	old := issueToken(t, expired, service.Identity{ID: 1, Role: model.RolePatient})
	w, _ = runAuthRequest(issuer, authRequest{token: old})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Session expired")
}

func TestRequireAPIToken(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.GET("/admin", RequireAPIToken("admin-secret"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(APITokenHeader, "admin-secret")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(APITokenHeader, "wrong")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	unset := gin.New()
	unset.GET("/admin", RequireAPIToken(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(APITokenHeader, "")
	unset.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetIdentityMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetIdentity(c)
	assert.False(t, ok)

	c.Set(UserIDKey, uint(3))
	_, ok = GetIdentity(c)
	assert.False(t, ok)

	c.Set(RoleKey, model.RoleDoctor)
	id, ok := GetIdentity(c)
	assert.True(t, ok)
	assert.Equal(t, service.Identity{ID: 3, Role: model.RoleDoctor}, id)
}
