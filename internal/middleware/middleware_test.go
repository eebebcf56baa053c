package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"cardvault/internal/config"
	"cardvault/internal/database"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var prodConfig = &config.Config{Environment: "production", SessionDuration: time.Hour}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Initialize(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func signIn(t *testing.T, db *sql.DB, email string) (*models.User, *http.Cookie) {
	t.Helper()
	user, err := database.CreateUser(db, email, "Tester", "password123")
	require.NoError(t, err)
	session, err := database.CreateSession(db, user.ID, time.Hour)
	require.NoError(t, err)
	return user, &http.Cookie{Name: sessionCookie, Value: session.ID}
}

func ok(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetInt("user_id"), "renewed": c.GetString("new_csrf_token")})
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRateLimit(prodConfig), ok)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{200, 200, 200, 200, 200, 429}, codes)
}

func TestRateLimitSkippedInDevelopment(t *testing.T) {
	r := gin.New()
	r.GET("/", AuthRateLimit(&config.Config{Environment: "development"}), ok)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestNotFoundGuardBlocksAfterTenMisses(t *testing.T) {
	r := gin.New()
	r.Use(NotFoundGuard(prodConfig))
	r.GET("/ok", ok)

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://a.example, https://b.example"))
	r.GET("/", ok)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://b.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://b.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthRequired(t *testing.T) {
	db := setupTestDB(t)
	user, cookie := signIn(t, db, "a@example.com")

	r := gin.New()
	r.GET("/", AuthRequired(db, prodConfig), ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "bogus"})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "session_id=;")

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":`+strconv.Itoa(user.ID))
}

func TestAdminRequired(t *testing.T) {
	db := setupTestDB(t)
	_, adminCookie := signIn(t, db, "admin@example.com")
	_, customerCookie := signIn(t, db, "customer@example.com")

	r := gin.New()
	r.GET("/", AdminRequired(db, prodConfig), ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(customerCookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(adminCookie)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCSRF(t *testing.T) {
	db := setupTestDB(t)
	user, cookie := signIn(t, db, "a@example.com")

	r := gin.New()
	protected := r.Group("/", AuthRequired(db, prodConfig), CSRF(prodConfig))
	protected.GET("/", ok)
	protected.POST("/", ok)

	send := func(method, token string) int {
		req := httptest.NewRequest(method, "/", nil)
		req.AddCookie(cookie)
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodGet, ""))
	assert.Equal(t, http.StatusForbidden, send(http.MethodPost, ""))
	assert.Equal(t, http.StatusForbidden, send(http.MethodPost, "forged"))

	token, err := database.CreateCSRFToken(db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, send(http.MethodPost, token.Token))
	assert.Equal(t, http.StatusForbidden, send(http.MethodPost, token.Token), "tokens are single use")
}

func TestCSRFWithRenewalIssuesNextToken(t *testing.T) {
	db := setupTestDB(t)
	user, cookie := signIn(t, db, "a@example.com")

	r := gin.New()
	r.POST("/", AuthRequired(db, prodConfig), CSRFWithRenewal(prodConfig), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("new_csrf_token"))
	})

	token, err := database.CreateCSRFToken(db, user.ID)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(cookie)
	req.Header.Set("X-CSRF-Token", token.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	next := w.Body.String()
	require.NotEmpty(t, next)
	assert.NotEqual(t, token.Token, next)
	assert.NoError(t, database.ValidateCSRFToken(db, next, user.ID))
}

type requestLog struct {
	method, route string
	status        int
}

type recorder struct {
	requests []requestLog
}

func (r *recorder) RecordProductImport(bool) {}
func (r *recorder) RecordCardsPlaced(int) {}
func (r *recorder) RecordCardSearch(string, string) {}
func (r *recorder) RecordOrderPlaced(float64) {}
func (r *recorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	r.requests = append(r.requests, requestLog{method, route, status})
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	rec := &recorder{}
	r := gin.New()
	r.Use(Metrics(rec))
	r.GET("/api/binders/:id", ok)

	for _, path := range []string{"/api/binders/1", "/api/binders/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, []requestLog{
		{http.MethodGet, "/api/binders/:id", 200},
		{http.MethodGet, "/api/binders/:id", 200},
		{http.MethodGet, "", 404},
	}, rec.requests)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(prodConfig))
	r.GET("/", ok)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
