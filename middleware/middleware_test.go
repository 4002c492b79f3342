package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doctorsapp/doctors-api/config"
	"github.com/doctorsapp/doctors-api/model"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newInMemoryDB creates an in-memory sqlite DB and runs required migrations for tests.
func newInMemoryDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Session{}); err != nil {
		t.Fatalf("failed to auto-migrate: %v", err)
	}
	return db
}

type testSessionParams struct {
	role      string
	token     string
	expiresAt time.Time
}

// createTestUserAndSession creates a user and associated session in the provided DB.
func createTestUserAndSession(t *testing.T, db *gorm.DB, params testSessionParams) (model.User, model.Session) {
	if params.role == "" {
		params.role = model.RolePatient
	}
	user := model.User{
		Username:  "testuser",
		Email:     "test@example.com",
		Password:  "hashedpassword",
		FirstName: "Test",
		LastName:  "User",
		Role:      params.role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	if params.expiresAt.IsZero() {
		params.expiresAt = time.Now().Add(time.Hour)
	}
	session := model.Session{
		SessionToken: params.token,
		UserID:       user.ID,
		ExpiresAt:    params.expiresAt,
		ClientIP:     "127.0.0.1",
		Browser:      "test-browser",
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create test session: %v", err)
	}
	return user, session
}

// newTestDBWithUserSession creates an in-memory DB and seeds a user+session.
func newTestDBWithUserSession(t *testing.T, params testSessionParams) (*gorm.DB, model.User, model.Session) {
	db := newInMemoryDB(t)
	user, session := createTestUserAndSession(t, db, params)
	return db, user, session
}

func runRequireSessionRequest(db *gorm.DB, token string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	_, r := gin.CreateTestContext(w)
	if db != nil {
		r.Use(DatabaseMiddleware(db))
	}
	r.GET("/test", RequireSession(), handler)
	req := httptest.NewRequest("GET", "/test", nil)
	if token != "" {
		req.Header.Set("session-token", token)
	}
	r.ServeHTTP(w, req)
	return w
}

func setGinTestMode() {
	gin.SetMode(gin.TestMode)
}

func setupRedisMock(t *testing.T) redismock.ClientMock {
	rdb, mock := redismock.NewClientMock()
	config.SetRedisClientForTest(rdb)
	t.Cleanup(func() {
		config.ResetRedisClientForTest()
	})
	return mock
}

func assertAuthContext(t *testing.T, c *gin.Context, wantID uint, wantRole string, msg string) {
	t.Helper()
	id, ok := GetUserID(c)
	if !ok || id != wantID {
		t.Errorf("expected user_id %d, got %v (set=%v)%s", wantID, id, ok, msg)
	}
	role, ok := GetUserRole(c)
	if !ok || role != wantRole {
		t.Errorf("expected user_role %q, got %q (set=%v)%s", wantRole, role, ok, msg)
	}
}

func TestCORSMiddlewareHeaders(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatalf("expected Access-Control-Allow-Methods header to be set")
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	setGinTestMode()
	r := gin.New()
	r.Use(CORSMiddleware())
	r.GET("/", func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight request, got %d", w.Code)
	}
}

func TestDatabaseMiddlewareAndGetDB(t *testing.T) {
	r := gin.New()
	// Use a zero-value gorm.DB pointer as a placeholder
	db := &gorm.DB{}
	r.Use(DatabaseMiddleware(db))
	r.GET("/testdb", func(c *gin.Context) {
		got := GetDB(c)
		if got == nil {
			c.AbortWithStatus(500)
			return
		}
		if got != db {
			c.AbortWithStatus(500)
			return
		}
		c.Status(200)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/testdb", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200 from handler with DB set, got %d", w.Code)
	}
}

func TestRequireSession_MissingToken(t *testing.T) {
	setGinTestMode()

	db := &gorm.DB{}
	w := runRequireSessionRequest(db, "", func(c *gin.Context) {
		c.Status(200)
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when session token missing, got %d", w.Code)
	}
}

func TestRequireSession_MissingDatabase(t *testing.T) {
	setGinTestMode()
	config.ResetRedisClientForTest()
	defer config.ResetRedisClientForTest()

	w := runRequireSessionRequest(nil, "test-token", func(c *gin.Context) {
		c.Status(200)
	})

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when database missing, got %d", w.Code)
	}
}

func TestRequireSession_RedisHit(t *testing.T) {
	setGinTestMode()

	mock := setupRedisMock(t)
	mock.ExpectGet("session:valid-token").SetVal("123:doctor")

	db := &gorm.DB{}
	w := runRequireSessionRequest(db, "valid-token", func(c *gin.Context) {
		assertAuthContext(t, c, 123, model.RoleDoctor, "")
		c.Status(200)
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on Redis hit, got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestRequireSession_RedisMalformedValue_DBFallback(t *testing.T) {
	setGinTestMode()

	mock := setupRedisMock(t)
	mock.ExpectGet("session:malformed-token").SetVal("abc:patient")

	db, user, _ := newTestDBWithUserSession(t, testSessionParams{role: model.RolePatient, token: "malformed-token"})

	w := runRequireSessionRequest(db, "malformed-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RolePatient, " from DB fallback")
		c.Status(200)
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when DB fallback succeeds after Redis parse error, got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestRequireSession_RedisMissingColon_DBFallback(t *testing.T) {
	setGinTestMode()

	mock := setupRedisMock(t)
	mock.ExpectGet("session:invalid-format-token").SetVal("123")

	db, user, _ := newTestDBWithUserSession(t, testSessionParams{role: model.RoleDoctor, token: "invalid-format-token"})

	w := runRequireSessionRequest(db, "invalid-format-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RoleDoctor, " from DB fallback")
		c.Status(200)
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when DB fallback succeeds after invalid format, got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestRequireSession_RedisZeroUserID_DBFallback(t *testing.T) {
	setGinTestMode()

	mock := setupRedisMock(t)
	mock.ExpectGet("session:zero-uid-token").SetVal("0:patient")

	db, user, _ := newTestDBWithUserSession(t, testSessionParams{role: model.RolePatient, token: "zero-uid-token"})

	w := runRequireSessionRequest(db, "zero-uid-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RolePatient, " from DB fallback")
		c.Status(200)
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when DB fallback succeeds after zero UID, got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestRequireSession_RedisNotAvailable_DBFallback(t *testing.T) {
	setGinTestMode()

	config.ResetRedisClientForTest()
	defer config.ResetRedisClientForTest()

	db, user, _ := newTestDBWithUserSession(t, testSessionParams{role: model.RolePatient, token: "db-only-token"})

	w := runRequireSessionRequest(db, "db-only-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RolePatient, " from DB")
		c.Status(200)
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when DB lookup succeeds, got %d", w.Code)
	}
}

func TestRequireSession_DBFallback_ExpiredSession(t *testing.T) {
	setGinTestMode()

	config.ResetRedisClientForTest()
	defer config.ResetRedisClientForTest()

	db, _, _ := newTestDBWithUserSession(t, testSessionParams{role: model.RolePatient, token: "expired-token", expiresAt: time.Now().Add(-time.Hour)})

	w := runRequireSessionRequest(db, "expired-token", func(c *gin.Context) {
		c.Status(200)
	})

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when session is expired, got %d", w.Code)
	}
}

func TestRequireSession_RedisKeyNotFound_DBFallback(t *testing.T) {
	setGinTestMode()

	mock := setupRedisMock(t)
	mock.ExpectGet("session:notfound-token").RedisNil()

	db, user, _ := newTestDBWithUserSession(t, testSessionParams{role: model.RolePatient, token: "notfound-token"})

	w := runRequireSessionRequest(db, "notfound-token", func(c *gin.Context) {
		assertAuthContext(t, c, user.ID, model.RolePatient, " from DB fallback")
		c.Status(200)
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 when DB fallback succeeds after Redis key not found, got %d", w.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Redis expectations were not met: %v", err)
	}
}

func TestRequireAPIToken(t *testing.T) {
	setGinTestMode()
	t.Setenv("APITOKEN", "admin-secret")

	// Force the config singleton to pick up the env var for this binary.
	cfg := config.LoadConfig()
	if cfg.APIToken == "" {
		cfg.APIToken = "admin-secret"
	}

	r := gin.New()
	r.GET("/admin", RequireAPIToken(), func(c *gin.Context) { c.Status(200) })

	// Matching token passes
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("api-token", cfg.APIToken)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid api token, got %d", w.Code)
	}

	// Mismatch is rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("api-token", "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad api token, got %d", w.Code)
	}

	// Missing token is rejected
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/admin", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api token, got %d", w.Code)
	}
}
