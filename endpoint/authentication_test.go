package endpoint

import (
	"net/http"
	"testing"
	"time"

	"github.com/doctorsapp/doctors-api/model"
	"github.com/doctorsapp/doctors-api/util"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// createLoginUser stores a user with a proper argon2 hash so login succeeds
// with the given plain password.
func createLoginUser(t *testing.T, db *gorm.DB, username, plain string) model.User {
	t.Helper()
	salt, err := util.GenerateSalt()
	if err != nil {
		t.Fatalf("failed to generate salt: %v", err)
	}
	hashed, err := util.HashPasswordArgon2(plain, salt)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := model.User{
		Username:     username,
		Email:        username + "@example.com",
		Password:     hashed,
		PasswordSalt: salt,
		FirstName:    username,
		LastName:     "Tester",
		Role:         model.RolePatient,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func loginRequest(email, password string) requestSpec {
	return requestSpec{
		method:       http.MethodPost,
		registerPath: "/login",
		requestPath:  "/login",
		handler:      Login,
		body:         LoginRequest{Email: email, Password: password},
	}
}

func TestLogin(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")

	w, response, err := doRequestWithHandler(r, loginRequest("alice@example.com", "password123"))
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)

	data := response["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	assert.Equal(t, model.RolePatient, data["role"])
	assert.Equal(t, float64(user.ID), data["user_id"])

	var session model.Session
	if err := db.Where("user_id = ?", user.ID).First(&session).Error; err != nil {
		t.Fatalf("session not recorded: %v", err)
	}
	assert.Equal(t, data["token"], session.SessionToken)
	assert.True(t, session.ExpiresAt.After(time.Now()))
}

func TestLogin_EmailIsCaseInsensitive(t *testing.T) {
	r, db := setupEndpointTest(t)
	createLoginUser(t, db, "alice", "password123")

	w, response, err := doRequestWithHandler(r, loginRequest("Alice@Example.com", "password123"))
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)
}

func TestLogin_WrongPassword(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")

	w, _, err := doRequestWithHandler(r, loginRequest("alice@example.com", "wrongpassword"))
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusBadRequest)

	var updated model.User
	db.First(&updated, user.ID)
	assert.Equal(t, 1, updated.FailedAttempts)
}

func TestLogin_UnknownEmail(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w, _, err := doRequestWithHandler(r, loginRequest("nobody@example.com", "password123"))
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusBadRequest)
}

func TestLogin_LockoutAfterRepeatedFailures(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")

	r.POST("/login", Login)
	for i := 0; i < 5; i++ {
		w, _, err := performRequest(r, loginRequest("alice@example.com", "wrongpassword"))
		assert.NoError(t, err)
		assertStatus(t, w, http.StatusBadRequest)
	}

	var locked model.User
	db.First(&locked, user.ID)
	assert.Equal(t, 5, locked.FailedAttempts)
	if assert.NotNil(t, locked.LockedUntil) {
		assert.Greater(t, *locked.LockedUntil, time.Now().Unix())
	}

	// Correct password is rejected while the lock holds
	w, _, err := performRequest(r, loginRequest("alice@example.com", "password123"))
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusBadRequest)
}

func TestLogin_ResetsFailedAttempts(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")
	db.Model(&user).Update("failed_attempts", 3)

	w, _, err := doRequestWithHandler(r, loginRequest("alice@example.com", "password123"))
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusOK)

	var updated model.User
	db.First(&updated, user.ID)
	assert.Equal(t, 0, updated.FailedAttempts)
}

func TestLogin_UpgradesLegacyHash(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := model.User{
		Username:  "legacy",
		Email:     "legacy@example.com",
		Password:  util.HashPassword("password123"),
		FirstName: "Legacy",
		LastName:  "Tester",
		Role:      model.RolePatient,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	w, _, err := doRequestWithHandler(r, loginRequest("legacy@example.com", "password123"))
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusOK)

	var upgraded model.User
	db.First(&upgraded, user.ID)
	assert.True(t, len(upgraded.PasswordSalt) > 0)
	assert.Contains(t, upgraded.Password, "argon2id$")

	match, verr := util.VerifyPassword("password123", upgraded.Password, upgraded.PasswordSalt)
	assert.NoError(t, verr)
	assert.True(t, match)
}

func TestLogout(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")
	session := model.Session{
		UserID:       user.ID,
		SessionToken: "logout-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	w, response, err := doRequestWithHandler(r, requestSpec{
		method:       http.MethodDelete,
		registerPath: "/logout",
		requestPath:  "/logout",
		handler:      Logout,
		headers:      map[string]string{"session-token": "logout-token"},
	})
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)

	var sessions int64
	db.Model(&model.Session{}).Where("session_token = ?", "logout-token").Count(&sessions)
	assert.Equal(t, int64(0), sessions)
}

func TestLogout_MissingToken(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w, _, err := doRequestWithHandler(r, requestSpec{
		method:       http.MethodDelete,
		registerPath: "/logout",
		requestPath:  "/logout",
		handler:      Logout,
	})
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusUnauthorized)
}

func TestLogout_UnknownSession(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w, _, err := doRequestWithHandler(r, requestSpec{
		method:       http.MethodDelete,
		registerPath: "/logout",
		requestPath:  "/logout",
		handler:      Logout,
		headers:      map[string]string{"session-token": "no-such-token"},
	})
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusBadRequest)
}

func TestValidateToken(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")
	session := model.Session{
		UserID:       user.ID,
		SessionToken: "valid-token",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	w, response, err := doRequestWithHandler(r, requestSpec{
		method:       http.MethodGet,
		registerPath: "/token/validate",
		requestPath:  "/token/validate",
		handler:      ValidateToken,
		headers:      map[string]string{"session-token": "valid-token"},
	})
	assert.NoError(t, err)
	assertSuccessResponse(t, w, response)

	data := response["data"].(map[string]interface{})
	assert.Equal(t, model.RolePatient, data["role"])
}

func TestValidateToken_Expired(t *testing.T) {
	r, db := setupEndpointTest(t)
	user := createLoginUser(t, db, "alice", "password123")
	session := model.Session{
		UserID:       user.ID,
		SessionToken: "expired-token",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	if err := db.Create(&session).Error; err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	w, _, err := doRequestWithHandler(r, requestSpec{
		method:       http.MethodGet,
		registerPath: "/token/validate",
		requestPath:  "/token/validate",
		handler:      ValidateToken,
		headers:      map[string]string{"session-token": "expired-token"},
	})
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusUnauthorized)
}

func TestValidateToken_Missing(t *testing.T) {
	r, _ := setupEndpointTest(t)

	w, _, err := doRequestWithHandler(r, requestSpec{
		method:       http.MethodGet,
		registerPath: "/token/validate",
		requestPath:  "/token/validate",
		handler:      ValidateToken,
	})
	assert.NoError(t, err)
	assertStatus(t, w, http.StatusUnauthorized)
}
