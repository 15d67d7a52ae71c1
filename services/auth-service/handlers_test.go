package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campus-maintenance-system/pkg/auth"
	"campus-maintenance-system/pkg/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestHandler() (*authHandler, http.Handler) {
	h := &authHandler{
		users:  users.NewMemoryRepository(),
		tokens: auth.NewTokenManager("test-secret", time.Hour),
	}
	return h, h.routes()
}

func do(t *testing.T, srv http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRegisterAndLogin(t *testing.T) {
	_, srv := newTestHandler()

	rec, env := do(t, srv, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"alice@campus.edu","password":"password123"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var registered struct {
		Token string    `json:"token"`
		Role  auth.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, auth.RoleStudent, registered.Role)

	rec, _ = do(t, srv, http.MethodPost, "/api/auth/login",
		`{"email":"alice@campus.edu","password":"password123"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, srv, http.MethodPost, "/api/auth/login",
		`{"email":"alice@campus.edu","password":"wrong-password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", env.Message)
}

func TestRegisterValidation(t *testing.T) {
	_, srv := newTestHandler()

	cases := map[string]string{
		"short username": `{"username":"al","email":"a@campus.edu","password":"password123"}`,
		"bad email":      `{"username":"alice","email":"not-an-email","password":"password123"}`,
		"short password": `{"username":"alice","email":"a@campus.edu","password":"short"}`,
		"admin role":     `{"username":"alice","email":"a@campus.edu","password":"password123","role":"admin"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec, env := do(t, srv, http.MethodPost, "/api/auth/register", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, env.Success)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	_, srv := newTestHandler()
	body := `{"username":"bob","email":"bob@campus.edu","password":"password123","role":"staff"}`

	rec, _ := do(t, srv, http.MethodPost, "/api/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = do(t, srv, http.MethodPost, "/api/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestMeAndProfileUpdate(t *testing.T) {
	h, srv := newTestHandler()
	u := &users.User{Username: "carol", Email: "carol@campus.edu", Role: auth.RoleStaff}
	require.NoError(t, h.users.Create(context.Background(), u))
	token, err := h.tokens.Generate(u.Principal())
	require.NoError(t, err)

	rec, _ := do(t, srv, http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := do(t, srv, http.MethodGet, "/api/auth/me", "", token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, string(env.Data), "password")

	rec, env = do(t, srv, http.MethodPut, "/api/auth/me", `{"username":"carol2"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"username":"carol2"`)
}

func TestDeleteUserRequiresAdmin(t *testing.T) {
	h, srv := newTestHandler()
	ctx := context.Background()
	admin := &users.User{Username: "root", Email: "root@campus.edu", Role: auth.RoleAdmin}
	student := &users.User{Username: "dave", Email: "dave@campus.edu"}
	require.NoError(t, h.users.Create(ctx, admin))
	require.NoError(t, h.users.Create(ctx, student))

	studentToken, _ := h.tokens.Generate(student.Principal())
	adminToken, _ := h.tokens.Generate(admin.Principal())

	rec, _ := do(t, srv, http.MethodDelete, "/api/auth/users?email=dave@campus.edu", "", studentToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = do(t, srv, http.MethodDelete, "/api/auth/users", "", adminToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, srv, http.MethodDelete, "/api/auth/users?email=dave@campus.edu", "", adminToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, http.MethodDelete, "/api/auth/users?email=dave@campus.edu", "", adminToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthWithoutDatabase(t *testing.T) {
	_, srv := newTestHandler()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"UP"`)
}
