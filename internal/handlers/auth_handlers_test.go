package handlers

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRegisterCreatesUserAndReturnsToken(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Alice",
		"email":    "Alice@Example.com",
		"password": "secret123",
	}, nil)
	assertStatus(t, resp, fiber.StatusCreated)

	body := decodeJSONMap(t, resp)
	data := dataMap(t, body)

	token, _ := data["token"].(string)
	if token == "" {
		t.Fatal("expected a token in the response")
	}

	user, ok := data["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %+v", data)
	}
	if user["email"] != "alice@example.com" {
		t.Fatalf("expected lowercased email, got %v", user["email"])
	}
	if user["name"] != "Alice" {
		t.Fatalf("expected name Alice, got %v", user["name"])
	}
	if _, exists := user["passwordHash"]; exists {
		t.Fatal("password hash must not appear in the response")
	}

	// The token should be usable right away.
	meResp := performJSONRequest(t, env.app, fiber.MethodGet, "/api/users/me", nil, authHeaders(token))
	assertStatus(t, meResp, fiber.StatusOK)
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestEnv(t)

	cases := []struct {
		name    string
		payload map[string]any
		status  int
		message string
	}{
		{
			name:    "missing name",
			payload: map[string]any{"email": "a@b.com", "password": "secret123"},
			status:  fiber.StatusBadRequest,
			message: "all fields are required",
		},
		{
			name:    "missing email",
			payload: map[string]any{"name": "A", "password": "secret123"},
			status:  fiber.StatusBadRequest,
			message: "all fields are required",
		},
		{
			name:    "missing password",
			payload: map[string]any{"name": "A", "email": "a@b.com"},
			status:  fiber.StatusBadRequest,
			message: "all fields are required",
		},
		{
			name:    "short password",
			payload: map[string]any{"name": "A", "email": "a@b.com", "password": "12345"},
			status:  fiber.StatusBadRequest,
			message: "password must be at least 6 characters",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/register", tc.payload, nil)
			assertStatus(t, resp, tc.status)
			assertEnvelopeError(t, decodeJSONMap(t, resp), tc.message)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "Alice", "alice@example.com", "secret123")

	resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/register", map[string]any{
		"name":     "Another Alice",
		"email":    "ALICE@example.com",
		"password": "different1",
	}, nil)
	assertStatus(t, resp, fiber.StatusConflict)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "email is already registered")
}

func TestLoginSuccess(t *testing.T) {
	env := setupTestEnv(t)
	user, _ := createTestUser(t, env.db, "Bob", "bob@example.com", "secret123")

	resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email":    "BOB@example.com",
		"password": "secret123",
	}, nil)
	assertStatus(t, resp, fiber.StatusOK)

	data := dataMap(t, decodeJSONMap(t, resp))
	if token, _ := data["token"].(string); token == "" {
		t.Fatal("expected a token in the response")
	}
	loggedIn, _ := data["user"].(map[string]any)
	if loggedIn["id"] != user.ID.String() {
		t.Fatalf("expected user id %s, got %v", user.ID, loggedIn["id"])
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := setupTestEnv(t)
	createTestUser(t, env.db, "Bob", "bob@example.com", "secret123")

	// Unknown email and wrong password must be indistinguishable.
	for i, payload := range []map[string]any{
		{"email": "nobody@example.com", "password": "secret123"},
		{"email": "bob@example.com", "password": "wrong-password"},
	} {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", payload, nil)
			assertStatus(t, resp, fiber.StatusUnauthorized)
			assertEnvelopeError(t, decodeJSONMap(t, resp), "invalid email or password")
		})
	}
}

func TestLoginRequiresEmailAndPassword(t *testing.T) {
	env := setupTestEnv(t)

	resp := performJSONRequest(t, env.app, fiber.MethodPost, "/api/auth/login", map[string]any{
		"email": "bob@example.com",
	}, nil)
	assertStatus(t, resp, fiber.StatusBadRequest)
	assertEnvelopeError(t, decodeJSONMap(t, resp), "email and password are required")
}

func TestProtectedRoutesRejectBadTokens(t *testing.T) {
	env := setupTestEnv(t)

	cases := []struct {
		name    string
		headers map[string]string
		message string
	}{
		{name: "no header", headers: nil, message: "missing token"},
		{name: "not bearer", headers: map[string]string{"Authorization": "Basic abc"}, message: "invalid authorization format"},
		{name: "garbage token", headers: authHeaders("not-a-jwt"), message: "invalid or expired token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := performJSONRequest(t, env.app, fiber.MethodGet, "/api/users/me", nil, tc.headers)
			assertStatus(t, resp, fiber.StatusUnauthorized)
			assertEnvelopeError(t, decodeJSONMap(t, resp), tc.message)
		})
	}
}
