package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", "", map[string]string{"email": "alice@example.com", "password": "secret"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "hashed_password") {
		t.Fatalf("response leaks the password digest: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/register", "", map[string]string{"email": "alice@example.com", "password": "secret"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: want 409, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/register", "", map[string]string{"email": "bad", "password": "secret"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad email: want 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: want 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/login", "", map[string]string{"email": "alice@example.com", "password": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: want 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decode(t, rec, &out)
	if out.AccessToken == "" || out.TokenType != "bearer" {
		t.Fatalf("unexpected login body %s", rec.Body.String())
	}
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == accessTokenCookie && c.Value == out.AccessToken && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Fatalf("login should set the %s cookie", accessTokenCookie)
	}
}

func TestRegister_BadJSON(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/register", "", "not an object")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := newTestEnv(t)
	env.h.RateLimiter = NewRateLimiter(2, time.Minute)
	defer env.h.RateLimiter.Stop()
	env.router = env.h.Router(nil)

	creds := map[string]string{"email": "x@example.com", "password": "secret"}
	codes := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests}
	for i, want := range codes {
		if rec := env.do(t, http.MethodPost, "/login", "", creds); rec.Code != want {
			t.Fatalf("attempt %d: want %d, got %d", i+1, want, rec.Code)
		}
	}
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)
	id, token := env.signup(t, "alice")

	rec := env.do(t, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var me userResponse
	decode(t, rec, &me)
	if me.ID != id || me.Email != "alice@example.com" {
		t.Fatalf("unexpected /me body %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPatch, "/me", token, map[string]any{"full_name": "Alice A."})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: want 200, got %d", rec.Code)
	}
	decode(t, rec, &me)
	if me.FullName != "Alice A." {
		t.Fatalf("full_name = %q", me.FullName)
	}

	rec = env.do(t, http.MethodDelete, "/me", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: want 204, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user: want 401, got %d", rec.Code)
	}
}
