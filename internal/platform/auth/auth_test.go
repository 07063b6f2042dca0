package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", time.Hour)
	uid := uuid.New()

	token, err := issuer.Issue(uid, "doc@example.com", "doctor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != uid.String() {
		t.Errorf("expected subject %s, got %s", uid, claims.Subject)
	}
	if claims.Email != "doc@example.com" {
		t.Errorf("expected email, got %s", claims.Email)
	}
	if claims.Role != "doctor" {
		t.Errorf("expected role doctor, got %s", claims.Role)
	}
}

func TestTokenIssuer_RejectsWrongKey(t *testing.T) {
	issuer := NewTokenIssuer("key-one", time.Hour)
	other := NewTokenIssuer("key-two", time.Hour)

	token, err := issuer.Issue(uuid.New(), "a@b.c", "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := other.Parse(token); err == nil {
		t.Error("expected error for token signed with a different key")
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("key", -time.Minute)

	token, err := issuer.Issue(uuid.New(), "a@b.c", "patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issuer.Parse(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestBearerAuth_MissingHeader(t *testing.T) {
	issuer := NewTokenIssuer("key", time.Hour)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	err := BearerAuth(issuer, DefaultSkipper)(handler)(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestBearerAuth_SkipsAuthEndpoints(t *testing.T) {
	issuer := NewTokenIssuer("key", time.Hour)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	if err := BearerAuth(issuer, DefaultSkipper)(handler)(c); err != nil {
		t.Errorf("expected login path to skip auth, got %v", err)
	}
}

func TestBearerAuth_ValidToken(t *testing.T) {
	issuer := NewTokenIssuer("key", time.Hour)
	uid := uuid.New()
	token, _ := issuer.Issue(uid, "doc@example.com", "doctor")

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		ctx := c.Request().Context()
		if UserIDFromContext(ctx) != uid.String() {
			t.Errorf("expected user id on context")
		}
		if RoleFromContext(ctx) != "doctor" {
			t.Errorf("expected role on context")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := BearerAuth(issuer, DefaultSkipper)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	issuer := NewTokenIssuer("key", time.Hour)
	token, _ := issuer.Issue(uuid.New(), "p@example.com", "patient")

	req := httptest.NewRequest(http.MethodDelete, "/api/patients/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	chain := BearerAuth(issuer, nil)(RequireRole("doctor")(handler))

	err := chain(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 for patient role, got %v", err)
	}
}
