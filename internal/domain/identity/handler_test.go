package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
	"github.com/mediscribe/mediscribe/pkg/pagination"
)

func setupHandler(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	svc, _, _, _ := newTestService()
	NewHandler(svc).RegisterRoutes(e.Group("/api"))
	return e, svc
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreatePatientEndpoint(t *testing.T) {
	e, _ := setupHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/patients",
		`{"email":"p@x.com","password":"pw","first_name":"Pat","last_name":"Jones","date_of_birth":"1985-06-15"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var p Patient
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.FirstName != "Pat" {
		t.Errorf("first_name = %q", p.FirstName)
	}
}

func TestCreatePatientEndpointValidation(t *testing.T) {
	e, _ := setupHandler(t)

	rec := doJSON(e, http.MethodPost, "/api/patients", `{"email":"p@x.com"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestGetPatientEndpointNotFound(t *testing.T) {
	e, _ := setupHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/patients/6f1e0b9a-0b65-4d6e-9f3a-b1a9d6f2c111", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetPatientEndpointBadID(t *testing.T) {
	e, _ := setupHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/patients/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListPatientsEndpointEmpty(t *testing.T) {
	e, _ := setupHandler(t)

	rec := doJSON(e, http.MethodGet, "/api/patients", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp pagination.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 0 {
		t.Errorf("total = %d, want 0", resp.Total)
	}
	if data, ok := resp.Data.([]interface{}); !ok || len(data) != 0 {
		t.Errorf("data should be an empty array, got %v", resp.Data)
	}
}

func TestDoctorCRUDEndpoints(t *testing.T) {
	e, svc := setupHandler(t)
	ctx := context.Background()

	d, err := svc.CreateDoctor(ctx, DoctorIntake{
		Email: "d@x.com", Password: "pw", FirstName: "Dana", LastName: "Lee",
	})
	if err != nil {
		t.Fatalf("seed doctor: %v", err)
	}

	rec := doJSON(e, http.MethodGet, "/api/doctors/"+d.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodPut, "/api/doctors/"+d.ID.String(),
		`{"user_id":"`+d.UserID.String()+`","first_name":"Dana","last_name":"Chen"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var updated Doctor
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.LastName != "Chen" {
		t.Errorf("last_name = %q, want Chen", updated.LastName)
	}

	rec = doJSON(e, http.MethodDelete, "/api/doctors/"+d.ID.String(), "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(e, http.MethodGet, "/api/doctors/"+d.ID.String(), "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}
