package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
)

func setupHandler(t *testing.T, ext *stubExtractor) (*echo.Echo, uuid.UUID) {
	t.Helper()
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	svc, _, sessionID := newTestService(ext)
	NewHandler(svc).RegisterRoutes(e.Group("/api"))
	return e, sessionID
}

func do(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateReportEndpoint(t *testing.T) {
	e, sessionID := setupHandler(t, &stubExtractor{result: sampleResult()})

	rec := do(e, http.MethodPost, "/api/sessions/"+sessionID.String()+"/report")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var rep Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Summary == "" || len(rep.Symptoms) == 0 {
		t.Errorf("unexpected report: %+v", rep)
	}

	// Second generation conflicts.
	rec = do(e, http.MethodPost, "/api/sessions/"+sessionID.String()+"/report")
	if rec.Code != http.StatusConflict {
		t.Errorf("second generate status = %d, want 409", rec.Code)
	}
}

func TestGenerateReportEndpointNoTranscript(t *testing.T) {
	e, _ := setupHandler(t, &stubExtractor{result: sampleResult()})

	rec := do(e, http.MethodPost, "/api/sessions/"+uuid.New().String()+"/report")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateReportEndpointMalformedModelOutput(t *testing.T) {
	ext := &stubExtractor{err: apperr.MalformedOutput("model reply is not valid JSON", nil)}
	e, sessionID := setupHandler(t, ext)

	rec := do(e, http.MethodPost, "/api/sessions/"+sessionID.String()+"/report")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestGetSessionReportEndpoint(t *testing.T) {
	e, sessionID := setupHandler(t, &stubExtractor{result: sampleResult()})

	if rec := do(e, http.MethodGet, "/api/sessions/"+sessionID.String()+"/report"); rec.Code != http.StatusNotFound {
		t.Errorf("status before generation = %d, want 404", rec.Code)
	}

	if rec := do(e, http.MethodPost, "/api/sessions/"+sessionID.String()+"/report"); rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d", rec.Code)
	}

	rec := do(e, http.MethodGet, "/api/sessions/"+sessionID.String()+"/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var rep Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.SessionID != sessionID {
		t.Error("session_id mismatch")
	}
}

func TestCreateReportEndpoint(t *testing.T) {
	e, sessionID := setupHandler(t, &stubExtractor{result: sampleResult()})

	body := `{"session_id":"` + sessionID.String() + `","summary":"Hand-written note.","restrictions":"none"}`
	rec := doJSON(e, http.MethodPost, "/api/reports", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var rep Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.ID == uuid.Nil || rep.Summary != "Hand-written note." {
		t.Errorf("unexpected report: %+v", rep)
	}

	// The one-report-per-session rule applies to direct creation too.
	if rec := doJSON(e, http.MethodPost, "/api/reports", body); rec.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", rec.Code)
	}
}

func TestCreateReportEndpointMissingFields(t *testing.T) {
	e, sessionID := setupHandler(t, &stubExtractor{result: sampleResult()})

	cases := []struct {
		name string
		body string
	}{
		{"no session", `{"summary":"s"}`},
		{"no summary", `{"session_id":"` + sessionID.String() + `"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := doJSON(e, http.MethodPost, "/api/reports", tc.body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDeleteReportEndpoint(t *testing.T) {
	e, sessionID := setupHandler(t, &stubExtractor{result: sampleResult()})

	rec := do(e, http.MethodPost, "/api/sessions/"+sessionID.String()+"/report")
	if rec.Code != http.StatusCreated {
		t.Fatalf("generate status = %d", rec.Code)
	}
	var rep Report
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if rec := do(e, http.MethodDelete, "/api/reports/"+rep.ID.String()); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/reports/"+rep.ID.String()); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}
