package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
)

func geminiReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]string{{"text": text}},
			},
		}},
	})
	return string(b)
}

const validNote = `{
	"summary": "Patient seen for persistent cough.",
	"symptoms": ["cough", "mild fever"],
	"medications": [{"name": "amoxicillin", "dose": "500mg twice daily"}],
	"followups": ["return in 2 weeks"],
	"restrictions": "avoid cold drinks"
}`

func newTestGemini(serverURL string) *GeminiClient {
	return NewGeminiClient(serverURL, "gemini-pro", "test-key", 5*time.Second, zerolog.Nop())
}

func TestExtractSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wantPath := "/v1beta/models/gemini-pro:generateContent"
		if r.URL.Path != wantPath {
			t.Errorf("path = %q, want %q", r.URL.Path, wantPath)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Error("missing api key query param")
		}
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !strings.Contains(req.Contents[0].Parts[0].Text, "the patient said things") {
			t.Error("prompt should embed the transcript")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, geminiReply(validNote))
	}))
	defer srv.Close()

	res, err := newTestGemini(srv.URL).Extract(context.Background(), "the patient said things")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if res.Summary != "Patient seen for persistent cough." {
		t.Errorf("summary = %q", res.Summary)
	}
	if len(res.Symptoms) != 2 || res.Symptoms[0] != "cough" {
		t.Errorf("symptoms = %v", res.Symptoms)
	}
	if len(res.Medications) != 1 || res.Medications[0].Name != "amoxicillin" {
		t.Errorf("medications = %v", res.Medications)
	}
	if res.Restrictions != "avoid cold drinks" {
		t.Errorf("restrictions = %q", res.Restrictions)
	}
}

func TestExtractStripsCodeFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, geminiReply("```json\n"+validNote+"\n```"))
	}))
	defer srv.Close()

	res, err := newTestGemini(srv.URL).Extract(context.Background(), "t")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if res.Summary == "" {
		t.Error("expected parsed summary")
	}
}

func TestExtractMedicationMapForm(t *testing.T) {
	note := `{
		"summary": "s",
		"symptoms": [],
		"medications": [{"paracetamol": "650mg as needed"}],
		"followups": [],
		"restrictions": "none"
	}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, geminiReply(note))
	}))
	defer srv.Close()

	res, err := newTestGemini(srv.URL).Extract(context.Background(), "t")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if res.Medications[0].Name != "paracetamol" || res.Medications[0].Dose != "650mg as needed" {
		t.Errorf("medication = %+v", res.Medications[0])
	}
}

func TestExtractMalformedReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
	}{
		{"not json", "I'm sorry, I can't help with that."},
		{"missing fields", `{"summary": "s", "symptoms": []}`},
		{"bad medication entry", `{"summary":"s","symptoms":[],"medications":["amoxicillin"],"followups":[],"restrictions":"none"}`},
		{"restrictions as list", `{"summary":"s","symptoms":[],"medications":[],"followups":[],"restrictions":["no lifting"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, geminiReply(tc.reply))
			}))
			defer srv.Close()

			_, err := newTestGemini(srv.URL).Extract(context.Background(), "t")
			if apperr.KindOf(err) != apperr.KindMalformedOutput {
				t.Errorf("kind = %v, want KindMalformedOutput", apperr.KindOf(err))
			}
		})
	}
}

func TestExtractUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"message":"API key invalid"}}`)
	}))
	defer srv.Close()

	_, err := newTestGemini(srv.URL).Extract(context.Background(), "t")
	if apperr.KindOf(err) != apperr.KindUpstream {
		t.Errorf("kind = %v, want KindUpstream", apperr.KindOf(err))
	}
	if !strings.Contains(err.Error(), "API key invalid") {
		t.Errorf("error should carry API message, got %q", err.Error())
	}
}

func TestStripCodeFence(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		if got := stripCodeFence(tc.in); got != tc.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
