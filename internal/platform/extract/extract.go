// Package extract derives a structured clinical note from a consultation
// transcript using a generative language model.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mediscribe/mediscribe/internal/platform/apperr"
)

// Medication is a single prescribed drug with its dosage instruction.
type Medication struct {
	Name string `json:"name"`
	Dose string `json:"dose"`
}

// Result is the structured note extracted from a transcript.
type Result struct {
	Summary      string       `json:"summary"`
	Symptoms     []string     `json:"symptoms"`
	Medications  []Medication `json:"medications"`
	Followups    []string     `json:"followups"`
	Restrictions string       `json:"restrictions"`
}

// Extractor produces a structured note from raw transcript text.
type Extractor interface {
	Extract(ctx context.Context, transcript string) (*Result, error)
}

const defaultGeminiURL = "https://generativelanguage.googleapis.com"

const promptTemplate = `You are a medical scribe. Read the doctor-patient conversation transcript below and produce a JSON object with exactly these keys:
- "summary": a concise paragraph summarizing the visit
- "symptoms": list of symptoms the patient reported
- "medications": list of objects, each mapping a medication name to its dosage instruction, e.g. {"name": "amoxicillin", "dose": "500mg twice daily for 7 days"}
- "followups": list of follow-up actions or appointments
- "restrictions": a short sentence stating activity or dietary restrictions, or "none"

Respond with JSON only, no surrounding prose.

Transcript:
%s`

// Gemini REST wire types.

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GeminiClient implements Extractor against the Gemini REST API.
type GeminiClient struct {
	client *resty.Client
	model  string
	apiKey string
	logger zerolog.Logger
}

// NewGeminiClient builds an Extractor for the given model. baseURL may be
// empty, in which case the public Gemini endpoint is used.
func NewGeminiClient(baseURL, model, apiKey string, timeout time.Duration, logger zerolog.Logger) *GeminiClient {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &GeminiClient{
		client: client,
		model:  model,
		apiKey: apiKey,
		logger: logger.With().Str("component", "gemini").Logger(),
	}
}

// Extract sends the transcript to the model and parses its JSON reply.
// Transport and API failures surface as upstream errors; a reply that is not
// the expected JSON shape surfaces as a malformed-output error and is never
// retried, since resending the same prompt tends to reproduce the same reply.
func (g *GeminiClient) Extract(ctx context.Context, transcript string) (*Result, error) {
	body := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: fmt.Sprintf(promptTemplate, transcript)}},
		}},
	}

	var out geminiResponse
	start := time.Now()

	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", g.model))
	if err != nil {
		return nil, apperr.Upstream("language model unreachable", err)
	}
	if resp.IsError() {
		msg := out.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, apperr.Upstream(fmt.Sprintf("language model request failed: %s", msg), nil)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, apperr.MalformedOutput("language model returned no candidates", nil)
	}

	text := out.Candidates[0].Content.Parts[0].Text
	result, err := parseModelReply(text)
	if err != nil {
		g.logger.Warn().Err(err).Str("reply", truncate(text, 512)).Msg("unparseable model reply")
		return nil, err
	}

	g.logger.Info().
		Dur("took", time.Since(start)).
		Int("symptoms", len(result.Symptoms)).
		Int("medications", len(result.Medications)).
		Msg("extraction complete")

	return result, nil
}

// rawResult mirrors Result but tolerates the two medication encodings the
// model produces: {"name": ..., "dose": ...} objects and bare one-entry maps
// of name to dose.
type rawResult struct {
	Summary      *string            `json:"summary"`
	Symptoms     *[]string          `json:"symptoms"`
	Medications  *[]json.RawMessage `json:"medications"`
	Followups    *[]string          `json:"followups"`
	Restrictions *string            `json:"restrictions"`
}

func parseModelReply(text string) (*Result, error) {
	cleaned := stripCodeFence(text)

	var raw rawResult
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, apperr.MalformedOutput("model reply is not valid JSON", err)
	}
	if raw.Summary == nil || raw.Symptoms == nil || raw.Medications == nil ||
		raw.Followups == nil || raw.Restrictions == nil {
		return nil, apperr.MalformedOutput("model reply is missing required fields", nil)
	}

	meds := make([]Medication, 0, len(*raw.Medications))
	for _, m := range *raw.Medications {
		med, err := parseMedication(m)
		if err != nil {
			return nil, err
		}
		meds = append(meds, med)
	}

	return &Result{
		Summary:      *raw.Summary,
		Symptoms:     *raw.Symptoms,
		Medications:  meds,
		Followups:    *raw.Followups,
		Restrictions: *raw.Restrictions,
	}, nil
}

func parseMedication(m json.RawMessage) (Medication, error) {
	var typed Medication
	if err := json.Unmarshal(m, &typed); err == nil && typed.Name != "" {
		return typed, nil
	}

	// Fall back to the one-entry map form {"amoxicillin": "500mg"}.
	var asMap map[string]string
	if err := json.Unmarshal(m, &asMap); err != nil || len(asMap) != 1 {
		return Medication{}, apperr.MalformedOutput("unrecognized medication entry", nil)
	}
	for name, dose := range asMap {
		return Medication{Name: name, Dose: dose}, nil
	}
	return Medication{}, apperr.MalformedOutput("unrecognized medication entry", nil)
}

// stripCodeFence removes a surrounding markdown code fence if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
