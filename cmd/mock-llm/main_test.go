package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
}

// doCompletion sends a chat completion with the given user prompt and
// returns the assistant content.
func doCompletion(t *testing.T, s *server, userPrompt string) string {
	t.Helper()

	body := chatRequest{
		Model: "mock",
		Messages: []chatMessage{
			{Role: "system", Content: "You are an SRE training scenario writer."},
			{Role: "user", Content: userPrompt},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(string(raw)))
	w := httptest.NewRecorder()
	s.handleChatCompletions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("completion status %d: %s", w.Code, w.Body.String())
	}

	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(resp.Choices))
	}
	return resp.Choices[0].Message.Content
}

func TestClassifyPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   string
	}{
		{"incident", "Generate one realistic operational incident for training.", kindIncident},
		{"hint", "The learner is stuck on this training incident:\n\nGive a level 2 hint: a concrete direction.", kindHint},
		{"validation", "Write 2 to 3 short validation questions testing understanding.", kindValidation},
		{"assessment", "Grade the learner's answers for this training incident:", kindAssessment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := chatRequest{Messages: []chatMessage{{Role: "user", Content: tt.prompt}}}
			if got := classifyPrompt(req); got != tt.want {
				t.Errorf("classifyPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadFixtures_BaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "incident.json", `{"severity":"P1"}`)
	writeFixture(t, dir, "hint.json", `{"level":1,"content":"think"}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	if len(fixtures) != 2 {
		t.Fatalf("expected 2 kinds, got %d", len(fixtures))
	}

	// Each kind should have exactly 1 fixture (the base)
	for kind, seq := range fixtures {
		if len(seq) != 1 {
			t.Errorf("kind %q: expected 1 fixture, got %d", kind, len(seq))
		}
	}
}

func TestLoadFixtures_Sequential(t *testing.T) {
	dir := t.TempDir()

	// Numbered fixtures for the retry path (malformed then valid)
	writeFixture(t, dir, "incident.1.json", `{"severity":"BOGUS"}`)
	writeFixture(t, dir, "incident.2.json", `{"severity":"P2","title":"ok"}`)
	// Base fallback
	writeFixture(t, dir, "incident.json", `{"severity":"P3","title":"fallback"}`)

	// Non-sequential kind
	writeFixture(t, dir, "hint.json", `{"level":1,"content":"think"}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	// Incident should have 3 entries: .1, .2, base
	incidentSeq := fixtures["incident"]
	if len(incidentSeq) != 3 {
		t.Fatalf("incident: expected 3 fixtures, got %d", len(incidentSeq))
	}

	// Verify order: numbered first (sorted), then base
	if !strings.Contains(incidentSeq[0], "BOGUS") {
		t.Errorf("fixture[0] should be the malformed one, got: %s", incidentSeq[0])
	}
	if !strings.Contains(incidentSeq[1], `"P2"`) {
		t.Errorf("fixture[1] should be the valid one, got: %s", incidentSeq[1])
	}
	if !strings.Contains(incidentSeq[2], "fallback") {
		t.Errorf("fixture[2] should be the fallback, got: %s", incidentSeq[2])
	}

	// Hint should have 1 entry
	hintSeq := fixtures["hint"]
	if len(hintSeq) != 1 {
		t.Fatalf("hint: expected 1 fixture, got %d", len(hintSeq))
	}
}

func TestLoadFixtures_NumberedOnly(t *testing.T) {
	dir := t.TempDir()

	// Only numbered, no base file
	writeFixture(t, dir, "validation.1.json", `{"questions":["a?","b?"]}`)
	writeFixture(t, dir, "validation.2.json", `{"questions":["c?","d?"]}`)

	fixtures, err := loadFixtures(dir)
	if err != nil {
		t.Fatalf("loadFixtures: %v", err)
	}

	seq := fixtures["validation"]
	if len(seq) != 2 {
		t.Fatalf("expected 2 fixtures, got %d", len(seq))
	}
}

func TestLoadFixtures_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	_, err := loadFixtures(dir)
	if err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestSequentialFixtureSelection(t *testing.T) {
	fixtures := map[string][]string{
		kindIncident: {
			`{"severity":"BOGUS"}`,
			`{"severity":"P2","title":"ok"}`,
		},
		kindHint: {
			`{"level":1,"content":"think"}`,
		},
	}

	s := newServer(fixtures)

	incidentPrompt := "Generate one realistic operational incident for training."

	// First call → malformed fixture
	resp1 := doCompletion(t, s, incidentPrompt)
	if !strings.Contains(resp1, "BOGUS") {
		t.Errorf("call 1: expected malformed fixture, got: %s", resp1)
	}

	// Second call → valid fixture
	resp2 := doCompletion(t, s, incidentPrompt)
	if !strings.Contains(resp2, `"P2"`) {
		t.Errorf("call 2: expected valid fixture, got: %s", resp2)
	}

	// Third call (beyond sequence) → repeats last
	resp3 := doCompletion(t, s, incidentPrompt)
	if !strings.Contains(resp3, `"P2"`) {
		t.Errorf("call 3: expected last fixture repeated, got: %s", resp3)
	}

	// Hint calls are counted independently
	hintResp := doCompletion(t, s, "Give a level 1 hint: a Socratic question.")
	if !strings.Contains(hintResp, "think") {
		t.Errorf("hint: expected hint fixture, got: %s", hintResp)
	}
}

func TestDefaultFixturesServeAllKinds(t *testing.T) {
	s := newServer(defaultFixtures())

	prompts := map[string]string{
		kindIncident:   "Generate one realistic operational incident for training.",
		kindHint:       "Give a level 1 hint: a Socratic question.",
		kindValidation: "Write 2 to 3 short validation questions.",
		kindAssessment: "Grade the learner's answers for this training incident:",
	}
	for kind, prompt := range prompts {
		if content := doCompletion(t, s, prompt); content == "" {
			t.Errorf("kind %s: empty content", kind)
		}
	}
}

func TestUnknownKindReturns404(t *testing.T) {
	s := newServer(map[string][]string{kindHint: {`{"level":1,"content":"x"}`}})

	body, _ := json.Marshal(chatRequest{
		Model:    "mock",
		Messages: []chatMessage{{Role: "user", Content: "Generate one realistic operational incident."}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	s.handleChatCompletions(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing kind, got %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	s := newServer(defaultFixtures())

	doCompletion(t, s, "Generate one realistic operational incident.")
	doCompletion(t, s, "Generate one realistic operational incident.")
	doCompletion(t, s, "Give a level 1 hint: a Socratic question.")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	w := httptest.NewRecorder()
	s.handleStats(w, req)

	var stats struct {
		TotalCalls  int64            `json:"total_calls"`
		CallsByKind map[string]int64 `json:"calls_by_kind"`
	}
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}

	if stats.TotalCalls != 3 {
		t.Errorf("total_calls: expected 3, got %d", stats.TotalCalls)
	}
	if stats.CallsByKind[kindIncident] != 2 {
		t.Errorf("incident calls: expected 2, got %d", stats.CallsByKind[kindIncident])
	}
	if stats.CallsByKind[kindHint] != 1 {
		t.Errorf("hint calls: expected 1, got %d", stats.CallsByKind[kindHint])
	}
}

func TestRequestsEndpointCapturesPrompts(t *testing.T) {
	s := newServer(defaultFixtures())

	doCompletion(t, s, "Generate one realistic operational incident. The learner is weakest on: Redis.")

	req := httptest.NewRequest(http.MethodGet, "/requests?kind=incident", nil)
	w := httptest.NewRecorder()
	s.handleRequests(w, req)

	var out struct {
		RequestsByKind map[string][]capturedRequest `json:"requests_by_kind"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode requests: %v", err)
	}

	captured := out.RequestsByKind[kindIncident]
	if len(captured) != 1 {
		t.Fatalf("expected 1 captured request, got %d", len(captured))
	}
	if captured[0].CallIndex != 1 {
		t.Errorf("call index: expected 1, got %d", captured[0].CallIndex)
	}
	found := false
	for _, m := range captured[0].Messages {
		if strings.Contains(m.Content, "Redis") {
			found = true
		}
	}
	if !found {
		t.Error("captured request should include the prompt content")
	}
}
