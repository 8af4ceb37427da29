// Package main implements a mock LLM server for offline development and
// e2e testing. It serves OpenAI-compatible /v1/chat/completions responses
// from JSON fixture files, routing by the kind of engine call it sees in
// the prompt (incident generation, hint, validation questions, answer
// assessment). This eliminates the need for a real model: point
// skillops at it and train offline, fast and deterministic.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are JSON named by call kind: "incident.json", "hint.json",
// "validation.json", "assessment.json". Without -fixtures, built-in
// defaults are served.
//
// Sequential fixtures: if numbered files exist (e.g. "incident.1.json",
// "incident.2.json"), the Nth call of that kind returns the Nth fixture,
// then the base "incident.json" repeats. This enables testing the retry
// path: make the first fixture malformed and the second valid.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// --- OpenAI-compatible types ---

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Call-kind routing ---

// Engine call kinds, doubling as fixture base names.
const (
	kindIncident   = "incident"
	kindHint       = "hint"
	kindValidation = "validation"
	kindAssessment = "assessment"
)

// classifyPrompt infers which engine operation produced a request by
// looking for the phrases the engine's prompt builders emit.
func classifyPrompt(req chatRequest) string {
	var user string
	for _, m := range req.Messages {
		if m.Role == "user" {
			user = m.Content
		}
	}
	switch {
	case strings.Contains(user, "Grade the learner's answers"):
		return kindAssessment
	case strings.Contains(user, "validation questions"):
		return kindValidation
	case strings.Contains(user, "hint"):
		return kindHint
	default:
		return kindIncident
	}
}

// defaultFixtures serves a plausible offline training session with no
// fixture directory at all.
func defaultFixtures() map[string][]string {
	return map[string][]string{
		kindIncident: {`{"severity": "P2", "title": "Redis memory ceiling hit", "description": "The cache node reached its maxmemory limit after a feature launch doubled session payloads.", "symptoms": "Intermittent OOM command errors; p99 latency tripled; eviction rate graph flatlined at zero.", "target_system": "Redis", "difficulty": 3}`},
		kindHint: {`{"level": 1, "content": "What does Redis do when it reaches maxmemory and no eviction policy is set?"}`,
			`{"level": 2, "content": "Compare INFO memory against the configured maxmemory, then look at maxmemory-policy."}`,
			`{"level": 3, "content": "Run CONFIG SET maxmemory-policy allkeys-lru, then size maxmemory to leave headroom for the new payloads."}`},
		kindValidation: {`{"questions": ["Why did commands fail instead of old keys being evicted?", "How would you catch this before users do next time?"]}`},
		kindAssessment: {`{"scores": [1.0, 0.5]}`},
	}
}

// --- Server ---

// capturedRequest stores the key fields of an incoming request for test
// verification.
type capturedRequest struct {
	Kind      string        `json:"kind"`
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	CallIndex int           `json:"call_index"` // 1-indexed per-kind call number
	Timestamp int64         `json:"timestamp"`
}

type server struct {
	fixtures map[string][]string // call kind → ordered fixture contents
	calls    atomic.Int64        // total calls served

	// Per-kind call counters for sequential fixture selection.
	kindCalls   map[string]*atomic.Int64
	kindCallsMu sync.Mutex // protects lazy init of kindCalls entries

	// Per-kind request capture for prompt verification in e2e tests.
	kindRequests   map[string][]capturedRequest
	kindRequestsMu sync.Mutex
}

func newServer(fixtures map[string][]string) *server {
	return &server{
		fixtures:     fixtures,
		kindCalls:    make(map[string]*atomic.Int64),
		kindRequests: make(map[string][]capturedRequest),
	}
}

// captureRequest stores a request for later retrieval via /requests.
func (s *server) captureRequest(kind string, req chatRequest, callIndex int) {
	s.kindRequestsMu.Lock()
	defer s.kindRequestsMu.Unlock()
	s.kindRequests[kind] = append(s.kindRequests[kind], capturedRequest{
		Kind:      kind,
		Model:     req.Model,
		Messages:  req.Messages,
		CallIndex: callIndex,
		Timestamp: time.Now().UnixMilli(),
	})
}

// getKindCounter returns the call counter for a kind, creating it lazily.
func (s *server) getKindCounter(kind string) *atomic.Int64 {
	s.kindCallsMu.Lock()
	defer s.kindCallsMu.Unlock()
	if c, ok := s.kindCalls[kind]; ok {
		return c
	}
	c := &atomic.Int64{}
	s.kindCalls[kind] = c
	return c
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files (empty = built-in defaults)")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	// Allow env var override
	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}

	fixtures := defaultFixtures()
	if *fixtureDir != "" {
		loaded, err := loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
		}
		fixtures = loaded
	}
	log.Printf("Serving %d call kind(s)", len(fixtures))
	for kind, seq := range fixtures {
		log.Printf("  kind: %s (%d fixture(s))", kind, len(seq))
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/requests", s.handleRequests)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock LLM server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	kind := classifyPrompt(req)
	callNum := s.calls.Add(1)
	log.Printf("[call %d] kind=%s model=%s messages=%d", callNum, kind, req.Model, len(req.Messages))

	seq, ok := s.fixtures[kind]
	if !ok {
		log.Printf("[call %d] WARNING: no fixture for kind=%q, returning error", callNum, kind)
		http.Error(w, fmt.Sprintf("no fixture for call kind %q", kind), http.StatusNotFound)
		return
	}

	// Select fixture from sequence based on per-kind call count
	counter := s.getKindCounter(kind)
	callIndex := int(counter.Add(1) - 1) // 0-indexed

	// Capture request for prompt verification (e2e /requests endpoint)
	s.captureRequest(kind, req, callIndex+1)
	var content string
	if callIndex < len(seq) {
		content = seq[callIndex]
	} else {
		content = seq[len(seq)-1] // repeat last fixture
	}

	log.Printf("[call %d] kind=%s call_index=%d/%d", callNum, kind, callIndex+1, len(seq))

	// Wrap in OpenAI response envelope
	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMessage{
					Role:    "assistant",
					Content: content,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleStats returns call counts for test assertions: total_calls plus a
// per-kind calls_by_kind breakdown.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.kindCallsMu.Lock()
	callsByKind := make(map[string]int64, len(s.kindCalls))
	for kind, counter := range s.kindCalls {
		callsByKind[kind] = counter.Load()
	}
	s.kindCallsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":   s.calls.Load(),
		"calls_by_kind": callsByKind,
	})
}

// handleRequests returns captured request bodies for test assertions.
// Query params:
//   - kind: filter by call kind (optional, returns all kinds if omitted)
//   - call: filter by call index, 1-indexed (optional)
//
// Returns {"requests_by_kind": {"incident": [...], ...}}
func (s *server) handleRequests(w http.ResponseWriter, r *http.Request) {
	kindFilter := r.URL.Query().Get("kind")
	callFilter := r.URL.Query().Get("call")

	s.kindRequestsMu.Lock()
	result := make(map[string][]capturedRequest)
	for kind, reqs := range s.kindRequests {
		if kindFilter != "" && kind != kindFilter {
			continue
		}
		if callFilter != "" {
			callIdx, err := strconv.Atoi(callFilter)
			if err == nil {
				for _, req := range reqs {
					if req.CallIndex == callIdx {
						result[kind] = append(result[kind], req)
					}
				}
				continue
			}
		}
		result[kind] = reqs
	}
	s.kindRequestsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"requests_by_kind": result,
	})
}

// numberedFileRe matches files like "incident.1.json", "hint.2.json".
var numberedFileRe = regexp.MustCompile(`^(.+)\.(\d+)\.json$`)

// loadFixtures reads JSON files from dir and returns a map of call
// kind → content sequence.
//
// For each kind, fixtures are ordered:
//  1. Numbered files (kind.1.json, kind.2.json, ...) in numeric order
//  2. Base file (kind.json) appended as the final fallback
func loadFixtures(dir string) (map[string][]string, error) {
	baseFiles := make(map[string]string)             // kind → content
	numberedFiles := make(map[string]map[int]string) // kind → {index → content}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if !json.Valid(data) {
			return fmt.Errorf("invalid JSON in %s", path)
		}

		content := string(data)

		// Check for numbered pattern: kind.N.json
		if matches := numberedFileRe.FindStringSubmatch(info.Name()); matches != nil {
			kind := matches[1]
			index, _ := strconv.Atoi(matches[2])
			if numberedFiles[kind] == nil {
				numberedFiles[kind] = make(map[int]string)
			}
			numberedFiles[kind][index] = content
			return nil
		}

		// Base file: kind.json
		kind := strings.TrimSuffix(info.Name(), ".json")
		baseFiles[kind] = content
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Build ordered sequences
	fixtures := make(map[string][]string)

	allKinds := make(map[string]bool)
	for k := range baseFiles {
		allKinds[k] = true
	}
	for k := range numberedFiles {
		allKinds[k] = true
	}

	for kind := range allKinds {
		var seq []string

		if numbered, ok := numberedFiles[kind]; ok {
			indices := make([]int, 0, len(numbered))
			for idx := range numbered {
				indices = append(indices, idx)
			}
			sort.Ints(indices)

			for _, idx := range indices {
				seq = append(seq, numbered[idx])
			}
		}

		if base, ok := baseFiles[kind]; ok {
			seq = append(seq, base)
		}

		if len(seq) > 0 {
			fixtures[kind] = seq
		}
	}

	if len(fixtures) == 0 {
		return nil, fmt.Errorf("no fixture files found in %s", dir)
	}

	return fixtures, nil
}
