package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
	"github.com/agchaparroh/noticias-pipeline/pkg/scoring"
)

// --- LLM mock ---

// mockLLM routes each Generate call to a per-phase responder selected
// on the request's system prompt, so one mock serves a whole run.
type mockLLM struct {
	mu        sync.Mutex
	calls     int
	responses map[string]func() (*llm.Response, error)
}

func newMockLLM() *mockLLM {
	return &mockLLM{responses: make(map[string]func() (*llm.Response, error))}
}

func (m *mockLLM) on(system string, fn func() (*llm.Response, error)) {
	m.responses[system] = fn
}

func (m *mockLLM) respond(system, text string) {
	m.on(system, func() (*llm.Response, error) {
		return &llm.Response{Text: text, Usage: llm.TokenUsage{InputTokens: 10, OutputTokens: 5}}, nil
	})
}

func (m *mockLLM) fail(system string, err error) {
	m.on(system, func() (*llm.Response, error) { return nil, err })
}

func (m *mockLLM) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.calls++
	fn := m.responses[req.System]
	m.mu.Unlock()

	if fn == nil {
		return &llm.Response{Text: "{}"}, nil
	}
	return fn()
}

func (m *mockLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// --- Scorer mock ---

type mockScorer struct {
	fn func(req scoring.ScoreRequest) (float64, error)
}

func (m *mockScorer) Score(_ context.Context, req scoring.ScoreRequest) (float64, error) {
	if m.fn == nil {
		return 7, nil
	}
	return m.fn(req)
}

// --- Store mock ---

type mockStore struct {
	mu       sync.Mutex
	inserted []*model.UnitPayload
	findFn   func(name string, entityType model.EntityType) (*store.EntityMatch, error)
	insertFn func(payload *model.UnitPayload) (string, error)
}

func (m *mockStore) InsertArticle(_ context.Context, payload *model.UnitPayload) (string, error) {
	return m.insert(payload)
}

func (m *mockStore) InsertFragment(_ context.Context, payload *model.UnitPayload) (string, error) {
	return m.insert(payload)
}

func (m *mockStore) insert(payload *model.UnitPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertFn != nil {
		return m.insertFn(payload)
	}
	m.inserted = append(m.inserted, payload)
	return "ref-" + payload.UnitID, nil
}

func (m *mockStore) FindSimilarEntity(_ context.Context, name string, entityType model.EntityType) (*store.EntityMatch, error) {
	if m.findFn == nil {
		return nil, nil
	}
	return m.findFn(name, entityType)
}

func (m *mockStore) Migrate(context.Context) error { return nil }
func (m *mockStore) Close() error                  { return nil }

func (m *mockStore) insertedPayloads() []*model.UnitPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.UnitPayload, len(m.inserted))
	copy(out, m.inserted)
	return out
}

// --- Canned responses ---

const triageJSON = `{"relevant": true, "language": "es", "category": "politica", "summary": "Resumen breve.", "score": 0.8}`

const extractJSON = `{
  "facts": [
    {"content": "El gobierno anunció un paquete económico.", "confidence": 0.9, "when": {"start": "2026-08-20", "precision": "day"}, "country": "ES"},
    {"content": "La medida afecta a tres provincias.", "confidence": 0.8}
  ],
  "entities": [
    {"name": "María López", "type": "person", "confidence": 0.9},
    {"name": "Banco Central", "type": "organization", "confidence": 0.85}
  ]
}`

const quotesJSON = `{
  "quotes": [
    {"text": "Es una medida necesaria", "speaker_entity_id": 1, "fact_id": 1, "confidence": 0.9}
  ],
  "data": [
    {"fact_id": 1, "indicator": "inversión", "value": 1200, "unit": "millones EUR", "confidence": 0.8}
  ]
}`

const relationsJSON = `{"relations": [{"kind": "fact_fact", "from_id": 1, "to_id": 2, "label": "elabora", "confidence": 0.7}]}`

func scriptedLLM() *mockLLM {
	m := newMockLLM()
	m.respond(triageSystem, triageJSON)
	m.respond(extractSystem, extractJSON)
	m.respond(quotesSystem, quotesJSON)
	m.respond(relationsSystem, relationsJSON)
	return m
}

func hasDegradedPhase(res *model.UnitResult, phase string) bool {
	for _, p := range res.DegradedPhases {
		if strings.Contains(p, phase) {
			return true
		}
	}
	return false
}
