package gemini

import (
	"context"
	"sync"

	"google.golang.org/genai"
)

// mockGenerator is a ContentGenerator returning canned responses.
type mockGenerator struct {
	mu       sync.Mutex
	response *genai.GenerateContentResponse
	err      error
	block    bool

	calls      int
	lastModel  string
	lastParts  []*genai.Part
	lastConfig *genai.GenerateContentConfig
}

func (m *mockGenerator) GenerateContent(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastModel = model
	if len(contents) > 0 {
		m.lastParts = contents[0].Parts
	}
	m.lastConfig = config
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.response, m.err
}

func (m *mockGenerator) promptText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.lastParts {
		if p.Text != "" {
			return p.Text
		}
	}
	return ""
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: text}}}},
		},
	}
}
