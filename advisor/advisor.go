// Package advisor asks an external model for target allocations matching
// a free-text description. The model is a collaborator, not part of the
// rebalancing core: its output feeds the same validated pipeline as any
// hand-written target set.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// Suggestion is one proposed target allocation.
type Suggestion struct {
	Symbol        string  `json:"symbol"`
	TargetPercent float64 `json:"target_percent"`
	Reason        string  `json:"reason"`
}

// Suggester proposes target allocations for a free-text query.
type Suggester interface {
	SuggestTargets(ctx context.Context, query string) ([]Suggestion, error)
}

const systemPrompt = `You are a financial assistant that helps users find stocks based on their descriptions and queries.
Given a query, propose target percentage allocations for a stock portfolio.
The percentages must sum to at most 100. Give a brief reason per pick.`

// Gemini suggests allocations through the Gemini API, forcing a JSON
// response matching the Suggestion shape.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini initializes the client from the GEMINI_API_KEY environment.
func NewGemini(ctx context.Context) (*Gemini, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Gemini{client: client, model: "gemini-2.5-flash"}, nil
}

func (g *Gemini) SuggestTargets(ctx context.Context, query string) ([]Suggestion, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"symbol": {
						Type:        genai.TypeString,
						Description: "The ticker symbol of the asset.",
					},
					"target_percent": {
						Type:        genai.TypeNumber,
						Description: "Desired percentage of the investable value, 0-100.",
					},
					"reason": {
						Type:        genai.TypeString,
						Description: "A brief reason for the pick.",
					},
				},
				Required: []string{"symbol", "target_percent"},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(query), config)
	if err != nil {
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(resp.Text()), &suggestions); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	return suggestions, nil
}

// Static returns a canned allocation regardless of the query. It backs
// offline runs and tests.
type Static struct {
	Suggestions []Suggestion
}

func NewStatic() *Static {
	return &Static{Suggestions: []Suggestion{
		{Symbol: "AAPL", TargetPercent: 30, Reason: "large-cap technology anchor"},
		{Symbol: "MSFT", TargetPercent: 30, Reason: "diversified software and cloud"},
		{Symbol: "GOOGL", TargetPercent: 20, Reason: "advertising and AI exposure"},
		{Symbol: "TSLA", TargetPercent: 10, Reason: "growth allocation"},
	}}
}

func (s *Static) SuggestTargets(_ context.Context, _ string) ([]Suggestion, error) {
	return s.Suggestions, nil
}
