package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Discovery suggests candidate regulatory source URLs for a jurisdiction.
// Suggestions are advisory; a human confirms each before it becomes a
// monitored source.
type Discovery struct {
	client *openai.Client
	model  string
}

func NewDiscovery(apiKey, model string) *Discovery {
	return &Discovery{client: openai.NewClient(apiKey), model: model}
}

type Candidate struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

const discoverySystemPrompt = `You identify official government and regulator websites that publish laws, regulations, and guidance. Respond with a JSON array of objects with "url", "title", and "reason" fields. Only include official primary sources. Respond with JSON only, no prose.`

func (d *Discovery) Suggest(ctx context.Context, jurisdictionName, description, guidance string) ([]Candidate, error) {
	prompt := fmt.Sprintf("Jurisdiction: %s", jurisdictionName)
	if description != "" {
		prompt += "\nDescription: " + description
	}
	if guidance != "" {
		prompt += "\nWhat to monitor: " + guidance
	}

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: d.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: discoverySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("discovery completion: empty response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var candidates []Candidate
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &candidates); err != nil {
		return nil, fmt.Errorf("parse discovery response: %w", err)
	}

	valid := candidates[:0]
	for _, c := range candidates {
		if strings.HasPrefix(c.URL, "http://") || strings.HasPrefix(c.URL, "https://") {
			valid = append(valid, c)
		}
	}
	return valid, nil
}
