package scrape

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Summarizer produces a plain-language summary of a captured revision,
// steered by the jurisdiction's guidance on what matters.
type Summarizer struct {
	client anthropic.Client
	model  string
}

func NewSummarizer(apiKey, model string) *Summarizer {
	return &Summarizer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

const summarySystemPrompt = `You summarize regulatory documents for compliance teams. Be concrete: name the obligations, deadlines, and affected parties. If guidance on what to watch for is provided, address it directly. Keep the summary under 300 words.`

// maxSummaryInput keeps the prompt within a predictable token budget; long
// documents are truncated, the head of a regulation carrying the operative
// changes most of the time.
const maxSummaryInput = 60000

func (s *Summarizer) Summarize(ctx context.Context, content, guidance string) (string, error) {
	if len(content) > maxSummaryInput {
		content = content[:maxSummaryInput]
	}

	prompt := "Summarize the following regulatory document.\n"
	if guidance != "" {
		prompt += "Watch for: " + guidance + "\n"
	}
	prompt += "\n---\n" + content

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: summarySystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarize revision: %w", err)
	}

	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	if out == "" {
		return "", fmt.Errorf("summarize revision: empty response")
	}
	return out, nil
}
