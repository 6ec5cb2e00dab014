package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"google.golang.org/genai"

	"github.com/pattayaone/tidal/app/content"
)

// TextGenerator is the slice of the Gemini SDK the classifier needs.
// Kept as an interface so tests can substitute a canned generator.
type TextGenerator interface {
	GenerateText(ctx context.Context, model string, prompt string) (string, error)
}

// GeminiClient wraps the official genai SDK behind TextGenerator.
type GeminiClient struct {
	client *genai.Client
}

var _ TextGenerator = (*GeminiClient)(nil)

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client}, nil
}

func (c *GeminiClient) GenerateText(ctx context.Context, model string, prompt string) (string, error) {
	result, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text, err := result.Text()
	if err != nil {
		return "", fmt.Errorf("get text from result: %w", err)
	}
	return text, nil
}

// Gemini classifies records with a single structured-output prompt per
// record. It implements content.Classifier; classifier errors are treated
// as advisory by the filter chain, so no retry logic lives here.
type Gemini struct {
	generator TextGenerator
	model     string
	entities  []string
}

func NewGemini(generator TextGenerator, model string, entities []string) *Gemini {
	return &Gemini{
		generator: generator,
		model:     model,
		entities:  entities,
	}
}

type geminiVerdict struct {
	IsSafe     bool   `json:"is_safe"`
	IsRelevant bool   `json:"is_relevant"`
	IsEnglish  bool   `json:"is_english"`
	Sentiment  string `json:"sentiment"`
	Category   string `json:"category"`
	Mention    string `json:"mention"`
}

func (g *Gemini) Classify(ctx context.Context, record *content.Record) (content.Classification, error) {
	prompt := g.buildPrompt(record)

	raw, err := g.generator.GenerateText(ctx, g.model, prompt)
	if err != nil {
		return content.Classification{}, fmt.Errorf("gemini classification: %w", err)
	}

	verdict, err := parseVerdict(raw)
	if err != nil {
		return content.Classification{}, fmt.Errorf("parse gemini response: %w", err)
	}

	return content.Classification{
		Safe:      verdict.IsSafe,
		Relevant:  verdict.IsRelevant,
		English:   verdict.IsEnglish,
		Sentiment: verdict.Sentiment,
		Category:  verdict.Category,
		Mention:   verdict.Mention,
	}, nil
}

func (g *Gemini) buildPrompt(record *content.Record) string {
	var b strings.Builder
	b.WriteString("You moderate content for a Pattaya tourism news platform.\n")
	b.WriteString("Classify the following post and respond with a single JSON object, no markdown:\n")
	b.WriteString(`{"is_safe": bool, "is_relevant": bool, "is_english": bool, "sentiment": "positive|neutral|negative", "category": string, "mention": string}` + "\n")
	b.WriteString("is_safe: false for scams, adult content, graphic violence, hate speech.\n")
	b.WriteString("is_relevant: true if the post concerns Pattaya, Chonburi or Thailand travel.\n")
	if len(g.entities) > 0 {
		b.WriteString("mention: the first of these entities referenced in the post, else empty: ")
		b.WriteString(strings.Join(g.entities, ", "))
		b.WriteString("\n")
	} else {
		b.WriteString("mention: always empty.\n")
	}
	b.WriteString("\nTitle: " + record.Title + "\n")
	if record.Summary != "" {
		b.WriteString("Summary: " + record.Summary + "\n")
	}
	if record.Author != "" {
		b.WriteString("Author: " + record.Author + " (" + record.Platform + ")\n")
	}
	return b.String()
}

// parseVerdict tolerates models wrapping the JSON in a code fence.
func parseVerdict(raw string) (geminiVerdict, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return geminiVerdict{}, fmt.Errorf("no JSON object in response")
	}

	var verdict geminiVerdict
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return geminiVerdict{}, err
	}
	return verdict, nil
}
