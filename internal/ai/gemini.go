package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pauljones0/korting/internal/models"
)

// Client suggests categories for deals the keyword classifier left in other.
// A nil *Client is valid and suggests nothing.
type Client struct {
	generate func(ctx context.Context, prompt string) (string, error)
}

type hintResult struct {
	Category string `json:"category"`
}

func NewClient(ctx context.Context, apiKey, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, nil // Return nil client if no key provided
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	enum := make([]string, len(models.Categories))
	for i, c := range models.Categories {
		enum[i] = string(c)
	}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1), // Low temperature for deterministic output
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        enum,
					Description: "The single best shop category for the product. Use other when none fits.",
				},
			},
			Required: []string{"category"},
		},
	}

	return &Client{
		generate: func(ctx context.Context, prompt string) (string, error) {
			resp, err := client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), config)
			if err != nil {
				return "", err
			}
			return resp.Text(), nil
		},
	}, nil
}

// SuggestCategory returns a canonical category for d. Answers outside the
// category list come back as other.
func (c *Client) SuggestCategory(ctx context.Context, d models.Deal) (models.Category, error) {
	if c == nil || c.generate == nil {
		return models.CategoryOther, nil // Graceful degradation
	}

	prompt := fmt.Sprintf(`
Categorize this Dutch shop offer:
Title: %q
Merchant: %q
Description: %q

Pick exactly one category from the schema. Output JSON adhering to the schema.
`, d.Title, d.Merchant, d.Description)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	// Clean up potential markdown formatting just in case
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var result hintResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return "", fmt.Errorf("failed to parse gemini response: %w", err)
	}
	cat := models.Category(strings.ToLower(strings.TrimSpace(result.Category)))
	if !cat.Valid() {
		return models.CategoryOther, nil
	}
	return cat, nil
}
