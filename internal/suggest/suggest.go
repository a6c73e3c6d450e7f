// Package suggest proposes a purchase category from a free-text description.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-2.5-flash-lite"

	maxDescriptionLength = 500
	maxCategoryLength    = 40
)

var (
	// ErrUnavailable means no suggestion backend is configured.
	ErrUnavailable = errors.New("category suggestion unavailable")
	// ErrEmptyDescription is returned for blank input.
	ErrEmptyDescription = errors.New("description is required")
)

// Suggester returns a short category name for a purchase description.
// Known categories, when given, are preferred over new names.
type Suggester interface {
	SuggestCategory(ctx context.Context, description string, known []string) (string, error)
}

// Disabled is the Suggester used when no API key is configured.
type Disabled struct{}

func (Disabled) SuggestCategory(context.Context, string, []string) (string, error) {
	return "", ErrUnavailable
}

// GeminiSuggester implements Suggester with Google Gemini.
type GeminiSuggester struct {
	client    *genai.Client
	modelName string
}

func NewGeminiSuggester(ctx context.Context, apiKey, modelName string) (*GeminiSuggester, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiSuggester{client: client, modelName: modelName}, nil
}

func (s *GeminiSuggester) SuggestCategory(ctx context.Context, description string, known []string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", ErrEmptyDescription
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		description = string([]rune(description)[:maxDescriptionLength])
	}

	model := s.client.GenerativeModel(s.modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(description, known)))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	category, err := parseCategory(text)
	if err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	return matchKnown(category, known), nil
}

func (s *GeminiSuggester) Close() error {
	return s.client.Close()
}

func buildPrompt(description string, known []string) string {
	var sb strings.Builder
	sb.WriteString(`Sos un asistente que sugiere la categoría de una compra a partir de su descripción.

Reglas:
- Respondé en español rioplatense.
- Usá un nombre de categoría corto (una o dos palabras), con mayúscula inicial.
- Si alguna categoría existente corresponde, usala exactamente como está escrita.
`)
	if len(known) > 0 {
		sb.WriteString("\nCategorías existentes:\n")
		for _, k := range known {
			fmt.Fprintf(&sb, "- %s\n", k)
		}
	}
	fmt.Fprintf(&sb, "\nDescripción: %q\n", description)
	sb.WriteString(`
Respondé solo con un objeto JSON de la forma {"category": "Nombre"}, sin texto adicional.
`)
	return sb.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from gemini")
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok && strings.TrimSpace(string(text)) != "" {
			return string(text), nil
		}
	}
	return "", errors.New("no text content in response")
}

// parseCategory accepts the JSON object the prompt asks for, optionally
// wrapped in a markdown code fence, or a bare category name.
func parseCategory(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "{") {
		var out struct {
			Category string `json:"category"`
		}
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return "", err
		}
		text = out.Category
	}

	category := normalizeCategory(text)
	if category == "" {
		return "", errors.New("empty category")
	}
	return category, nil
}

// normalizeCategory trims quotes and punctuation, collapses whitespace,
// capitalizes the first letter and caps the length.
func normalizeCategory(s string) string {
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) > maxCategoryLength {
		runes = []rune(strings.TrimSpace(string(runes[:maxCategoryLength])))
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// matchKnown returns the known spelling of category when one matches case-insensitively.
func matchKnown(category string, known []string) string {
	for _, k := range known {
		if strings.EqualFold(strings.TrimSpace(k), category) {
			return strings.TrimSpace(k)
		}
	}
	return category
}
