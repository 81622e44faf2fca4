package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/aisitebuildapp/aisitebuild/config"
)

const enhanceSystemPrompt = `You are a prompt enhancement specialist. The user wants to make changes to their website. Enhance their request to be more specific and actionable for a web developer.

Enhance this by:
1. Being specific about what elements to change
2. Mentioning design details (colors, spacing, sizes)
3. Clarifying the desired outcome
4. Using clear technical terms

Return ONLY the enhanced request, nothing else. Keep it concise (1-2 sentences).`

const generateSystemPrompt = `You are an expert web developer.

CRITICAL REQUIREMENTS:
- Return ONLY the complete updated HTML code with the requested changes.
- Use Tailwind CSS for ALL styling (NO custom CSS).
- Use Tailwind utility classes for all styling changes.
- Include all JavaScript in <script> tags before closing </body>
- Make sure it's a complete, standalone HTML document with Tailwind CSS
- Return the HTML Code Only, nothing else

Apply the requested changes while maintaining the Tailwind CSS styling approach.`

const createSystemPrompt = `You are an expert web developer.
Return ONLY a complete, single-file HTML document.
Use Tailwind CSS for styling.
Include all JavaScript inside <script> tags.
Do not include markdown formatting (like ` + "```html" + `).`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client talks to an OpenAI-compatible chat-completions endpoint. Two calls
// are made per revision: one to enhance the user's request, one to generate
// the updated document. Neither call streams.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: cfg.LLMTimeout},
		BaseURL:    cfg.LLMBaseURL,
		APIKey:     cfg.LLMAPIKey,
		Model:      cfg.LLMModel,
	}
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("completion API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// Enhance rewrites a natural-language change request into a specific
// engineering instruction.
func (c *Client) Enhance(ctx context.Context, message string) (string, error) {
	content, err := c.complete(ctx, enhanceSystemPrompt, fmt.Sprintf("User's request: %q", message))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// GenerateWebsite produces the full updated HTML document for an instruction
// applied to the current code. The result is stripped of markdown fences and
// trimmed; an empty result is returned as-is for the caller to treat as a
// no-op generation.
func (c *Client) GenerateWebsite(ctx context.Context, instruction, currentCode string) (string, error) {
	var system, user string
	if currentCode == "" {
		system = createSystemPrompt
		user = fmt.Sprintf("Create a website based on this request: %s", instruction)
	} else {
		system = generateSystemPrompt
		user = fmt.Sprintf("Here is the current website code: %q\nThe user wants this change: %q", currentCode, instruction)
	}

	content, err := c.complete(ctx, system, user)
	if err != nil {
		return "", err
	}

	return StripCodeFences(content), nil
}

var fenceOpenRe = regexp.MustCompile("(?i)```[a-z]*\n?")

// StripCodeFences removes markdown code-fence markup (leading ``` with an
// optional language tag and the trailing ```) and trims whitespace.
func StripCodeFences(s string) string {
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
