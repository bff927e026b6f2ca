// package synth turns scraped evidence (or a raw image) into a structured
// record via a generative model with an enforced JSON output contract.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com"
	defaultModel   = "gpt-4o-mini"
)

// Evidence is the accumulated pre-AI knowledge about a submission. It is
// serialized as JSON and sent as the user turn in text mode.
type Evidence struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Transcript  string `json:"transcript,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
}

// Empty reports whether there is nothing worth sending to the model.
func (e Evidence) Empty() bool {
	return e.Title == "" && e.Description == "" && e.Transcript == ""
}

// Result is the parsed model output. Zero-valued fields mean the model
// omitted them; callers keep their pre-AI defaults for those.
type Result struct {
	Title     string         `json:"title"`
	Category  string         `json:"category"`
	Tags      []string       `json:"tags"`
	Summary   string         `json:"summary"`
	SmartData map[string]any `json:"smart_data"`
}

type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		http: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Configured reports whether the client has an API key.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SynthesizeText sends the evidence JSON as the user turn.
func (c *Client) SynthesizeText(ctx context.Context, ev Evidence) (*Result, error) {
	evJSON, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, chatMessage{Role: "user", Content: string(evJSON)})
}

// SynthesizeImage attaches the image inline alongside the fixed image
// instruction. imageBase64 is raw base64 without a data-URI prefix.
func (c *Client) SynthesizeImage(ctx context.Context, imageBase64 string) (*Result, error) {
	content := []map[string]any{
		{"type": "text", "text": imageInstruction},
		{"type": "image_url", "image_url": map[string]string{
			"url": "data:image/jpeg;base64," + imageBase64,
		}},
	}
	return c.complete(ctx, chatMessage{Role: "user", Content: content})
}

func (c *Client) complete(ctx context.Context, user chatMessage) (*Result, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt()},
			user,
		},
	}
	reqBody.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		return nil, fmt.Errorf("synth: model returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("synth: decode response: %w", err)
	}
	if cr.Error != nil {
		return nil, fmt.Errorf("synth: model error: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("synth: no choices in response")
	}

	return ParseResult(cr.Choices[0].Message.Content)
}

// ParseResult parses the model's content as a Result. Models occasionally
// wrap JSON in code fences despite instructions, so those are stripped.
func ParseResult(content string) (*Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var r Result
	if err := json.Unmarshal([]byte(content), &r); err != nil {
		return nil, fmt.Errorf("synth: parse model output: %w", err)
	}

	if r.Category != "" && !ValidCategory(r.Category) {
		r.Category = "Other"
	}
	return &r, nil
}
