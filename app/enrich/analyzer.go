package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lysyi3m/keepit/app/content"
)

const maxErrorBodyBytes = 4 << 10

var _ Analyzer = (*OpenAIAnalyzer)(nil)

// OpenAIAnalyzer calls an OpenAI-compatible chat completions endpoint.
// The model must support image input for image items.
type OpenAIAnalyzer struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	taxonomy   *Taxonomy
}

func NewOpenAIAnalyzer(baseURL, apiKey, model string, httpClient *http.Client, taxonomy *Taxonomy) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
		taxonomy:   taxonomy,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error) {
	userMessage, err := buildUserMessage(req)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: a.taxonomy.SystemPrompt()},
			userMessage,
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("analysis service error %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}

	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("empty response from analysis service")
	}

	return parseAnalysis(parsed.Choices[0].Message.Content)
}

func buildUserMessage(req AnalysisRequest) (chatMessage, error) {
	switch req.Kind {
	case content.KindURL:
		if req.Page == nil {
			return chatMessage{}, fmt.Errorf("url analysis requires page data")
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Content type: url\nURL: %s\n", req.Page.URL)
		writeField(&sb, "Title", req.Page.Title)
		writeField(&sb, "Site", req.Page.SiteName)
		writeField(&sb, "Description", req.Page.Description)
		writeField(&sb, "Text", req.Page.Text)
		return chatMessage{Role: "user", Content: sb.String()}, nil

	case content.KindImage:
		return chatMessage{Role: "user", Content: []chatContentPart{
			{Type: "text", Text: "Content type: image\nDescribe what the image shows and classify it."},
			{Type: "image_url", ImageURL: &chatImageURL{URL: req.ImageData}},
		}}, nil

	case content.KindText:
		var sb strings.Builder
		sb.WriteString("Content type: text\n")
		writeField(&sb, "Title", req.Title)
		writeField(&sb, "Description", req.Description)
		return chatMessage{Role: "user", Content: sb.String()}, nil
	}

	return chatMessage{}, fmt.Errorf("unsupported content kind: %s", req.Kind)
}

func writeField(sb *strings.Builder, name, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fmt.Fprintf(sb, "%s: %s\n", name, value)
	}
}

// parseAnalysis decodes the model's JSON answer, tolerating a Markdown code fence around it.
func parseAnalysis(raw string) (*Analysis, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	}

	var answer struct {
		Title    string          `json:"title"`
		Summary  string          `json:"summary"`
		Category string          `json:"category"`
		Tags     json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, fmt.Errorf("failed to decode analysis JSON: %w", err)
	}

	return &Analysis{
		Title:    answer.Title,
		Summary:  answer.Summary,
		Category: answer.Category,
		Tags:     decodeTags(answer.Tags),
	}, nil
}

// decodeTags accepts a JSON array of strings or a single comma-separated
// string. Anything else yields no tags.
func decodeTags(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}

	var joined string
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil
	}

	var tags []string
	for _, tag := range strings.Split(joined, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
