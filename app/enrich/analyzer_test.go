package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/lysyi3m/keepit/app/content"
)

type capturedRequest struct {
	Authorization string
	Body          map[string]any
}

func newTestAnalysisServer(t *testing.T, status int, answer string, captured *capturedRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}

		if captured != nil {
			captured.Authorization = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&captured.Body)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status >= 300 {
			w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": answer}},
			},
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIAnalyzer_Analyze_URL(t *testing.T) {
	var captured capturedRequest
	server := newTestAnalysisServer(t, http.StatusOK,
		`{"title":"Example A","summary":"s","category":"Research","tags":["x"]}`, &captured)

	analyzer := NewOpenAIAnalyzer(server.URL+"/", "secret", "test-model", server.Client(), DefaultTaxonomy())

	analysis, err := analyzer.Analyze(context.Background(), AnalysisRequest{
		Kind: content.KindURL,
		Page: &PageData{URL: "https://example.com/a", Title: "A"},
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if analysis.Title != "Example A" || analysis.Category != "Research" {
		t.Errorf("Unexpected analysis: %+v", analysis)
	}

	if captured.Authorization != "Bearer secret" {
		t.Errorf("Expected bearer authorization, got '%s'", captured.Authorization)
	}

	if captured.Body["model"] != "test-model" {
		t.Errorf("Expected model 'test-model', got %v", captured.Body["model"])
	}

	format, _ := captured.Body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("Expected json_object response format, got %v", captured.Body["response_format"])
	}

	messages, _ := captured.Body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}

	user, _ := messages[1].(map[string]any)
	text, _ := user["content"].(string)
	if !strings.Contains(text, "https://example.com/a") || !strings.Contains(text, "Title: A") {
		t.Errorf("Expected page data in user message, got '%s'", text)
	}
}

func TestOpenAIAnalyzer_Analyze_Image(t *testing.T) {
	var captured capturedRequest
	server := newTestAnalysisServer(t, http.StatusOK,
		"```json\n{\"title\":\"Cat\",\"summary\":\"A cat\",\"category\":\"Personal\",\"tags\":[\"cat\"]}\n```", &captured)

	analyzer := NewOpenAIAnalyzer(server.URL, "", "vision-model", server.Client(), DefaultTaxonomy())

	analysis, err := analyzer.Analyze(context.Background(), AnalysisRequest{
		Kind:      content.KindImage,
		ImageData: "data:image/png;base64,iVBORw0KGgo=",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if analysis.Title != "Cat" {
		t.Errorf("Expected title 'Cat', got '%s'", analysis.Title)
	}

	if captured.Authorization != "" {
		t.Errorf("Expected no authorization header without key, got '%s'", captured.Authorization)
	}

	messages, _ := captured.Body["messages"].([]any)
	user, _ := messages[1].(map[string]any)
	parts, ok := user["content"].([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("Expected 2 content parts, got %v", user["content"])
	}

	imagePart, _ := parts[1].(map[string]any)
	imageURL, _ := imagePart["image_url"].(map[string]any)
	if imageURL["url"] != "data:image/png;base64,iVBORw0KGgo=" {
		t.Errorf("Expected data URI as image_url, got %v", imagePart)
	}
}

func TestOpenAIAnalyzer_Analyze_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		answer string
	}{
		{name: "Service error", status: http.StatusServiceUnavailable},
		{name: "Empty answer", status: http.StatusOK, answer: ""},
		{name: "Answer is not JSON", status: http.StatusOK, answer: "I cannot help with that"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestAnalysisServer(t, tt.status, tt.answer, nil)
			analyzer := NewOpenAIAnalyzer(server.URL, "key", "model", server.Client(), DefaultTaxonomy())

			_, err := analyzer.Analyze(context.Background(), AnalysisRequest{
				Kind:  content.KindText,
				Title: "note", Description: "note",
			})
			if err == nil {
				t.Errorf("Expected error, got nil")
			}
		})
	}
}

func TestOpenAIAnalyzer_Analyze_URLWithoutPage(t *testing.T) {
	analyzer := NewOpenAIAnalyzer("http://127.0.0.1:0", "", "model", http.DefaultClient, DefaultTaxonomy())

	if _, err := analyzer.Analyze(context.Background(), AnalysisRequest{Kind: content.KindURL}); err == nil {
		t.Errorf("Expected error for url analysis without page data")
	}
}

func TestParseAnalysis_Tags(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{name: "Array", raw: `{"title":"t","tags":["go","web"]}`, expected: []string{"go", "web"}},
		{name: "Comma-separated string", raw: `{"title":"t","tags":"go, web"}`, expected: []string{"go", "web"}},
		{name: "Fenced string", raw: "```json\n{\"title\":\"t\",\"tags\":\"go,,web \"}\n```", expected: []string{"go", "web"}},
		{name: "Missing", raw: `{"title":"t"}`, expected: nil},
		{name: "Wrong type", raw: `{"title":"t","tags":42}`, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis, err := parseAnalysis(tt.raw)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if analysis.Title != "t" {
				t.Errorf("Expected title 't', got %q", analysis.Title)
			}
			if !reflect.DeepEqual(analysis.Tags, tt.expected) {
				t.Errorf("Expected tags %v, got %v", tt.expected, analysis.Tags)
			}
		})
	}
}

func TestOpenAIAnalyzer_Analyze_StringTags(t *testing.T) {
	server := newTestAnalysisServer(t, http.StatusOK, `{"title":"Note","summary":"s","category":"Other","tags":"go, web"}`, nil)
	analyzer := NewOpenAIAnalyzer(server.URL, "key", "model", server.Client(), DefaultTaxonomy())

	analysis, err := analyzer.Analyze(context.Background(), AnalysisRequest{
		Kind:  content.KindText,
		Title: "note", Description: "note",
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !reflect.DeepEqual(analysis.Tags, []string{"go", "web"}) {
		t.Errorf("Expected tags [go web], got %v", analysis.Tags)
	}
}
