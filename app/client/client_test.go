package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAPI(t *testing.T) (*httptest.Server, *[]map[string]any) {
	t.Helper()

	var bodies []map[string]any
	mux := http.NewServeMux()

	mux.HandleFunc("GET /saved-items", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("userId") != "alice" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid input: userId is required"}`))
			return
		}
		w.Write([]byte(`{"success":true,"count":1,"data":[{"id":"1","userId":"alice","title":"A","contentType":"text","tags":[]}]}`))
	})

	mux.HandleFunc("PATCH /toggle-completion", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)

		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Missing bearer token"}`))
			return
		}
		if body["itemId"] != "1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Item not found or access denied"}`))
			return
		}
		w.Write([]byte(`{"success":true,"message":"Completion status updated","data":{"id":"1","userId":"alice","completed":true}}`))
	})

	mux.HandleFunc("POST /process-content", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		bodies = append(bodies, body)
		w.Write([]byte(`{"success":true,"data":{"id":"2","userId":"alice","title":"Example A","contentType":"url","previewMetadata":{"url":"https://example.com/a","domain":"example.com","title":"Example A","description":"s"}}}`))
	})

	mux.HandleFunc("GET /saved-items/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "go lang" || r.URL.Query().Get("limit") != "5" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"success":true,"count":0,"data":[]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &bodies
}

func TestClient_ListItems(t *testing.T) {
	server, _ := newTestAPI(t)
	client := New(server.URL+"/", server.Client())

	items, err := client.ListItems(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 1 || items[0].Title != "A" {
		t.Errorf("Unexpected items: %+v", items)
	}

	_, err = client.ListItems(context.Background(), "")
	apiErr, ok := err.(*APIError)
	if !ok || apiErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400 APIError, got: %v", err)
	}
	if apiErr.Message != "invalid input: userId is required" {
		t.Errorf("Expected server message, got '%s'", apiErr.Message)
	}
}

func TestClient_ToggleCompletion(t *testing.T) {
	server, bodies := newTestAPI(t)
	client := New(server.URL, server.Client()).WithToken("token")

	item, err := client.ToggleCompletion(context.Background(), "alice", "1", true)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !item.Completed {
		t.Error("Expected completed item")
	}

	sent := (*bodies)[0]
	if sent["userId"] != "alice" || sent["completed"] != true {
		t.Errorf("Unexpected request body: %v", sent)
	}

	_, err = client.ToggleCompletion(context.Background(), "alice", "other", true)
	if !IsNotFound(err) {
		t.Errorf("Expected not found error, got: %v", err)
	}

	_, err = New(server.URL, server.Client()).ToggleCompletion(context.Background(), "alice", "1", true)
	if err == nil || IsNotFound(err) {
		t.Errorf("Expected unauthorized error, got: %v", err)
	}
}

func TestClient_ProcessContent(t *testing.T) {
	server, bodies := newTestAPI(t)
	client := New(server.URL, server.Client())

	item, err := client.ProcessContent(context.Background(), "alice", "https://example.com/a", "url")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if item.PreviewMetadata == nil || item.PreviewMetadata.Domain != "example.com" {
		t.Errorf("Expected preview metadata, got %+v", item.PreviewMetadata)
	}

	sent := (*bodies)[0]
	if sent["content"] != "https://example.com/a" || sent["contentType"] != "url" {
		t.Errorf("Unexpected request body: %v", sent)
	}
}

func TestClient_Search(t *testing.T) {
	server, _ := newTestAPI(t)
	client := New(server.URL, server.Client())

	items, err := client.Search(context.Background(), "alice", "go lang", 5)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected no results, got %d", len(items))
	}
}
