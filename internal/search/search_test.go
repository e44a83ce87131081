package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sudhan30/chat-sudharsana-dev/internal/config"
)

func TestShouldSearchWeb(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"What's the weather today in Austin?", true},
		{"latest news about the election", true},
		{"What is the price of gold right now?", true},
		{"What was the final score last night?", true},
		{"Any good restaurants nearby?", true},
		{"is the library open on sunday", true},
		{"when does the next train leave", true},
		{"When will the package arrive?", true},
		{"Summarize our earlier discussion", false},
		{"Explain how goroutines work", false},
		{"Write me a haiku about autumn", false},
		// "know" must not trip the "now" keyword.
		{"I know a lot about history", false},
		{"He scored well on the exam", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ShouldSearchWeb(tt.text), "text: %q", tt.text)
	}
}

func TestNewClient_NoAPIKey(t *testing.T) {
	logger := logrus.New()
	assert.Nil(t, NewClient(config.SearchConfig{Endpoint: "https://example.com"}, logger))
}

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("X-Subscription-Token"))
		assert.Equal(t, "croissant recipe", r.URL.Query().Get("q"))

		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []Result{
					{Title: "One", URL: "https://a.example", Description: "first"},
					{Title: "Two", URL: "https://b.example", Description: "second"},
					{Title: "Three", URL: "https://c.example", Description: "third"},
				},
			},
		})
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := NewClient(config.SearchConfig{
		Endpoint:   srv.URL,
		APIKey:     "secret-key",
		MaxResults: 2,
	}, logger)
	require.NotNil(t, client)

	results, err := client.Search(context.Background(), "croissant recipe")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "One", results[0].Title)
	assert.Equal(t, "Two", results[1].Title)
}

func TestSearch_BackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	client := NewClient(config.SearchConfig{Endpoint: srv.URL, APIKey: "k"}, logger)

	_, err := client.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestFormatResults(t *testing.T) {
	out := FormatResults([]Result{
		{Title: "Go docs", URL: "https://go.dev", Description: "The Go programming language"},
		{Title: "Fiber", URL: "https://gofiber.io", Description: "Express inspired web framework"},
	})

	assert.Contains(t, out, "1. Go docs")
	assert.Contains(t, out, "https://go.dev")
	assert.Contains(t, out, "2. Fiber")
	assert.NotContains(t, out, "3.")
}

func TestFormatResults_Empty(t *testing.T) {
	assert.Equal(t, "", FormatResults(nil))
}
