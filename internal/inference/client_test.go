package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeliversChunksInOrder(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel, _ = req["model"].(string)
		assert.Equal(t, true, req["stream"])

		for _, text := range []string{"Hello", ", ", "world"} {
			json.NewEncoder(w).Encode(map[string]interface{}{"response": text, "done": false})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"response": "", "done": true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	var chunks []string
	err := client.Generate(context.Background(), "prompt", GenerateOptions{Model: "qwen3:8b"}, func(text string) {
		chunks = append(chunks, text)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hello", ", ", "world"}, chunks)
	assert.Equal(t, "qwen3:8b", gotModel)
}

func TestGenerateSkipsMalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response": "before", "done": false}`)
		fmt.Fprintln(w, `{not valid json`)
		fmt.Fprintln(w, ``)
		fmt.Fprintln(w, `{"response": "after", "done": true}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	var chunks []string
	err := client.Generate(context.Background(), "prompt", GenerateOptions{}, func(text string) {
		chunks = append(chunks, text)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"before", "after"}, chunks)
}

func TestGenerateStopsAfterDone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"response": "first", "done": true}`)
		fmt.Fprintln(w, `{"response": "ignored", "done": false}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	var chunks []string
	err := client.Generate(context.Background(), "prompt", GenerateOptions{}, func(text string) {
		chunks = append(chunks, text)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, chunks)
}

func TestGenerateNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	err := client.Generate(context.Background(), "prompt", GenerateOptions{}, func(string) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error")
	assert.Contains(t, err.Error(), "model not found")
}

func TestGenerateCancellationBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"response": "partial", "done": false}`)
		flusher.Flush()
		// 等调用方取消后再继续发，验证流被及时放弃
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	var chunks []string
	err := client.Generate(ctx, "prompt", GenerateOptions{}, func(text string) {
		chunks = append(chunks, text)
		cancel()
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"partial"}, chunks)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, false, req["stream"])

		msgs, ok := req["messages"].([]interface{})
		require.True(t, ok)
		require.Len(t, msgs, 2)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "classified"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	content, err := client.Chat(context.Background(), []ChatMessage{
		{Role: "system", Content: "you are a classifier"},
		{Role: "user", Content: "check this", Images: []string{"base64data"}},
	}, "qwen2.5vl:7b", 0.1)

	require.NoError(t, err)
	assert.Equal(t, "classified", content)
}

func TestChatNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 5*time.Second)

	_, err := client.Chat(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, "m", 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error")
}
