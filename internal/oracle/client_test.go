package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func TestCallSendsChatCompletion(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		captured, _ = json.Marshal(mustDecode(t, r))
		w.Write([]byte(completionBody(`{"decision":"WAIT"}`)))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, APIKey: "sk-test", Model: "test-model"}
	out, err := c.Call(context.Background(), chatPayload{System: "sys", User: "usr"})
	require.NoError(t, err)
	assert.Equal(t, `{"decision":"WAIT"}`, out)

	body := string(captured)
	assert.Equal(t, "test-model", gjson.Get(body, "model").String())
	assert.Equal(t, "json_object", gjson.Get(body, "response_format.type").String())
	assert.Equal(t, "sys", gjson.Get(body, "messages.0.content").String())
	assert.Equal(t, "usr", gjson.Get(body, "messages.1.content").String())
}

func TestCallAttachesImagesAsContentParts(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = json.Marshal(mustDecode(t, r))
		w.Write([]byte(completionBody("ok")))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, Model: "m"}
	_, err := c.Call(context.Background(), chatPayload{
		User:   "analyze",
		Images: []ImageAttachment{{DataURI: "data:image/png;base64,AAAA"}},
	})
	require.NoError(t, err)

	body := string(captured)
	assert.Equal(t, "text", gjson.Get(body, "messages.0.content.0.type").String())
	assert.Equal(t, "image_url", gjson.Get(body, "messages.0.content.1.type").String())
	assert.Equal(t, "data:image/png;base64,AAAA", gjson.Get(body, "messages.0.content.1.image_url.url").String())
}

func TestCallRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(completionBody("recovered")))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, Model: "m", MaxRetries: 2}
	out, err := c.Call(context.Background(), chatPayload{User: "u"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCallGivesUpOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	c := &ChatClient{BaseURL: srv.URL, Model: "m", MaxRetries: 3}
	_, err := c.Call(context.Background(), chatPayload{User: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load(), "4xx other than 429 is not retried")
}

func TestEndpointNormalization(t *testing.T) {
	for base, want := range map[string]string{
		"https://api.example.com/v1":                  "https://api.example.com/v1/chat/completions",
		"https://api.example.com/v1/":                 "https://api.example.com/v1/chat/completions",
		"https://api.example.com/v1/chat/completions": "https://api.example.com/v1/chat/completions",
	} {
		c := &ChatClient{BaseURL: base}
		assert.Equal(t, want, c.endpoint())
	}
}

func mustDecode(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
	return m
}
