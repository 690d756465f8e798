package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPost_Success(t *testing.T) {
	var gotContentType, gotRequestID string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	result, err := client.Post(context.Background(), srv.URL, map[string]string{"content": "ping"})
	require.NoError(t, err)

	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "pong", result.Body)
	assert.True(t, result.OK())

	assert.Equal(t, "application/json", gotContentType)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, gotRequestID, result.RequestID)
	assert.Equal(t, "ping", gotBody["content"])
}

func TestPost_SecretHeader(t *testing.T) {
	var gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get(SecretHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	_, err := client.Post(context.Background(), srv.URL, struct{}{}, WithSecret("hunter2"))
	require.NoError(t, err)

	assert.Equal(t, "hunter2", gotSecret)
}

func TestPost_NonSuccessStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	result, err := client.Post(context.Background(), srv.URL, struct{}{})
	require.NoError(t, err)

	assert.Equal(t, 500, result.StatusCode)
	assert.Equal(t, "boom", result.Body)
	assert.False(t, result.OK())
}

func TestPost_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // closed before the call: connection refused

	client := NewClient(time.Second)
	result, err := client.Post(context.Background(), srv.URL, struct{}{})

	require.Error(t, err)
	assert.Nil(t, result)
}

func TestPost_UnencodablePayload(t *testing.T) {
	client := NewClient(time.Second)
	_, err := client.Post(context.Background(), "http://localhost:0", make(chan int))
	require.Error(t, err)
}
