package ocr

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"proofchest/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestVision(t *testing.T, handler http.Handler) *GigaChatVision {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGigaChatVision(&config.GigaChatConfig{APIKey: "a2V5", Scope: "GIGACHAT_API_PERS"}, zap.NewNop())
	g.oauthURL = srv.URL + "/oauth"
	g.baseURL = srv.URL + "/api/v1"
	g.httpClient = srv.Client()
	return g
}

func TestGigaChatVisionRecognize(t *testing.T) {
	var tokens atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Basic a2V5", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("RqUID"))
		tokens.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok"})
	})
	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "general", r.FormValue("purpose"))
		f, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(f)
		assert.Equal(t, "img", string(data))
		json.NewEncoder(w).Encode(map[string]any{"id": "file-1"})
	})
	mux.HandleFunc("/api/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Attachments []string `json:"attachments"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Messages, 1) {
			assert.Equal(t, []string{"file-1"}, body.Messages[0].Attachments)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": " TOTAL R$ 10,00 "}}},
		})
	})

	g := newTestVision(t, mux)
	var statuses []string
	res, err := g.Recognize(context.Background(), Input{
		Image:       []byte("img"),
		ContentType: "image/png",
		Language:    "por",
		Progress:    func(p Progress) { statuses = append(statuses, p.Status) },
	})
	require.NoError(t, err)
	assert.Equal(t, "TOTAL R$ 10,00", res.Text)
	assert.Equal(t, int32(1), tokens.Load())
	assert.Equal(t, StatusLoading, statuses[0])
	assert.Equal(t, StatusDone, statuses[len(statuses)-1])
}

func TestGigaChatVisionRefreshesTokenOnce(t *testing.T) {
	var tokens, uploads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		n := tokens.Add(1)
		json.NewEncoder(w).Encode(map[string]any{"access_token": map[int32]string{1: "stale", 2: "fresh"}[n]})
	})
	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "file-1"})
	})
	mux.HandleFunc("/api/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	})

	g := newTestVision(t, mux)
	res, err := g.Recognize(context.Background(), Input{Image: []byte("img"), ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, int32(2), tokens.Load())
	assert.Equal(t, int32(2), uploads.Load())
}

func TestGigaChatVisionRejectsRefusal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok"})
	})
	mux.HandleFunc("/api/v1/files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "file-1"})
	})
	mux.HandleFunc("/api/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "Sorry, I cannot help with that"}}},
		})
	})

	g := newTestVision(t, mux)
	_, err := g.Recognize(context.Background(), Input{Image: []byte("img"), ContentType: "image/png"})
	assert.Error(t, err)
}

func TestGigaChatVisionOAuthFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	})

	g := newTestVision(t, mux)
	_, err := g.Recognize(context.Background(), Input{Image: []byte("img"), ContentType: "image/png"})
	assert.ErrorContains(t, err, "OAuth failed with status 401")
}
