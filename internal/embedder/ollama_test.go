package embedder

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docdex/internal/logsink"
)

func fakeService(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model == "" || req.Prompt == "" {
			t.Errorf("request missing model or prompt: %+v", req)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEmbedResponseShapes(t *testing.T) {
	cases := []struct {
		name string
		body string
		want []float32
	}{
		{"object embedding", `{"embedding": [0.1, 0.2, 0.3]}`, []float32{0.1, 0.2, 0.3}},
		{"object embeddings nested", `{"embeddings": [[1, 2], [3, 4]]}`, []float32{1, 2}},
		{"object embeddings flat", `{"embeddings": [5, 6]}`, []float32{5, 6}},
		{"list of objects embedding", `[{"embedding": [7, 8]}]`, []float32{7, 8}},
		{"list of objects embeddings", `[{"embeddings": [9, 10]}]`, []float32{9, 10}},
		{"bare vector", `[0.5, 0.6]`, []float32{0.5, 0.6}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := fakeService(t, http.StatusOK, tc.body)
			c := New(srv.URL, "test-model", 0, nil)
			emb, err := c.Embed("hello")
			if err != nil {
				t.Fatal(err)
			}
			if len(emb.Values) != len(tc.want) {
				t.Fatalf("got %d values, want %d", len(emb.Values), len(tc.want))
			}
			for i := range tc.want {
				if emb.Values[i] != tc.want[i] {
					t.Errorf("value %d = %v, want %v", i, emb.Values[i], tc.want[i])
				}
			}
			if emb.CreatedAt.IsZero() {
				t.Error("CreatedAt not set")
			}
		})
	}
}

func TestEmbedUnrecognizedShape(t *testing.T) {
	for _, body := range []string{`{"vectors": [1, 2]}`, `{}`, `"text"`, `[]`} {
		srv := fakeService(t, http.StatusOK, body)
		c := New(srv.URL, "test-model", 0, nil)
		_, err := c.Embed("hello")
		if !errors.Is(err, ErrUnrecognizedShape) {
			t.Errorf("body %q: err = %v, want ErrUnrecognizedShape", body, err)
		}
	}
}

func TestEmbedHTTPError(t *testing.T) {
	srv := fakeService(t, http.StatusInternalServerError, "boom")
	c := New(srv.URL, "test-model", 0, nil)
	emb, err := c.Embed("hello")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("err = %v", err)
	}
	if emb.Duration <= 0 {
		t.Error("failed call should still report elapsed duration")
	}
}

func TestEmbedConnectionRefused(t *testing.T) {
	srv := fakeService(t, http.StatusOK, `[1]`)
	url := srv.URL
	srv.Close()

	c := New(url, "test-model", time.Second, nil)
	emb, err := c.Embed("hello")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if emb.Values != nil {
		t.Error("no values expected on failure")
	}
	if emb.Duration < 0 {
		t.Error("duration should be non-negative")
	}
}

func TestEmbedLogsFailures(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "embed.log")
	srv := fakeService(t, http.StatusOK, `{"wrong": true}`)
	c := New(srv.URL, "test-model", 0, logsink.NewFileSink(logPath))

	if _, err := c.Embed("hello"); err == nil {
		t.Fatal("expected error")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "ERROR:Could not identify embedding format") {
		t.Errorf("log = %q", string(data))
	}
}
