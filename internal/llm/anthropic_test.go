package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kevinmichaelchen/star-sync/internal/enrich"
	"github.com/kevinmichaelchen/star-sync/internal/logging"
	"github.com/kevinmichaelchen/star-sync/internal/models"
)

func messagesServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "key" {
			t.Errorf("X-Api-Key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func message(content string) string {
	return `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",` +
		`"content":` + content + `,"stop_reason":"end_turn","stop_sequence":null,` +
		`"usage":{"input_tokens":10,"output_tokens":10}}`
}

func TestAnthropicClassify(t *testing.T) {
	reply := `[{"id":"1","tags":["cli"],"technologies":["Go"]}]`
	srv := messagesServer(t, http.StatusOK, message(`[{"type":"text","text":`+quote(reply)+`}]`))

	c := NewAnthropicClient(srv.URL, "key", "claude-test")
	got, err := c.Classify(context.Background(), []models.ClassifyInput{{ID: "1", FullName: "a/b"}})
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(got) != 1 || got[0].ID != "1" || strings.Join(got[0].Technologies, ",") != "Go" {
		t.Errorf("got %+v", got)
	}
}

func TestAnthropicClassifyHTTPError(t *testing.T) {
	srv := messagesServer(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)

	c := NewAnthropicClient(srv.URL, "key", "claude-test")
	_, err := c.Classify(context.Background(), []models.ClassifyInput{{ID: "1"}})
	var he logging.HTTPError
	if !errors.As(err, &he) || he.HTTPStatus() != http.StatusUnauthorized {
		t.Fatalf("error should expose HTTP status, got %v", err)
	}
}

func TestAnthropicClassifyEmptyContent(t *testing.T) {
	srv := messagesServer(t, http.StatusOK, message(`[]`))

	c := NewAnthropicClient(srv.URL, "key", "claude-test")
	if _, err := c.Classify(context.Background(), []models.ClassifyInput{{ID: "1"}}); err == nil {
		t.Fatal("empty content should be an error")
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// replyClassifier returns a fixed model reply through ParseMetadata.
type replyClassifier string

func (r replyClassifier) Classify(context.Context, []models.ClassifyInput) ([]models.Metadata, error) {
	return ParseMetadata(string(r))
}

func TestUnusableReplyFallsBackToDefaults(t *testing.T) {
	repo := models.Repo{ID: "1", FullName: "o/r", Language: "Go", Topics: []string{"cli"}}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	for _, reply := range []string{`null`, "```json\nnull\n```", `[{"tags":["x"]}]`} {
		e := enrich.NewEngine(replyClassifier(reply), 0, 0).WithLogger(quiet)
		res := e.Enrich(context.Background(), []models.Repo{repo}, nil, true)

		got := res.Repos[0]
		if got.Provenance != models.ProvenanceDefault {
			t.Errorf("reply %q: provenance = %v, want default", reply, got.Provenance)
		}
		if strings.Join(got.Tags, ",") != "Go,cli" || strings.Join(got.Technologies, ",") != "Go" {
			t.Errorf("reply %q: tags = %v, tech = %v", reply, got.Tags, got.Technologies)
		}
		if res.Stats.Fallback != 1 || res.Stats.AIUpdated != 0 {
			t.Errorf("reply %q: stats = %+v", reply, res.Stats)
		}
	}
}
